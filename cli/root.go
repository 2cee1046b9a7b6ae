package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/aggregate"
	"github.com/ankit-chaubey/exif-extractor/core/batch"
	"github.com/ankit-chaubey/exif-extractor/core/config"
	"github.com/ankit-chaubey/exif-extractor/core/exiftool"
	"github.com/ankit-chaubey/exif-extractor/core/logger"
)

type rootOptions struct {
	configPath string
	noColor    bool
	install    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "exif-extractor <folder>",
		Short: "Extract image metadata and the color-profile timestamp",
		Long: `exif-extractor reads every image in a folder with several metadata
readers and writes one text report per image next to it.

Commands:
  view      Print the report for a single image
  version   Show version information`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.install {
				core.NewPrinter(cmd.OutOrStdout(), opts.noColor).InstallGuidance(runtime.GOOS)
				return nil
			}
			if len(args) == 0 {
				return cmd.Help()
			}
			return runBatch(cmd, opts, args[0])
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./exif-extractor.yaml)")
	pf.String("exiftool", "", "path to the exiftool executable")
	pf.Bool("no-exiftool", false, "do not use exiftool even when installed")
	pf.Bool("exiftool-binding", false, "also read through a stay-open exiftool process")
	pf.Int("workers", 1, "files processed concurrently; above 1 the raw byte scan may overlap other file reads")
	pf.String("log-level", "warn", "log level (debug, info, warn, error, off)")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	rootCmd.Flags().BoolVar(&opts.install, "install-exiftool", false, "show how to install exiftool")

	rootCmd.AddCommand(newViewCommand(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// session is the state shared by the batch and view commands.
type session struct {
	cfg     *config.Config
	log     zerolog.Logger
	tool    exiftool.Tool
	binding *exiftool.Binding
	printer *core.Printer
	engine  *aggregate.Engine
}

func (s *session) Close() {
	if s.binding == nil {
		return
	}
	if err := s.binding.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing exiftool")
	}
}

// newSession loads configuration, resolves exiftool and builds the engine.
// Status lines go to the printer when announce is set.
func newSession(ctx context.Context, cmd *cobra.Command, opts *rootOptions, announce bool) (*session, error) {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:     cfg,
		log:     logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty}),
		printer: core.NewPrinter(cmd.OutOrStdout(), opts.noColor),
	}

	if !cfg.ExifTool.Disabled {
		s.tool, err = exiftool.Locate(ctx, exiftool.DefaultCandidates(cfg.ExifTool.Path), cfg.ExifTool.VersionTimeout)
		switch {
		case errors.Is(err, exiftool.ErrNotFound):
			s.log.Info().Msg("exiftool not found")
		case err != nil:
			return nil, err
		}
		if announce {
			s.printer.ToolStatus(s.tool.Path, s.tool.Version)
		}
		if cfg.ExifTool.Binding {
			s.binding, err = exiftool.NewBinding(s.tool.Path)
			if err != nil {
				s.log.Warn().Err(err).Msg("exiftool binding unavailable")
			}
		}
	}

	s.engine = aggregate.NewDefault(cfg, s.tool, s.binding, s.log)
	return s, nil
}

func runBatch(cmd *cobra.Command, opts *rootOptions, dir string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(ctx, cmd, opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	r := batch.New(s.engine, batch.Options{
		Extensions: s.cfg.Batch.Extensions,
		OutputExt:  s.cfg.Batch.OutputExt,
		Workers:    s.cfg.Batch.Workers,
		ToolFound:  s.tool.Found(),
		Printer:    s.printer,
		Logger:     &s.log,
	})
	sum, err := r.Run(ctx, dir)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%s could not be read\n", core.Plural(sum.Failed, "file"))
	}
	return nil
}
