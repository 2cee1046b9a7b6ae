// Package core defines the shared types, interfaces, and format registry
// for the EXIF extractor.
package core

import (
	"context"
	"errors"
	"strings"
)

// Delimiter separates a namespace from the local tag name in every key.
const Delimiter = "_"

// OtherCategory collects keys that carry no namespace delimiter.
const OtherCategory = "Other"

// ErrorSuffix is appended to a namespace to record an adapter failure.
const ErrorSuffix = "ERROR"

// Key builds a namespaced key such as "0th_Make".
func Key(namespace, name string) string {
	return namespace + Delimiter + name
}

// ErrorKey returns the key an adapter failure is recorded under.
func ErrorKey(namespace string) string {
	return Key(namespace, ErrorSuffix)
}

// Category returns the text before the first delimiter, or OtherCategory.
func Category(key string) string {
	if i := strings.Index(key, Delimiter); i >= 0 {
		return key[:i]
	}
	return OtherCategory
}

// Extractor is the interface every metadata backend implements.
type Extractor interface {
	// Namespace is the prefix used for error entries of this extractor.
	Namespace() string
	// Extract reads path and returns the entries it found.
	// A non-nil set returned with an error is a partial result; its
	// entries are kept and the error is recorded.
	Extract(ctx context.Context, path string) (*Set, error)
}

// Failure attributes an extraction error to a specific namespace.
// Adapters owning several namespaces return it so the error entry lands
// under the sub-namespace that failed.
type Failure struct {
	Namespace string
	Err       error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// FailureNamespace returns the namespace err should be recorded under.
func FailureNamespace(err error, fallback string) string {
	var f *Failure
	if errors.As(err, &f) && f.Namespace != "" {
		return f.Namespace
	}
	return fallback
}
