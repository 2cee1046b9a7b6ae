package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_AddKeepsFirstWriter(t *testing.T) {
	t.Parallel()

	s := NewSet()
	assert.True(t, s.Add("FILE_NAME", String("a.jpg")))
	assert.False(t, s.Add("FILE_NAME", String("b.jpg")))

	v, ok := s.Get("FILE_NAME")
	assert.True(t, ok)
	assert.Equal(t, "a.jpg", v.String())
	assert.Equal(t, 1, s.Len())
}

func TestSet_PutReplacesInPlace(t *testing.T) {
	t.Parallel()

	s := NewSet()
	s.Put("a", Int(1))
	s.Put("b", Int(2))
	s.Put("a", Int(3))

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	v, _ := s.Get("a")
	assert.Equal(t, "3", v.String())
}

func TestSet_MergePreservesOrderAndExisting(t *testing.T) {
	t.Parallel()

	dst := NewSet()
	dst.Add("FILE_SIZE", Int(10))

	src := NewSet()
	src.Add("IMAGE_WIDTH", Int(4))
	src.Add("FILE_SIZE", Int(99))
	src.Add("IMAGE_HEIGHT", Int(3))

	added := dst.Merge(src)
	assert.Equal(t, []string{"IMAGE_WIDTH", "IMAGE_HEIGHT"}, added)
	assert.Equal(t, []string{"FILE_SIZE", "IMAGE_WIDTH", "IMAGE_HEIGHT"}, dst.Keys())

	v, _ := dst.Get("FILE_SIZE")
	assert.Equal(t, "10", v.String())
}

func TestSet_NilIsEmpty(t *testing.T) {
	t.Parallel()

	var s *Set
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Keys())
	for range s.All() {
		t.Fatal("nil set yielded an entry")
	}
}

func TestCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0th", Category("0th_Make"))
	assert.Equal(t, "EXIFTOOL", Category("EXIFTOOL_CMD_ICC_Profile_ProfileDateTime"))
	assert.Equal(t, OtherCategory, Category("nodelimiter"))
	assert.Equal(t, "", Category("_leading"))
}

func TestFailureNamespace(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	assert.Equal(t, "IFD", FailureNamespace(base, "IFD"))

	wrapped := fmt.Errorf("decode: %w", &Failure{Namespace: "GPS", Err: base})
	assert.Equal(t, "GPS", FailureNamespace(wrapped, "IFD"))
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "IFD_ERROR", ErrorKey("IFD"))
}
