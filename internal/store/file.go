package store

import (
	"context"
	"os"
	"path/filepath"
)

// File is the overflow backend: the document as a plain JSON file.
// Writes go through a temp file and rename so a crash mid-write leaves
// either the old or the new content, never a torn one.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (s *File) Name() string { return "file" }

func (s *File) Load(ctx context.Context) ([]byte, bool, error) {
	_ = ctx
	b, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *File) Save(ctx context.Context, data []byte) error {
	_ = ctx
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".capital-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.Path)
}
