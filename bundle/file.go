package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Zip writes the bundle as a ZIP archive at Path.
//
// The archive is written next to Path and renamed once complete, a failed
// run never leaves a partial bundle behind.
type Zip struct {
	Path     string
	Modified time.Time
}

func (z *Zip) Pack(ctx context.Context, files []File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(z.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create bundle directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(z.Path), ".bundle-*.zip")
	if err != nil {
		return fmt.Errorf("cannot create bundle %q: %w", z.Path, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write bundle %q: %w", z.Path, err)
	}
	if err := WriteArchive(tmp, files, z.Modified); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot write bundle %q: %w", z.Path, err)
	}
	if err := os.Rename(tmp.Name(), z.Path); err != nil {
		return fmt.Errorf("cannot write bundle %q: %w", z.Path, err)
	}
	return nil
}

// Stream writes the bundle as a ZIP archive to W.
type Stream struct {
	W        io.Writer
	Modified time.Time
}

func (s *Stream) Pack(ctx context.Context, files []File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteArchive(s.W, files, s.Modified)
}

// Directory writes every file of the bundle into the directory Path.
//
// Files are staged in a sibling directory and only moved into Path once all
// of them are written, a failed run leaves Path untouched.
type Directory struct {
	Path string
}

func (d *Directory) Pack(ctx context.Context, files []File) error {
	for _, f := range files {
		if filepath.Base(f.Name) != f.Name {
			return fmt.Errorf("invalid bundle entry name %q", f.Name)
		}
	}
	parent := filepath.Dir(filepath.Clean(d.Path))
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	stage, err := os.MkdirTemp(parent, ".bundle-*")
	if err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	defer os.RemoveAll(stage) // no-op once renamed

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(stage, f.Name), f.Data, 0644); err != nil {
			return fmt.Errorf("cannot write %q: %w", f.Name, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(d.Path); errors.Is(err, fs.ErrNotExist) {
		if err := os.Chmod(stage, 0755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
		if err := os.Rename(stage, d.Path); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
		return nil
	}
	for _, f := range files {
		if err := os.Rename(filepath.Join(stage, f.Name), filepath.Join(d.Path, f.Name)); err != nil {
			return fmt.Errorf("cannot write %q: %w", f.Name, err)
		}
	}
	return nil
}

// Archive returns the ZIP archive of files with the modification time of z.
func (z *Zip) Archive(files []File) ([]byte, error) {
	return Archive(files, z.Modified)
}

// Memory keeps the bundle in memory.
type Memory struct {
	Files []File
}

func (m *Memory) Pack(ctx context.Context, files []File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Files = append(m.Files, files...)
	return nil
}
