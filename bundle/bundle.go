// Package bundle packages rendered statements for delivery.
//
// A bundle is an ordered list of named files. Packagers write it to a
// destination: a ZIP archive on disk, a directory, or a Google Cloud Storage
// object. The order of files is preserved everywhere so that a bundle is
// reproducible across runs.
package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"
)

// File is one named entry of a bundle.
type File struct {
	Name string
	Data []byte
}

// Packager writes a bundle to its destination.
type Packager interface {
	Pack(ctx context.Context, files []File) error
}

// Archive returns the ZIP archive of files, in order.
//
// Every entry gets the same modification time so that identical files give
// identical archives.
func Archive(files []File, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, files, modified); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteArchive writes the ZIP archive of files to w.
func WriteArchive(w io.Writer, files []File, modified time.Time) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f.Name] {
			return fmt.Errorf("duplicate bundle entry %q", f.Name)
		}
		seen[f.Name] = true
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("cannot create bundle entry %q: %w", f.Name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("cannot write bundle entry %q: %w", f.Name, err)
		}
	}
	return zw.Close()
}
