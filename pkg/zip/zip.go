// Package zip builds in-memory archives for audit report downloads.
package zip

import (
	"archive/zip"
	"bytes"
)

// Entry is one file in the archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive packs entries into a zip held in memory. A write failure aborts
// and returns nil rather than a truncated archive.
func Archive(entries []Entry) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			continue
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil
		}
	}
	if err := zw.Close(); err != nil {
		return nil
	}
	return buf.Bytes()
}
