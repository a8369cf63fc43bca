package vfat

import "fmt"

// VisibleEntry is a read-only view of one file or directory in the
// filesystem, addressed by its full slash-separated path from the root.
// It exists for debug tooling (internal/fuseview) that wants to walk the
// declarative tree directly rather than decode it back out of synthesised
// sectors.
type VisibleEntry struct {
	Path        string
	IsDirectory bool
	Size        uint32
}

// path reconstructs e's full slash-separated path by walking parentIndex
// links up to the root.
func (fs *Filesystem) path(e *entry) string {
	if e.parentIndex == rootIndex {
		return e.displayName()
	}
	parent := fs.entries[e.parentIndex]
	return fs.path(parent) + "/" + e.displayName()
}

// Walk returns every entry in the filesystem as a flat list of
// VisibleEntry, in insertion order.
func (fs *Filesystem) Walk() []VisibleEntry {
	out := make([]VisibleEntry, 0, len(fs.entries))
	for _, e := range fs.entries {
		out = append(out, VisibleEntry{
			Path:        fs.path(e),
			IsDirectory: e.isDirectory,
			Size:        e.size,
		})
	}
	return out
}

// ReadFile returns the full content of the file at path, read directly from
// its source rather than through the sector-synthesis path. It is intended
// for debug tooling, not for the SCSI read path.
func (fs *Filesystem) ReadFile(path string) ([]byte, error) {
	for _, e := range fs.entries {
		if e.isDirectory || fs.path(e) != path {
			continue
		}
		switch src := e.src.(type) {
		case memorySource:
			return append([]byte(nil), src.data...), nil
		case externalSource:
			if fs.reader == nil {
				return nil, fmt.Errorf("vfat: ReadFile(%q): no ByteRangeReader registered", path)
			}
			buf := make([]byte, e.size)
			n, err := fs.reader.ReadAt(src.path, 0, buf)
			if err != nil {
				return nil, err
			}
			return buf[:n], nil
		}
	}
	return nil, fmt.Errorf("vfat: ReadFile(%q): no such file", path)
}
