package vfat

import "github.com/ipxeusb/vdisk/internal/fs"

// FileReader implements ByteRangeReader by opening each path through the
// cross-platform fs.File abstraction (internal/fs, generalized from the
// teacher's raw-disk reader), letting a virtual file's ExternalFile source
// stream directly from an SD-card-resident binary without being loaded
// into memory.
type FileReader struct{}

func (FileReader) Stat(path string) (int64, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (FileReader) ReadAt(path string, offset int64, buf []byte) (int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return f.ReadAt(buf, offset)
}
