package vfat

import (
	"fmt"
	"strings"
)

// ByteRangeReader is the external collaborator L2 calls into when a file's
// source is external: it must stat the file to learn its size at add-time,
// and read an arbitrary byte range of it at sector-synthesis time. A stat
// failure makes the Add* call that declared the file return an error. A
// read failure is non-fatal: ReadSector ignores the error, so the bytes the
// reader did not fill stay zero and the SCSI layer still reports success.
type ByteRangeReader interface {
	Stat(path string) (size int64, err error)
	ReadAt(path string, offset int64, buf []byte) (n int, err error)
}

// ReadNotifyFunc is invoked at most once per virtual file, the first time
// any of its sectors is read, carrying the file's display name (its long
// name, or its 8.3 short name reformatted as "NAME.EXT").
type ReadNotifyFunc func(displayName string)

// source is the sum type for where a file's bytes come from: an owned
// in-memory buffer, or a byte range of a host-provided path.
type source interface {
	isSource()
}

// memorySource holds an owned copy of a file's bytes.
type memorySource struct {
	data []byte
}

func (memorySource) isSource() {}

// externalSource records a path whose bytes are streamed in on read via the
// registered ByteRangeReader.
type externalSource struct {
	path string
}

func (externalSource) isSource() {}

// noSource is used by directory entries, which carry no file bytes.
type noSource struct{}

func (noSource) isSource() {}

// entry is one row of the declarative file/directory table.
type entry struct {
	shortName    [11]byte
	longName     string
	size         uint32
	startCluster uint32
	clusterCount uint32
	isDirectory  bool
	parentIndex  int // rootIndex for entries directly under the root
	src          source
	notified     bool
}

// rootIndex is the parentIndex sentinel meaning "the root directory".
const rootIndex = -1

// displayName returns the name a read notification should report: the long
// name if present, else the 8.3 short name rendered as "NAME.EXT".
func (e *entry) displayName() string {
	if e.longName != "" {
		return e.longName
	}
	return shortNameToDisplay(e.shortName)
}

func shortNameToDisplay(short [11]byte) string {
	name := strings.TrimRight(string(short[0:8]), " ")
	ext := strings.TrimRight(string(short[8:11]), " ")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// pad83 uppercases and space-pads a dotted 8.3 name ("boot.efi" ->
// "BOOT    EFI") into the fixed 11-byte on-disk form. It does not validate
// character legality beyond what FAT32 consumers tolerate in practice.
func pad83(name string) ([11]byte, error) {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}

	name = strings.ToUpper(name)
	base, ext, _ := strings.Cut(name, ".")
	if len(base) > 8 || len(ext) > 3 {
		return out, fmt.Errorf("vfat: short name %q does not fit the 8.3 form", name)
	}
	copy(out[0:8], base)
	copy(out[8:11], ext)
	return out, nil
}

// clustersNeeded returns the number of SectorsPerCluster-sized clusters a
// file of the given size occupies: at least 1, covering ceil(size/clusterBytes).
func clustersNeeded(size uint32) uint32 {
	const clusterBytes = SectorsPerCluster * SectorSize
	if size == 0 {
		return 1
	}
	return (size + clusterBytes - 1) / clusterBytes
}
