package vfat

import (
	"fmt"
	"strings"

	"github.com/ipxeusb/vdisk/internal/layout"
	"github.com/ipxeusb/vdisk/pkg/table"
)

// Filesystem is the declarative virtual FAT32 volume: a bounded table of
// file/directory entries plus enough cached geometry to answer ReadSector
// for any LBA in O(1) or O(entries).
//
// A Filesystem is built once (Create + a sequence of Add* calls) before the
// session that serves it starts; after that its entry table is read-only.
// ReadSector takes no locks and records each file's one-shot read
// notification on the entry, so it is not safe to call concurrently with
// itself or with any Add* call.
type Filesystem struct {
	scheme      layout.Scheme
	entries     []*entry
	nextCluster uint32

	volumeLabel  string
	volumeSerial uint32

	notify ReadNotifyFunc
	reader ByteRangeReader

	// dirLookup indexes directory entries by "parentIndex/SHORTNAME" so
	// AddFileUnderPath's repeated directory resolution during a deep path
	// insertion doesn't rescan the whole entry table for each component.
	dirLookup *table.PrefixTable[int]
}

// Create returns an empty filesystem: next_cluster = 3, scheme = GptOnly.
func Create() *Filesystem {
	return &Filesystem{
		scheme:       layout.GptOnly,
		nextCluster:  3,
		volumeLabel:  "Boot2Flippr",
		volumeSerial: 0x78563412,
		dirLookup:    table.New[int](),
	}
}

// SetScheme selects MBR-only or GPT-only partitioning. Must be called
// before the first ReadSector.
func (fs *Filesystem) SetScheme(s layout.Scheme) {
	fs.scheme = s
}

// SetVolumeLabel overrides the default volume label burned into the boot
// sector. Labels longer than 11 bytes are truncated.
func (fs *Filesystem) SetVolumeLabel(label string) {
	fs.volumeLabel = label
}

// SetVolumeSerial overrides the default volume serial number.
func (fs *Filesystem) SetVolumeSerial(serial uint32) {
	fs.volumeSerial = serial
}

// SetReadCallback registers the one-shot per-file read notification.
func (fs *Filesystem) SetReadCallback(fn ReadNotifyFunc) {
	fs.notify = fn
}

// SetByteRangeReader registers the collaborator used to size and stream
// ExternalFile sources.
func (fs *Filesystem) SetByteRangeReader(r ByteRangeReader) {
	fs.reader = r
}

// ErrTableFull is returned by the Add* methods once MaxEntries entries have
// been declared. Add* calls also fail on a short name that does not fit the
// 8.3 form and, for external files, when no ByteRangeReader is registered
// or the backing file cannot be stat'ed.
var ErrTableFull = fmt.Errorf("vfat: entry table full (max %d entries)", MaxEntries)

func (fs *Filesystem) allocEntry(shortName string, longName string, isDir bool, parent int, size uint32, src source) (*entry, error) {
	if len(fs.entries) >= MaxEntries {
		return nil, ErrTableFull
	}
	short, err := pad83(shortName)
	if err != nil {
		return nil, err
	}

	e := &entry{
		shortName:   short,
		longName:    longName,
		size:        size,
		isDirectory: isDir,
		parentIndex: parent,
		src:         src,
	}

	if isDir {
		e.clusterCount = 1
	} else {
		e.clusterCount = clustersNeeded(size)
	}
	e.startCluster = fs.nextCluster
	fs.nextCluster += e.clusterCount

	fs.entries = append(fs.entries, e)
	return e, nil
}

// AddMemoryFile declares a file backed by an owned copy of data, rooted at
// the top-level directory.
func (fs *Filesystem) AddMemoryFile(shortName, longName string, data []byte) error {
	buf := append([]byte(nil), data...)
	_, err := fs.allocEntry(shortName, longName, false, rootIndex, uint32(len(data)), memorySource{data: buf})
	return err
}

// AddExternalFile declares a file streamed from path via the registered
// ByteRangeReader, rooted at the top-level directory. SetByteRangeReader
// must be called first.
func (fs *Filesystem) AddExternalFile(shortName, longName, path string) error {
	if fs.reader == nil {
		return fmt.Errorf("vfat: AddExternalFile(%q): no ByteRangeReader registered", path)
	}
	size, err := fs.reader.Stat(path)
	if err != nil {
		return fmt.Errorf("vfat: stat %q: %w", path, err)
	}
	_, err = fs.allocEntry(shortName, longName, false, rootIndex, uint32(size), externalSource{path: path})
	return err
}

// AddDirectory declares a subdirectory rooted at the top-level directory,
// allocating exactly one cluster.
func (fs *Filesystem) AddDirectory(shortName string) error {
	_, err := fs.addDirectoryUnder(shortName, rootIndex)
	return err
}

// addDirectoryUnder allocates a subdirectory under parent and indexes it in
// dirLookup for AddFileUnderPath's repeated component resolution.
func (fs *Filesystem) addDirectoryUnder(shortName string, parent int) (*entry, error) {
	e, err := fs.allocEntry(shortName, "", true, parent, 0, noSource{})
	if err != nil {
		return nil, err
	}
	fs.dirLookup.Insert(dirLookupKey(parent, e.shortName), fs.indexOf(e))
	return e, nil
}

// dirLookupKey builds the composite key under which a directory entry is
// indexed: its parent's index together with its 8.3 short name, since the
// same short name may legitimately appear under different parents.
func dirLookupKey(parent int, short [11]byte) []byte {
	key := make([]byte, 0, 12)
	key = append(key, byte(parent), byte(parent>>8))
	key = append(key, short[:]...)
	return key
}

// findChildByShortName looks up an existing directory entry named name
// (8.3 uppercase compare) directly under parent.
func (fs *Filesystem) findChildByShortName(parent int, name string) (*entry, error) {
	short, err := pad83(name)
	if err != nil {
		return nil, err
	}
	if idx, ok := fs.dirLookup.Get(dirLookupKey(parent, short)); ok {
		return fs.entries[idx], nil
	}
	return nil, nil
}

func (fs *Filesystem) indexOf(e *entry) int {
	for i, other := range fs.entries {
		if other == e {
			return i
		}
	}
	return -1
}

// AddFileUnderPath tokenizes dirPath on '/', creating any missing
// intermediate directories under the running parent, then adds an external
// file named shortName under the resolved directory.
func (fs *Filesystem) AddFileUnderPath(dirPath, shortName, longName, backingPath string) error {
	parent := rootIndex
	if dirPath != "" {
		for _, part := range strings.Split(dirPath, "/") {
			if part == "" {
				continue
			}
			child, err := fs.findChildByShortName(parent, part)
			if err != nil {
				return err
			}
			if child == nil {
				child, err = fs.addDirectoryUnder(part, parent)
				if err != nil {
					return err
				}
			}
			parent = fs.indexOf(child)
		}
	}

	if fs.reader == nil {
		return fmt.Errorf("vfat: AddFileUnderPath(%q): no ByteRangeReader registered", backingPath)
	}
	size, err := fs.reader.Stat(backingPath)
	if err != nil {
		return fmt.Errorf("vfat: stat %q: %w", backingPath, err)
	}
	_, err = fs.allocEntry(shortName, longName, false, parent, uint32(size), externalSource{path: backingPath})
	return err
}

// fatSize returns the cached sectors-per-FAT for the current scheme.
func (fs *Filesystem) fatSize() uint32 {
	return fatSizeSectors(partitionSectors(fs.scheme))
}
