package vfat

import "encoding/binary"

const (
	fatMediaDescriptor = 0x0FFFFFF8
	fatEndOfChain      = 0x0FFFFFFF
	fatEntriesPerSector = SectorSize / 4
)

// fatEntryValue computes the 32-bit FAT entry for cluster c: the reserved
// media descriptor and end-of-chain markers for clusters 0/1/the root, or
// the next cluster in an entry's chain (end-of-chain on the last one).
func (fs *Filesystem) fatEntryValue(c uint32) uint32 {
	switch c {
	case 0:
		return fatMediaDescriptor
	case 1:
		return fatEndOfChain
	case RootCluster:
		return fatEndOfChain
	}

	for _, e := range fs.entries {
		if c < e.startCluster || c >= e.startCluster+e.clusterCount {
			continue
		}
		if c == e.startCluster+e.clusterCount-1 {
			return fatEndOfChain
		}
		return c + 1
	}
	return 0 // free
}

// writeFATSector fills buf with the FAT32 sector at sector-local index k
// within one FAT copy: entry i of the sector is cluster k*128+i.
func (fs *Filesystem) writeFATSector(buf []byte, k uint32) {
	clear(buf[:SectorSize])
	base := k * fatEntriesPerSector
	for i := uint32(0); i < fatEntriesPerSector; i++ {
		v := fs.fatEntryValue(base + i)
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], v)
	}
}
