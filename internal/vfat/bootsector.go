package vfat

import "encoding/binary"

// writeBootSector fills buf with the FAT32 boot sector (BIOS Parameter
// Block) for the partition, in the bit-exact layout a FAT32 host driver
// expects on LBA 0 of the partition.
func (fs *Filesystem) writeBootSector(buf []byte) {
	clear(buf[:SectorSize])

	// 0x00: a 3-byte short jump, content unobserved by any host, kept as
	// a harmless NOP-ish jump + fill.
	buf[0] = 0xEB
	buf[1] = 0x58
	buf[2] = 0x90

	copy(buf[3:11], "BOOT2FLP")

	binary.LittleEndian.PutUint16(buf[11:13], SectorSize)
	buf[13] = SectorsPerCluster
	binary.LittleEndian.PutUint16(buf[14:16], ReservedSectors)
	buf[16] = NumFATs
	binary.LittleEndian.PutUint16(buf[17:19], 0) // root dir entries: unused by FAT32
	binary.LittleEndian.PutUint16(buf[19:21], 0) // total sectors (16-bit): unused, see 0x20
	buf[21] = 0xF8                                // media descriptor: fixed disk
	binary.LittleEndian.PutUint16(buf[22:24], 0)  // FAT16 size: unused by FAT32
	binary.LittleEndian.PutUint16(buf[24:26], 63)  // sectors per track
	binary.LittleEndian.PutUint16(buf[26:28], 255) // heads

	partSectors := partitionSectors(fs.scheme)
	binary.LittleEndian.PutUint32(buf[28:32], PartitionStartLBA) // hidden sectors
	binary.LittleEndian.PutUint32(buf[32:36], partSectors)

	fatSize := fs.fatSize()
	binary.LittleEndian.PutUint32(buf[36:40], fatSize)
	binary.LittleEndian.PutUint16(buf[40:42], 0) // ext flags: FAT mirroring on both copies
	binary.LittleEndian.PutUint16(buf[42:44], 0) // fs version 0.0
	binary.LittleEndian.PutUint32(buf[44:48], RootCluster)
	binary.LittleEndian.PutUint16(buf[48:50], 1) // FSInfo sector
	binary.LittleEndian.PutUint16(buf[50:52], 6) // backup boot sector

	buf[64] = 0x80 // BIOS drive number
	buf[65] = 0
	buf[66] = 0x29 // extended boot signature
	binary.LittleEndian.PutUint32(buf[67:71], fs.volumeSerial)

	var label [11]byte
	for i := range label {
		label[i] = ' '
	}
	copy(label[:], fs.volumeLabel)
	copy(buf[71:82], label[:])

	copy(buf[82:90], "FAT32   ")

	buf[510] = 0x55
	buf[511] = 0xAA
}

// writeFSInfo fills buf with the FAT32 FSInfo sector. Both free-cluster
// counters are reported unknown: this generator never tracks free space.
func writeFSInfo(buf []byte) {
	clear(buf[:SectorSize])

	copy(buf[0:4], "RRaA")
	copy(buf[484:488], "rrAa")
	binary.LittleEndian.PutUint32(buf[488:492], 0xFFFFFFFF) // free cluster count: unknown
	binary.LittleEndian.PutUint32(buf[492:496], 0xFFFFFFFF) // next free cluster: unknown

	buf[510] = 0x55
	buf[511] = 0xAA
}
