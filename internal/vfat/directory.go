package vfat

import (
	"encoding/binary"
	"unicode/utf16"
)

const (
	attrDirectory = 0x10
	attrArchive   = 0x20

	// fixedTime and fixedDate encode 2024-01-01 12:00:00 in FAT's packed
	// time/date fields.
	fixedTime = 0x6000
	fixedDate = 0x5821
)

// shortNameChecksum computes the checksum VFAT stores in each long-name
// entry paired with an 8.3 short entry.
func shortNameChecksum(short [11]byte) byte {
	var sum byte
	for _, b := range short {
		sum = ((sum & 1) << 7) + (sum >> 1) + b
	}
	return sum
}

// writeShortEntry fills one 32-byte directory slot with an 8.3 short entry.
func writeShortEntry(slot []byte, e *entry) {
	clear(slot[:32])
	copy(slot[0:11], e.shortName[:])

	if e.isDirectory {
		slot[11] = attrDirectory
	} else {
		slot[11] = attrArchive
	}

	binary.LittleEndian.PutUint16(slot[14:16], fixedTime)
	binary.LittleEndian.PutUint16(slot[16:18], fixedDate)
	binary.LittleEndian.PutUint16(slot[18:20], fixedDate)
	binary.LittleEndian.PutUint16(slot[20:22], uint16(e.startCluster>>16))
	binary.LittleEndian.PutUint16(slot[22:24], fixedTime)
	binary.LittleEndian.PutUint16(slot[24:26], fixedDate)
	binary.LittleEndian.PutUint16(slot[26:28], uint16(e.startCluster&0xFFFF))

	size := e.size
	if e.isDirectory {
		size = 0
	}
	binary.LittleEndian.PutUint32(slot[28:32], size)
}

// dotShortName returns the fixed 11-byte short name for "." (n=1) or ".."
// (n=2): n literal dots followed by spaces. It is not a general 8.3 name
// and must not be produced via pad83, which would split on the dot.
func dotShortName(n int) [11]byte {
	var out [11]byte
	for i := range out {
		if i < n {
			out[i] = '.'
		} else {
			out[i] = ' '
		}
	}
	return out
}

// writeDotEntry fills slot with a "." or ".." pseudo-entry pointing at
// startCluster, with the supplied 11-byte padded name.
func writeDotEntry(slot []byte, name [11]byte, startCluster uint32) {
	clear(slot[:32])
	copy(slot[0:11], name[:])
	slot[11] = attrDirectory
	binary.LittleEndian.PutUint16(slot[14:16], fixedTime)
	binary.LittleEndian.PutUint16(slot[16:18], fixedDate)
	binary.LittleEndian.PutUint16(slot[18:20], fixedDate)
	binary.LittleEndian.PutUint16(slot[20:22], uint16(startCluster>>16))
	binary.LittleEndian.PutUint16(slot[22:24], fixedTime)
	binary.LittleEndian.PutUint16(slot[24:26], fixedDate)
	binary.LittleEndian.PutUint16(slot[26:28], uint16(startCluster&0xFFFF))
}

// longNameEntryCount returns ceil(len(name)/13) in UTF-16 code units, the
// number of VFAT long-name slots a name occupies.
func longNameEntryCount(codeUnits []uint16) int {
	return (len(codeUnits) + 12) / 13
}

// writeLongNameEntries emits the long-name entries for e (descending
// sequence order, highest first) into successive 32-byte slots, then the
// paired short entry, returning the number of slots consumed. If the
// long-name slots and the short entry do not all fit below maxSlots (the
// 16-entry directory cluster capacity), it writes nothing and returns 0.
func writeLongNameEntries(buf []byte, slotOffset, maxSlots int, e *entry) int {
	if e.longName == "" {
		if slotOffset+1 > maxSlots {
			return 0
		}
		writeShortEntry(buf[slotOffset*32:], e)
		return 1
	}

	codeUnits := utf16.Encode([]rune(e.longName))
	numEntries := longNameEntryCount(codeUnits)
	if slotOffset+numEntries+1 > maxSlots {
		return 0
	}

	checksum := shortNameChecksum(e.shortName)

	slot := slotOffset
	for seq := numEntries; seq >= 1; seq-- {
		start := (seq - 1) * 13
		entrySlot := buf[slot*32 : slot*32+32]
		clear(entrySlot)

		seqByte := byte(seq)
		if seq == numEntries {
			seqByte |= 0x40
		}
		entrySlot[0] = seqByte
		entrySlot[11] = 0x0F
		entrySlot[12] = 0
		entrySlot[13] = checksum
		binary.LittleEndian.PutUint16(entrySlot[26:28], 0)

		chunk := make([]uint16, 13)
		for i := 0; i < 13; i++ {
			idx := start + i
			switch {
			case idx < len(codeUnits):
				chunk[i] = codeUnits[idx]
			case idx == len(codeUnits):
				chunk[i] = 0x0000
			default:
				chunk[i] = 0xFFFF
			}
		}
		for i, u := range chunk[0:5] {
			binary.LittleEndian.PutUint16(entrySlot[1+i*2:], u)
		}
		for i, u := range chunk[5:11] {
			binary.LittleEndian.PutUint16(entrySlot[14+i*2:], u)
		}
		for i, u := range chunk[11:13] {
			binary.LittleEndian.PutUint16(entrySlot[28+i*2:], u)
		}

		slot++
	}

	writeShortEntry(buf[slot*32:], e)
	return numEntries + 1
}

// writeDirectoryCluster fills buf with the contents of one directory's
// single cluster. selfIndex is rootIndex for the root directory, or the
// entries-table index of a subdirectory.
func (fs *Filesystem) writeDirectoryCluster(buf []byte, selfIndex int) {
	clear(buf[:SectorSize])

	slot := 0
	if selfIndex != rootIndex {
		self := fs.entries[selfIndex]

		parentCluster := uint32(RootCluster)
		if self.parentIndex != rootIndex {
			parentCluster = fs.entries[self.parentIndex].startCluster
		}

		writeDotEntry(buf[0:32], dotShortName(1), self.startCluster)
		writeDotEntry(buf[32:64], dotShortName(2), parentCluster)
		slot = 2
	}

	for i, e := range fs.entries {
		if e.parentIndex != selfIndex {
			continue
		}
		_ = i
		n := writeLongNameEntries(buf, slot, DirEntriesPerCluster, e)
		slot += n
	}
}
