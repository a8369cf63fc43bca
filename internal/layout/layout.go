// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package layout synthesizes the disk-level sectors (MBR, protective MBR,
// GPT primary/backup header and partition array) that precede the FAT32
// partition on the emulated disk. Every function here fills a caller-owned
// 512-byte buffer; none of them allocate the sector itself.
package layout

import "encoding/binary"

const SectorSize = 512

// Scheme selects which partitioning scheme LBA 0-33 present to the host.
type Scheme int

const (
	MbrOnly Scheme = iota
	GptOnly
)

// ESP (EFI System Partition) type GUID, byte order as stored on disk
// (mixed-endian per the GPT spec: first three fields little-endian).
var espTypeGUID = [16]byte{
	0x28, 0x73, 0x2A, 0xC1, 0x1F, 0xF8, 0xD2, 0x11,
	0xBA, 0x4B, 0x00, 0xA0, 0xC9, 0x3E, 0xC9, 0x3B,
}

var diskGUID = [16]byte{
	0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0,
	0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
}

var partitionGUID = [16]byte{
	0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11,
	0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99,
}

const (
	partitionEntryCount = 128
	partitionEntrySize  = 128
	partitionArrayBytes = partitionEntryCount * partitionEntrySize // 16384

	gptHeaderSize  = 92
	gptFirstUsable = 34
)

// GPTBackupArraySectors is the number of sectors occupied by the backup
// partition array (the array itself, not the backup header).
const GPTBackupArraySectors = partitionArrayBytes / SectorSize // 32

// chs computes a CHS (Cylinder-Head-Sector) address for an LBA using the
// conventional 255 heads / 63 sectors-per-track geometry used by MBR tools.
// When the LBA does not fit in 10-bit cylinder addressing, the CHS fields
// saturate to the standard "too big" value (0xFE, 0xFF, 0xFF).
func chs(lba uint32) (head, sector, cylinder byte) {
	const headsPerCylinder = 255
	const sectorsPerTrack = 63

	cyl := lba / (headsPerCylinder * sectorsPerTrack)
	if cyl > 1023 {
		return 0xFE, 0xFF, 0xFF
	}
	h := (lba / sectorsPerTrack) % headsPerCylinder
	s := (lba % sectorsPerTrack) + 1
	return byte(h), byte(s) | byte((cyl>>8)<<6), byte(cyl)
}

// WriteMBR fills buf (must be SectorSize long) with the LBA-0 sector for a
// pure-MBR disk: a single bootable 0x0C (FAT32 LBA) partition entry spanning
// [partitionStartLBA, partitionStartLBA+partitionSectors).
func WriteMBR(buf []byte, partitionStartLBA, partitionSectors uint32) {
	clear(buf[:SectorSize])

	const entryOff = 446
	buf[entryOff] = 0x80 // bootable

	h, s, c := chs(partitionStartLBA)
	buf[entryOff+1] = h
	buf[entryOff+2] = s
	buf[entryOff+3] = c

	buf[entryOff+4] = 0x0C // FAT32, LBA addressing

	endLBA := partitionStartLBA + partitionSectors - 1
	h, s, c = chs(endLBA)
	buf[entryOff+5] = h
	buf[entryOff+6] = s
	buf[entryOff+7] = c

	binary.LittleEndian.PutUint32(buf[entryOff+8:], partitionStartLBA)
	binary.LittleEndian.PutUint32(buf[entryOff+12:], partitionSectors)

	buf[510] = 0x55
	buf[511] = 0xAA
}

// WriteProtectiveMBR fills buf with the LBA-0 sector for a GPT disk: a
// single non-bootable 0xEE entry covering the whole disk but the first
// sector, per the GPT specification.
func WriteProtectiveMBR(buf []byte, totalSectors uint32) {
	clear(buf[:SectorSize])

	const entryOff = 446
	buf[entryOff] = 0x00
	buf[entryOff+1] = 0x00
	buf[entryOff+2] = 0x02
	buf[entryOff+3] = 0x00
	buf[entryOff+4] = 0xEE
	buf[entryOff+5] = 0xFF
	buf[entryOff+6] = 0xFF
	buf[entryOff+7] = 0xFF

	binary.LittleEndian.PutUint32(buf[entryOff+8:], 1)

	protectiveSectors := totalSectors - 1
	if totalSectors == 0 {
		protectiveSectors = 0xFFFFFFFF
	}
	binary.LittleEndian.PutUint32(buf[entryOff+12:], protectiveSectors)

	buf[510] = 0x55
	buf[511] = 0xAA
}

// buildPartitionEntry writes the one populated 128-byte GPT partition-array
// entry (the EFI System Partition) at the start of entry.
func buildPartitionEntry(entry []byte, partitionStartLBA, partitionSectors uint32) {
	clear(entry[:partitionEntrySize])

	copy(entry[0:16], espTypeGUID[:])
	copy(entry[16:32], partitionGUID[:])

	binary.LittleEndian.PutUint64(entry[32:40], uint64(partitionStartLBA))
	lastLBA := uint64(partitionStartLBA) + uint64(partitionSectors) - 1
	binary.LittleEndian.PutUint64(entry[40:48], lastLBA)

	entry[48] = 0x01 // required-partition attribute bit

	const name = "EFI System"
	for i, r := range name {
		binary.LittleEndian.PutUint16(entry[56+i*2:], uint16(r))
	}
}

// WriteGPTPartitionArray fills buf with the first sector of the 128-entry
// GPT partition array: one populated ESP entry followed by zeroed entries.
// The remaining 31 sectors of the array are all-zero and do not need a
// dedicated writer.
func WriteGPTPartitionArray(buf []byte, partitionStartLBA, partitionSectors uint32) {
	clear(buf[:SectorSize])
	buildPartitionEntry(buf[:partitionEntrySize], partitionStartLBA, partitionSectors)
}

// partitionArrayCRC computes the CRC32 of the full 16KiB partition array
// (128 entries x 128 bytes), as required by the GPT header's own CRC field.
func partitionArrayCRC(partitionStartLBA, partitionSectors uint32) uint32 {
	arr := make([]byte, partitionArrayBytes)
	buildPartitionEntry(arr[:partitionEntrySize], partitionStartLBA, partitionSectors)
	return ComputeCRC32IEEE(arr)
}

// gptHeaderFields are the fields that differ between the primary and the
// backup GPT header; everything else is identical by spec.
type gptHeaderFields struct {
	currentLBA    uint64
	backupLBA     uint64
	partArrayLBA  uint64
	totalSectors  uint32
	partStartLBA  uint32
	partSectors   uint32
}

func writeGPTHeader(buf []byte, f gptHeaderFields) {
	clear(buf[:SectorSize])

	copy(buf[0:8], "EFI PART")
	binary.LittleEndian.PutUint32(buf[8:12], 0x00010000) // revision 1.0
	binary.LittleEndian.PutUint32(buf[12:16], gptHeaderSize)
	// buf[16:20] CRC32 left zero for the CRC computation below.

	binary.LittleEndian.PutUint64(buf[24:32], f.currentLBA)
	binary.LittleEndian.PutUint64(buf[32:40], f.backupLBA)

	firstUsable := uint64(gptFirstUsable)
	lastUsable := uint64(f.totalSectors) - gptFirstUsable
	binary.LittleEndian.PutUint64(buf[40:48], firstUsable)
	binary.LittleEndian.PutUint64(buf[48:56], lastUsable)

	copy(buf[56:72], diskGUID[:])

	binary.LittleEndian.PutUint64(buf[72:80], f.partArrayLBA)
	binary.LittleEndian.PutUint32(buf[80:84], partitionEntryCount)
	binary.LittleEndian.PutUint32(buf[84:88], partitionEntrySize)

	crc := partitionArrayCRC(f.partStartLBA, f.partSectors)
	binary.LittleEndian.PutUint32(buf[88:92], crc)

	headerCRC := ComputeCRC32IEEE(buf[:gptHeaderSize])
	binary.LittleEndian.PutUint32(buf[16:20], headerCRC)
}

// WriteGPTHeaderPrimary fills buf with the primary GPT header at LBA 1.
func WriteGPTHeaderPrimary(buf []byte, totalSectors, partitionStartLBA, partitionSectors uint32) {
	writeGPTHeader(buf, gptHeaderFields{
		currentLBA:   1,
		backupLBA:    uint64(totalSectors) - 1,
		partArrayLBA: 2,
		totalSectors: totalSectors,
		partStartLBA: partitionStartLBA,
		partSectors:  partitionSectors,
	})
}

// WriteGPTHeaderBackup fills buf with the backup GPT header at the last LBA
// of the disk. Every field matches the primary header except the swapped
// current/backup LBAs and the backup partition-array's starting LBA.
func WriteGPTHeaderBackup(buf []byte, totalSectors, partitionStartLBA, partitionSectors uint32) {
	writeGPTHeader(buf, gptHeaderFields{
		currentLBA:   uint64(totalSectors) - 1,
		backupLBA:    1,
		partArrayLBA: uint64(totalSectors) - GPTBackupArraySectors - 1,
		totalSectors: totalSectors,
		partStartLBA: partitionStartLBA,
		partSectors:  partitionSectors,
	})
}
