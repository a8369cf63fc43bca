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

// Package vfat synthesizes a FAT32 volume, sector by sector, from a small
// declarative set of files and directories. It never materializes the
// volume on disk: ReadSector computes the bytes for any LBA on demand.
package vfat

import "github.com/ipxeusb/vdisk/internal/layout"

const (
	SectorSize        = layout.SectorSize
	TotalSectors       = 262144
	SectorsPerCluster  = 1
	ReservedSectors    = 32
	NumFATs            = 2
	PartitionStartLBA  = 2048

	// MaxEntries bounds the declarative file/directory table, per spec.
	MaxEntries = 16

	// RootCluster is the fixed first cluster of the root directory.
	RootCluster = 2

	// DirEntriesPerCluster is the hard capacity of one directory cluster:
	// 512 bytes / 32-byte slot.
	DirEntriesPerCluster = SectorSize / 32
)

// gptBackupReservedSectors is the number of trailing sectors reserved for
// the GPT backup header and partition array (33 = 32-sector array + 1
// header sector).
const gptBackupReservedSectors = layout.GPTBackupArraySectors + 1

// partitionSectors returns the usable length of the FAT32 partition for the
// given scheme: MBR uses every sector through the end of the disk; GPT
// reserves the last 33 sectors for its backup copy.
func partitionSectors(scheme layout.Scheme) uint32 {
	total := uint32(TotalSectors - PartitionStartLBA)
	if scheme == layout.GptOnly {
		total -= gptBackupReservedSectors
	}
	return total
}

// fatSizeSectors computes the sectors-per-FAT value the BPB must declare,
// converging the standard mkfs.fat fixed point: the FAT must be big enough
// to address every data cluster, but the data region shrinks as the FAT
// (stored twice) grows.
func fatSizeSectors(partSectors uint32) uint32 {
	fatSize := uint32(1)
	for i := 0; i < 32; i++ {
		dataSectors := partSectors - ReservedSectors - fatSize*NumFATs
		clusterCount := dataSectors / SectorsPerCluster
		next := (clusterCount*4 + SectorSize - 1) / SectorSize
		if next == fatSize {
			break
		}
		fatSize = next
	}
	return fatSize
}

// dataStartLBA is the absolute LBA of cluster 2, the first data cluster.
func dataStartLBA(fatSize uint32) uint32 {
	return PartitionStartLBA + ReservedSectors + NumFATs*fatSize
}
