package vfat

import "github.com/ipxeusb/vdisk/internal/layout"

// ReadSector fills buf (must be SectorSize bytes) with the content of the
// given LBA. It always succeeds: an LBA with no assignment yields a
// zero-filled sector.
func (fs *Filesystem) ReadSector(lba uint32, buf []byte) {
	clear(buf[:SectorSize])

	partSectors := partitionSectors(fs.scheme)
	fatSize := fs.fatSize()

	switch {
	case lba == 0:
		fs.writeLBA0(buf, partSectors)
		return

	case fs.scheme == layout.GptOnly && lba == 1:
		layout.WriteGPTHeaderPrimary(buf, TotalSectors, PartitionStartLBA, partSectors)
		return

	case fs.scheme == layout.GptOnly && lba == 2:
		layout.WriteGPTPartitionArray(buf, PartitionStartLBA, partSectors)
		return

	case fs.scheme == layout.GptOnly && lba >= 3 && lba <= 33:
		return // zero: rest of primary partition array

	case lba >= 3 && lba < PartitionStartLBA:
		return // zero: non-GPT filler region

	case fs.scheme == layout.GptOnly && fs.isBackupArrayFirstSector(lba):
		layout.WriteGPTPartitionArray(buf, PartitionStartLBA, partSectors)
		return

	case fs.scheme == layout.GptOnly && fs.isBackupArrayRestSector(lba):
		return // zero: backup array padding, mirrors only the first sector

	case fs.scheme == layout.GptOnly && lba == TotalSectors-1:
		layout.WriteGPTHeaderBackup(buf, TotalSectors, PartitionStartLBA, partSectors)
		return

	case lba == PartitionStartLBA:
		fs.writeBootSector(buf)
		return

	case lba == PartitionStartLBA+1:
		writeFSInfo(buf)
		return

	case lba == PartitionStartLBA+6:
		fs.writeBootSector(buf)
		return

	case lba == PartitionStartLBA+7:
		writeFSInfo(buf)
		return
	}

	fat1Start := uint32(PartitionStartLBA + ReservedSectors)
	fat2Start := fat1Start + fatSize
	dataStart := dataStartLBA(fatSize)

	switch {
	case lba >= fat1Start && lba < fat1Start+fatSize:
		fs.writeFATSector(buf, lba-fat1Start)
		return

	case lba >= fat2Start && lba < fat2Start+fatSize:
		fs.writeFATSector(buf, lba-fat2Start)
		return

	case lba >= dataStart:
		fs.readDataSector(buf, lba, dataStart)
		return
	}
}

func (fs *Filesystem) writeLBA0(buf []byte, partSectors uint32) {
	if fs.scheme == layout.GptOnly {
		layout.WriteProtectiveMBR(buf, TotalSectors)
		return
	}
	layout.WriteMBR(buf, PartitionStartLBA, partSectors)
}

func (fs *Filesystem) isBackupArrayFirstSector(lba uint32) bool {
	return lba == TotalSectors-1-layout.GPTBackupArraySectors
}

func (fs *Filesystem) isBackupArrayRestSector(lba uint32) bool {
	start := uint32(TotalSectors - 1 - layout.GPTBackupArraySectors)
	end := uint32(TotalSectors - 2) // last sector before the backup header itself
	return lba > start && lba <= end
}

func (fs *Filesystem) readDataSector(buf []byte, lba, dataStart uint32) {
	rel := lba - dataStart
	cluster := rel/SectorsPerCluster + RootCluster
	subSector := rel % SectorsPerCluster

	if cluster == RootCluster && subSector == 0 {
		fs.writeDirectoryCluster(buf, rootIndex)
		return
	}

	for i, e := range fs.entries {
		if !e.isDirectory || e.startCluster != cluster {
			continue
		}
		fs.writeDirectoryCluster(buf, i)
		return
	}

	for _, e := range fs.entries {
		if e.isDirectory || cluster < e.startCluster || cluster >= e.startCluster+e.clusterCount {
			continue
		}
		fs.readFileSector(buf, e, cluster, subSector)
		return
	}
}

func (fs *Filesystem) readFileSector(buf []byte, e *entry, cluster, subSector uint32) {
	if !e.notified {
		e.notified = true
		if fs.notify != nil {
			fs.notify(e.displayName())
		}
	}

	clusterIndex := cluster - e.startCluster
	byteOffset := int64(clusterIndex*SectorsPerCluster+subSector) * SectorSize

	if byteOffset >= int64(e.size) {
		return // trailing sector entirely past EOF: zero
	}

	switch src := e.src.(type) {
	case memorySource:
		n := copy(buf[:SectorSize], src.data[byteOffset:])
		_ = n // remainder stays zero: trailing partial sector
	case externalSource:
		if fs.reader == nil {
			return
		}
		_, _ = fs.reader.ReadAt(src.path, byteOffset, buf[:SectorSize])
	}
}
