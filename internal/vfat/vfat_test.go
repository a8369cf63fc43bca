package vfat_test

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/ipxeusb/vdisk/internal/layout"
	"github.com/ipxeusb/vdisk/internal/vfat"
	"github.com/stretchr/testify/require"
)

func readSector(t *testing.T, fs *vfat.Filesystem, lba uint32) []byte {
	t.Helper()
	buf := make([]byte, vfat.SectorSize)
	fs.ReadSector(lba, buf)
	require.Len(t, buf, vfat.SectorSize)
	return buf
}

// TestE2_RootDirectorySingleFile covers a single memory-backed file
// declared directly under the root directory.
func TestE2_RootDirectorySingleFile(t *testing.T) {
	fs := vfat.Create()
	fs.SetScheme(layout.GptOnly)
	require.NoError(t, fs.AddMemoryFile("HELLO.TXT", "", []byte("hi")))

	buf := readSector(t, fs, dataStartLBAForTest(fs))

	require.Equal(t, "HELLO   TXT", string(buf[0:11]))
	require.Equal(t, byte(0x20), buf[11])
	require.Equal(t, uint16(0x0000), binary.LittleEndian.Uint16(buf[20:22]))
	require.Equal(t, uint16(0x0003), binary.LittleEndian.Uint16(buf[26:28]))
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[28:32]))
}

// TestE3_LongFilename covers a file whose display name requires a VFAT
// long-name entry distinct from its 8.3 short name.
func TestE3_LongFilename(t *testing.T) {
	fs := vfat.Create()
	require.NoError(t, fs.AddMemoryFile("AUTOEXEC.IPX", "autoexec.ipxe", []byte("#!ipxe\n")))

	buf := readSector(t, fs, dataStartLBAForTest(fs))

	require.Equal(t, byte(0x41), buf[0], "sequence byte should be last(0x40)|1")
	require.Equal(t, byte(0x0F), buf[11])

	shortSlot := buf[32:64]
	require.Equal(t, "AUTOEXECIPX", string(shortSlot[0:11]))

	expectedChecksum := checksumOf(shortSlot[0:11])
	require.Equal(t, expectedChecksum, buf[13])
}

func checksumOf(short []byte) byte {
	var sum byte
	for _, b := range short {
		sum = ((sum & 1) << 7) + (sum >> 1) + b
	}
	return sum
}

// TestE4_SubdirectoryPathCreation covers nested directory creation via
// AddFileUnderPath.
func TestE4_SubdirectoryPathCreation(t *testing.T) {
	fs := vfat.Create()
	reader := vfat.NewMemoryReader()
	reader.Put("/sd/BOOTX64.EFI", make([]byte, 1<<20))
	fs.SetByteRangeReader(reader)

	require.NoError(t, fs.AddFileUnderPath("EFI/BOOT", "BOOTX64.EFI", "", "/sd/BOOTX64.EFI"))

	// EFI directory should have been allocated cluster 3 (first after root=2).
	buf := readSector(t, fs, dataStartLBAForTest(fs)+1) // cluster 3 -> sub-offset 1 from cluster 2
	require.Equal(t, ".          ", string(buf[0:11]))
	require.Equal(t, "..         ", string(buf[32:64])[0:11])
	require.Equal(t, "BOOT       ", string(buf[64:75]))
}

func TestClusterAllocation_DisjointAndContiguous(t *testing.T) {
	fs := vfat.Create()
	require.NoError(t, fs.AddDirectory("A"))
	require.NoError(t, fs.AddMemoryFile("B.TXT", "", make([]byte, 1500)))
	require.NoError(t, fs.AddDirectory("C"))

	// A: cluster 3 (1 cluster). B: needs ceil(1500/512)=3 clusters starting at 4.
	// C: cluster 7.
	buf := readSector(t, fs, dataStartLBAForTest(fs)+5) // cluster 7
	require.Equal(t, ".          ", string(buf[0:11]))
	require.Equal(t, uint16(7), binary.LittleEndian.Uint16(buf[26:28]), "C should start at cluster 7")

	fat := readSector(t, fs, vfat.PartitionStartLBA+vfat.ReservedSectors)
	require.Equal(t, uint32(0x0FFFFFFF), binary.LittleEndian.Uint32(fat[12:16])) // A: cluster 3 EOC
	require.Equal(t, uint32(5), binary.LittleEndian.Uint32(fat[16:20]))          // B: cluster 4 -> 5
	require.Equal(t, uint32(6), binary.LittleEndian.Uint32(fat[20:24]))          // B: cluster 5 -> 6
	require.Equal(t, uint32(0x0FFFFFFF), binary.LittleEndian.Uint32(fat[24:28])) // B: cluster 6 EOC
	require.Equal(t, uint32(0x0FFFFFFF), binary.LittleEndian.Uint32(fat[28:32])) // C: cluster 7 EOC
}

func TestFATChain_MatchesClusterRun(t *testing.T) {
	fs := vfat.Create()
	data := make([]byte, 1500) // ceil(1500/512) = 3 clusters, starting at cluster 3
	require.NoError(t, fs.AddMemoryFile("B.TXT", "", data))

	fatStart := uint32(vfat.PartitionStartLBA + vfat.ReservedSectors)
	buf := readSector(t, fs, fatStart)

	require.Equal(t, uint32(0x0FFFFFF8), binary.LittleEndian.Uint32(buf[0:4]))
	require.Equal(t, uint32(0x0FFFFFFF), binary.LittleEndian.Uint32(buf[4:8]))
	require.Equal(t, uint32(0x0FFFFFFF), binary.LittleEndian.Uint32(buf[8:12])) // root
	require.Equal(t, uint32(4), binary.LittleEndian.Uint32(buf[12:16]))         // cluster 3 -> 4
	require.Equal(t, uint32(5), binary.LittleEndian.Uint32(buf[16:20]))         // cluster 4 -> 5
	require.Equal(t, uint32(0x0FFFFFFF), binary.LittleEndian.Uint32(buf[20:24])) // cluster 5 EOC
}

func TestReadSector_AlwaysReturnsFullSector(t *testing.T) {
	fs := vfat.Create()
	require.NoError(t, fs.AddMemoryFile("A.TXT", "", []byte("x")))

	for _, lba := range []uint32{0, 1, 2, 33, vfat.PartitionStartLBA, vfat.TotalSectors - 1, 123456} {
		buf := make([]byte, vfat.SectorSize)
		fs.ReadSector(uint32(lba), buf)
		require.Len(t, buf, vfat.SectorSize)
	}
}

func TestRoundTrip_FileContentMatchesSource(t *testing.T) {
	fs := vfat.Create()
	want := make([]byte, 1300)
	for i := range want {
		want[i] = byte(i % 251)
	}
	require.NoError(t, fs.AddMemoryFile("DATA.BIN", "", want))

	// The file occupies clusters 3-5, one sector past the root directory.
	fileStart := dataStartLBAForTest(fs) + 1
	got := make([]byte, 0, len(want))
	for sector := uint32(0); sector < 3; sector++ {
		buf := readSector(t, fs, fileStart+sector)
		got = append(got, buf...)
	}
	require.Equal(t, want, got[:len(want)])
}

func TestReadNotify_FiresOncePerFile(t *testing.T) {
	fs := vfat.Create()
	require.NoError(t, fs.AddMemoryFile("A.TXT", "hello.txt", []byte("hi")))

	var calls []string
	fs.SetReadCallback(func(name string) { calls = append(calls, name) })

	fileStart := dataStartLBAForTest(fs) + 1 // cluster 3, after the root directory
	readSector(t, fs, fileStart)
	readSector(t, fs, fileStart)

	require.Equal(t, []string{"hello.txt"}, calls)
}

func TestLongName_RoundTripsThroughUTF16(t *testing.T) {
	name := "a-pretty-long-ipxe-boot-script-name.ipxe"
	codeUnits := utf16.Encode([]rune(name))
	require.Greater(t, len(codeUnits), 13, "test should exercise multiple long-name entries")

	fs := vfat.Create()
	require.NoError(t, fs.AddMemoryFile("SCRIPT~1.IPX", name, []byte("#!ipxe\n")))
	buf := readSector(t, fs, dataStartLBAForTest(fs))

	// Reassemble the name from the long-name slots preceding the 8.3 entry.
	numEntries := (len(codeUnits) + 12) / 13
	decoded := make([]uint16, numEntries*13)
	for slot := 0; slot < numEntries; slot++ {
		e := buf[slot*32 : slot*32+32]
		require.Equal(t, byte(0x0F), e[11])
		seq := int(e[0] & 0x1F)
		for i, off := range []int{1, 3, 5, 7, 9, 14, 16, 18, 20, 22, 24, 28, 30} {
			decoded[(seq-1)*13+i] = binary.LittleEndian.Uint16(e[off:])
		}
	}
	require.Equal(t, uint16(0), decoded[len(codeUnits)], "name should be NUL-terminated")
	require.Equal(t, name, string(utf16.Decode(decoded[:len(codeUnits)])))
}

// dataStartLBAForTest mirrors the package-private dataStartLBA computation
// using only the exported geometry constants, so tests do not need access
// to package internals.
func dataStartLBAForTest(fs *vfat.Filesystem) uint32 {
	// GPT is the default scheme.
	partSectors := uint32(vfat.TotalSectors - vfat.PartitionStartLBA - layout.GPTBackupArraySectors - 1)
	fatSize := fatSizeSectorsForTest(partSectors)
	return vfat.PartitionStartLBA + vfat.ReservedSectors + vfat.NumFATs*fatSize
}

func fatSizeSectorsForTest(partSectors uint32) uint32 {
	fatSize := uint32(1)
	for i := 0; i < 32; i++ {
		dataSectors := partSectors - vfat.ReservedSectors - fatSize*vfat.NumFATs
		clusterCount := dataSectors / vfat.SectorsPerCluster
		next := (clusterCount*4 + vfat.SectorSize - 1) / vfat.SectorSize
		if next == fatSize {
			break
		}
		fatSize = next
	}
	return fatSize
}
