package scsi_test

import (
	"encoding/binary"
	"testing"

	"github.com/ipxeusb/vdisk/internal/scsi"
	"github.com/stretchr/testify/require"
)

type fakeDisk struct {
	sectors map[uint32][]byte
}

func (d *fakeDisk) ReadSector(lba uint32, buf []byte) {
	clear(buf)
	if data, ok := d.sectors[lba]; ok {
		copy(buf, data)
	}
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{sectors: map[uint32][]byte{}}
}

// TestE5_ReadCapacity checks the READ CAPACITY(10) reply against a known disk size.
func TestE5_ReadCapacity(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 262144)

	err := target.ProcessCommand([]byte{0x25, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, scsi.SmallReply, target.Mode())

	out := make([]byte, 8)
	n := target.TransmitData(out)
	require.Equal(t, 8, n)
	require.Equal(t, uint32(0x0003FFFF), binary.BigEndian.Uint32(out[0:4]))
	require.Equal(t, uint32(0x00000200), binary.BigEndian.Uint32(out[4:8]))
}

// TestE6_WriteRefused checks that WRITE(10) is refused with a DATA_PROTECT sense.
func TestE6_WriteRefused(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 262144)

	err := target.ProcessCommand([]byte{0x2A, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)

	cmdErr, ok := err.(*scsi.CommandError)
	require.True(t, ok)
	require.Equal(t, byte(0x07), cmdErr.SenseKey)
	require.Equal(t, byte(0x27), cmdErr.ASC)

	require.NoError(t, target.ProcessCommand([]byte{0x03, 0, 0, 0, 18, 0}))
	out := make([]byte, 18)
	n := target.TransmitData(out)
	require.Equal(t, 18, n)
	require.Equal(t, byte(0x07), out[2])
	require.Equal(t, byte(0x27), out[12])

	// Sense clears after being read.
	require.NoError(t, target.ProcessCommand([]byte{0x03, 0, 0, 0, 18, 0}))
	out2 := make([]byte, 18)
	target.TransmitData(out2)
	require.Equal(t, byte(0x00), out2[2])
}

func TestInquiry_StandardReply(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 1000)
	require.NoError(t, target.ProcessCommand([]byte{0x12, 0, 0, 0, 36, 0}))

	out := make([]byte, 36)
	n := target.TransmitData(out)
	require.Equal(t, 36, n)
	require.Equal(t, byte(0x80), out[1], "removable bit should be set")
	require.Equal(t, "FLIPPER ", string(out[8:16]))
	require.Equal(t, "Boot2Flipper    ", string(out[16:32]))
	require.Equal(t, "1.0 ", string(out[32:36]))
}

func TestInquiry_VPDSupportedPages(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 1000)
	require.NoError(t, target.ProcessCommand([]byte{0x12, 0x01, 0x00, 0, 6, 0}))

	out := make([]byte, 6)
	target.TransmitData(out)
	require.Equal(t, []byte{0x00, 0x80}, out[4:6])
}

func TestInquiry_VPDUnitSerialNumber(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 1000)
	require.NoError(t, target.ProcessCommand([]byte{0x12, 0x01, 0x80, 0, 8, 0}))

	out := make([]byte, 8)
	target.TransmitData(out)
	require.Equal(t, "FLP0", string(out[4:8]))
}

func TestUnknownOpcode_FailsIllegalRequest(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 1000)
	err := target.ProcessCommand([]byte{0xFF, 0, 0, 0, 0, 0})
	require.Error(t, err)

	cmdErr := err.(*scsi.CommandError)
	require.Equal(t, byte(0x05), cmdErr.SenseKey)
	require.Equal(t, byte(0x20), cmdErr.ASC)
}

func TestRead10_OutOfRangeFailsIllegalRequest(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 100)
	cdb := make([]byte, 10)
	cdb[0] = 0x28
	binary.BigEndian.PutUint32(cdb[2:6], 95)
	binary.BigEndian.PutUint16(cdb[7:9], 10) // would run past LBA 100

	err := target.ProcessCommand(cdb)
	require.Error(t, err)
	cmdErr := err.(*scsi.CommandError)
	require.Equal(t, byte(0x05), cmdErr.SenseKey)
	require.Equal(t, byte(0x21), cmdErr.ASC)
}

func TestRead10_StreamsSectorsInOrder(t *testing.T) {
	disk := newFakeDisk()
	sectorA := make([]byte, 512)
	sectorA[0] = 0xAA
	sectorB := make([]byte, 512)
	sectorB[0] = 0xBB
	disk.sectors[10] = sectorA
	disk.sectors[11] = sectorB

	target := scsi.NewTarget(disk, 1000)
	cdb := make([]byte, 10)
	cdb[0] = 0x28
	binary.BigEndian.PutUint32(cdb[2:6], 10)
	binary.BigEndian.PutUint16(cdb[7:9], 2)

	require.NoError(t, target.ProcessCommand(cdb))
	require.Equal(t, scsi.SectorStream, target.Mode())

	out := make([]byte, 1024)
	n := target.TransmitData(out)
	require.Equal(t, 1024, n)
	require.Equal(t, byte(0xAA), out[0])
	require.Equal(t, byte(0xBB), out[512])

	// Exhausted: further calls return 0.
	require.Equal(t, 0, target.TransmitData(make([]byte, 10)))
}

func TestRead10_PartialTransmitDataCallsAcrossSectorBoundary(t *testing.T) {
	disk := newFakeDisk()
	sector := make([]byte, 512)
	for i := range sector {
		sector[i] = byte(i)
	}
	disk.sectors[0] = sector

	target := scsi.NewTarget(disk, 1000)
	cdb := make([]byte, 10)
	cdb[0] = 0x28
	binary.BigEndian.PutUint16(cdb[7:9], 1)
	require.NoError(t, target.ProcessCommand(cdb))

	first := make([]byte, 100)
	n1 := target.TransmitData(first)
	require.Equal(t, 100, n1)

	second := make([]byte, 500)
	n2 := target.TransmitData(second)
	require.Equal(t, 412, n2, "only the remaining 412 bytes of the single sector")
}

func TestModeSense_WriteProtectBitSet(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 1000)
	require.NoError(t, target.ProcessCommand([]byte{0x1A, 0, 0, 0, 4, 0}))
	out := make([]byte, 4)
	target.TransmitData(out)
	require.Equal(t, byte(0x80), out[2]&0x80)
}

func TestStartStopAndPreventAllow_AckOnly(t *testing.T) {
	target := scsi.NewTarget(newFakeDisk(), 1000)
	require.NoError(t, target.ProcessCommand([]byte{0x1B, 0, 0, 0, 0, 0}))
	require.Equal(t, scsi.Noop, target.Mode())

	require.NoError(t, target.ProcessCommand([]byte{0x1E, 0, 0, 0, 0, 0}))
	require.Equal(t, scsi.Noop, target.Mode())
}
