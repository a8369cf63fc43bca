// Package scsi implements the subset of SCSI Block Commands a removable
// USB mass-storage device needs to mount read-only on Windows, macOS, and
// Linux: opcode decode, reply synthesis, and sense-data reporting. It pulls
// sector bytes from a SectorReader rather than touching a real block device,
// mirroring the byte-field style internal/layout and internal/vfat use for
// synthesised disk structures.
package scsi

import "encoding/binary"

// SectorReader is the read side of a virtual disk: fill buf (exactly 512
// bytes) with the content at the given LBA. Implemented by *vfat.Filesystem.
type SectorReader interface {
	ReadSector(lba uint32, buf []byte)
}

// Mode is the data-phase tag produced by ProcessCommand.
type Mode int

const (
	Noop Mode = iota
	SmallReply
	SectorStream
)

// Sense key / ASC pairs.
const (
	senseNoSense     = 0x00
	senseNotReady    = 0x02
	senseIllegalReq  = 0x05
	senseDataProtect = 0x07

	ascNone              = 0x00
	ascInvalidCmdOpcode  = 0x20
	ascInvalidFieldInCDB = 0x24
	ascLBAOutOfRange     = 0x21
	ascWriteProtected    = 0x27
	ascMediumNotPresent  = 0x3A
)

// Opcodes supported by this target.
const (
	opTestUnitReady      = 0x00
	opRequestSense       = 0x03
	opInquiry            = 0x12
	opModeSense6         = 0x1A
	opStartStopUnit      = 0x1B
	opPreventAllowRemove = 0x1E
	opReadFormatCap      = 0x23
	opReadCapacity10     = 0x25
	opRead10             = 0x28
	opWrite10            = 0x2A
	opModeSense10        = 0x5A
)

const blockSize = 512

// sense is the stored diagnostic pair surfaced by the next REQUEST SENSE.
type sense struct {
	key byte
	asc byte
}

// Target is a per-session SCSI command processor. It holds no goroutines
// and performs no I/O of its own beyond SectorReader.ReadSector; it is
// driven synchronously by the BOT worker loop in internal/usbmsc.
type Target struct {
	disk         SectorReader
	totalSectors uint32

	mode          Mode
	scratch       [blockSize]byte
	bufferOffset  int
	remainingSm   int    // remaining bytes of scratch, for SmallReply
	remainingSec  uint32 // remaining sectors, for SectorStream
	currentLBA    uint32
	mediumPresent bool

	lastSense sense
}

// NewTarget returns a Target that streams data sectors from disk, a volume
// with the given total sector count (used for READ CAPACITY / range checks).
func NewTarget(disk SectorReader, totalSectors uint32) *Target {
	return &Target{
		disk:          disk,
		totalSectors:  totalSectors,
		mediumPresent: true,
	}
}

// Mode reports the data-phase disposition left by the most recent
// ProcessCommand call.
func (t *Target) Mode() Mode { return t.mode }

// Remaining reports the number of bytes left to transmit. In SectorStream
// mode this counts the unsent part of the current sector plus every sector
// not yet fetched.
func (t *Target) Remaining() int {
	if t.mode == SectorStream {
		n := int(t.remainingSec) * blockSize
		if t.bufferOffset < blockSize {
			n += blockSize - t.bufferOffset
		}
		return n
	}
	return t.remainingSm
}

// fail stores sense data and resets the data phase to Noop, matching the
// failure disposition every opcode handler below returns through.
func (t *Target) fail(key, asc byte) error {
	t.lastSense = sense{key: key, asc: asc}
	t.mode = Noop
	return &CommandError{SenseKey: key, ASC: asc}
}

// CommandError is returned by ProcessCommand when a command fails; the BOT
// layer maps it to a failed CSW without needing to know SCSI sense details.
type CommandError struct {
	SenseKey byte
	ASC      byte
}

func (e *CommandError) Error() string {
	return "scsi: command failed"
}

// ProcessCommand decodes cdb and performs synthesis into the target's
// scratch buffer, or enters SectorStream mode. It never blocks and never
// retries; all retry semantics belong to the host.
func (t *Target) ProcessCommand(cdb []byte) error {
	if len(cdb) == 0 {
		return t.fail(senseIllegalReq, ascInvalidFieldInCDB)
	}

	switch cdb[0] {
	case opTestUnitReady:
		return t.testUnitReady()
	case opRequestSense:
		return t.requestSense()
	case opInquiry:
		return t.inquiry(cdb)
	case opModeSense6:
		return t.modeSense6()
	case opModeSense10:
		return t.modeSense10()
	case opStartStopUnit:
		return t.ack()
	case opPreventAllowRemove:
		return t.ack()
	case opReadFormatCap:
		return t.readFormatCapacities()
	case opReadCapacity10:
		return t.readCapacity10()
	case opRead10:
		return t.read10(cdb)
	case opWrite10:
		return t.fail(senseDataProtect, ascWriteProtected)
	default:
		return t.fail(senseIllegalReq, ascInvalidCmdOpcode)
	}
}

func (t *Target) smallReply(data []byte) error {
	clear(t.scratch[:])
	n := copy(t.scratch[:], data)
	t.mode = SmallReply
	t.bufferOffset = 0
	t.remainingSm = n
	t.lastSense = sense{}
	return nil
}

func (t *Target) ack() error {
	t.mode = Noop
	t.lastSense = sense{}
	return nil
}

func (t *Target) testUnitReady() error {
	if !t.mediumPresent {
		return t.fail(senseNotReady, ascMediumNotPresent)
	}
	return t.ack()
}

// requestSense returns the 18-byte fixed-format sense reply and clears the
// stored sense pair.
func (t *Target) requestSense() error {
	var buf [18]byte
	buf[0] = 0x70 // response code, current errors
	buf[2] = t.lastSense.key
	buf[7] = 0x0A // additional sense length
	buf[12] = t.lastSense.asc

	t.lastSense = sense{}
	return t.smallReply(buf[:])
}

// inquiry returns the standard 36-byte INQUIRY reply, or a VPD page when
// EVPD (cdb[1] bit 0) is set.
func (t *Target) inquiry(cdb []byte) error {
	if len(cdb) > 1 && cdb[1]&0x01 != 0 {
		return t.inquiryVPD(cdb)
	}

	var buf [36]byte
	buf[0] = 0x00 // peripheral device type: direct-access block device
	buf[1] = 0x80 // removable medium bit
	buf[2] = 0x00 // version
	buf[3] = 0x02 // response data format
	buf[4] = 31   // additional length (36-4-1)
	copy(buf[8:16], []byte("FLIPPER "))
	copy(buf[16:32], []byte("Boot2Flipper    "))
	copy(buf[32:36], []byte("1.0 "))
	return t.smallReply(buf[:])
}

func (t *Target) inquiryVPD(cdb []byte) error {
	if len(cdb) < 3 {
		return t.fail(senseIllegalReq, ascInvalidFieldInCDB)
	}

	switch cdb[2] {
	case 0x00:
		buf := []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x80}
		return t.smallReply(buf)
	case 0x80:
		buf := []byte{0x00, 0x80, 0x00, 0x04, 'F', 'L', 'P', '0'}
		return t.smallReply(buf)
	default:
		return t.fail(senseIllegalReq, ascInvalidFieldInCDB)
	}
}

// modeSense6 returns a minimal MODE SENSE(6) reply with the write-protect
// bit set in the device-specific parameter byte.
func (t *Target) modeSense6() error {
	buf := []byte{
		3,    // mode data length (excludes this byte)
		0x00, // medium type
		0x80, // device-specific parameter: write-protected
		0x00, // block descriptor length
	}
	return t.smallReply(buf)
}

// modeSense10 returns the 10-byte-header equivalent of modeSense6.
func (t *Target) modeSense10() error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], 6) // mode data length
	buf[2] = 0x00                           // medium type
	buf[3] = 0x80                           // write-protected
	return t.smallReply(buf)
}

// readFormatCapacities returns the capacity-list header plus one
// "formatted media" descriptor.
func (t *Target) readFormatCapacities() error {
	buf := make([]byte, 12)
	buf[3] = 0x08 // capacity list length: one 8-byte descriptor
	binary.BigEndian.PutUint32(buf[4:8], t.totalSectors)
	buf[8] = 0x02 // descriptor type: formatted media
	buf[9] = 0x00
	buf[10] = blockSize >> 8
	buf[11] = blockSize & 0xFF
	return t.smallReply(buf)
}

// readCapacity10 returns the disk's last LBA and block size.
func (t *Target) readCapacity10() error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], t.totalSectors-1)
	binary.BigEndian.PutUint32(buf[4:8], blockSize)
	return t.smallReply(buf)
}

// read10 validates the CDB and enters SectorStream mode; TransmitData pulls
// sector bytes from disk as the caller drains them.
func (t *Target) read10(cdb []byte) error {
	if len(cdb) < 10 {
		return t.fail(senseIllegalReq, ascInvalidFieldInCDB)
	}

	lba := binary.BigEndian.Uint32(cdb[2:6])
	count := binary.BigEndian.Uint16(cdb[7:9])

	if count == 0 {
		return t.ack()
	}
	if uint64(lba)+uint64(count) > uint64(t.totalSectors) {
		return t.fail(senseIllegalReq, ascLBAOutOfRange)
	}

	t.mode = SectorStream
	t.currentLBA = lba
	t.remainingSec = uint32(count)
	t.bufferOffset = blockSize // force a fresh sector fetch on first TransmitData
	t.lastSense = sense{}
	return nil
}

// TransmitData copies up to len(out) bytes of the pending reply into out
// and returns the number of bytes copied; it returns 0 once the reply is
// exhausted.
func (t *Target) TransmitData(out []byte) int {
	switch t.mode {
	case SmallReply:
		return t.transmitSmall(out)
	case SectorStream:
		return t.transmitStream(out)
	default:
		return 0
	}
}

func (t *Target) transmitSmall(out []byte) int {
	if t.remainingSm <= 0 {
		return 0
	}
	n := copy(out, t.scratch[t.bufferOffset:t.bufferOffset+t.remainingSm])
	t.bufferOffset += n
	t.remainingSm -= n
	return n
}

func (t *Target) transmitStream(out []byte) int {
	total := 0
	for len(out) > 0 {
		if t.bufferOffset >= blockSize {
			if t.remainingSec == 0 {
				break
			}
			t.disk.ReadSector(t.currentLBA, t.scratch[:])
			t.currentLBA++
			t.remainingSec--
			t.bufferOffset = 0
		}

		n := copy(out, t.scratch[t.bufferOffset:blockSize])
		t.bufferOffset += n
		out = out[n:]
		total += n
	}
	return total
}
