// Package usbmsc implements the USB Mass Storage Bulk-Only Transport (BOT)
// engine: the CBW/data/CSW state machine that sits between a host's bulk
// endpoint traffic and a scsi.Target. Two bulk endpoints, sized 64 bytes,
// carry Command Block Wrappers, data phases, and Command Status Wrappers;
// the platform USB stack is modeled as the Endpoint interface so the state
// machine never depends on a physical gadget driver.
package usbmsc

import (
	"encoding/binary"
	"errors"

	"github.com/ipxeusb/vdisk/internal/scsi"
)

const (
	cbwSignature = 0x43425355 // "USBC"
	cswSignature = 0x53425355 // "USBS"

	cbwLength = 31
	cswLength = 13

	dirOut = 0x00
	dirIn  = 0x80
)

// CSW status codes.
const (
	StatusPassed     = 0x00
	StatusFailed     = 0x01
	StatusPhaseError = 0x02
)

// State is one of the four BOT state-machine states. A malformed CBW stalls
// both endpoints without leaving StateReadCbw; there is no separate stalled
// state.
type State int

const (
	StateReadCbw State = iota
	StateDataIn
	StateDataOut
	StateWriteCsw
)

// CBW is the 31-byte Command Block Wrapper sent by the host on the bulk-OUT
// endpoint to begin a command.
type CBW struct {
	Tag          uint32
	DataLength   uint32
	Flags        byte
	LUN          byte
	CBLength     byte
	CommandBlock [16]byte
}

// ErrMalformedCBW is returned by DecodeCBW when the wrapper's length or
// signature is invalid; the caller must stall both bulk endpoints and wait
// for BOT_RESET.
var ErrMalformedCBW = errors.New("usbmsc: malformed CBW")

// DecodeCBW parses a received bulk-OUT packet into a CBW.
func DecodeCBW(buf []byte) (CBW, error) {
	if len(buf) != cbwLength {
		return CBW{}, ErrMalformedCBW
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != cbwSignature {
		return CBW{}, ErrMalformedCBW
	}

	var cbw CBW
	cbw.Tag = binary.LittleEndian.Uint32(buf[4:8])
	cbw.DataLength = binary.LittleEndian.Uint32(buf[8:12])
	cbw.Flags = buf[12]
	cbw.LUN = buf[13] & 0x0F
	cbw.CBLength = buf[14] & 0x1F
	copy(cbw.CommandBlock[:], buf[15:31])
	return cbw, nil
}

func (c CBW) cdb() []byte {
	n := int(c.CBLength)
	if n > len(c.CommandBlock) {
		n = len(c.CommandBlock)
	}
	return c.CommandBlock[:n]
}

func (c CBW) directionIn() bool {
	return c.Flags&dirIn != 0
}

// CSW is the 13-byte Command Status Wrapper returned on the bulk-IN
// endpoint once a command completes.
type CSW struct {
	Tag     uint32
	Residue uint32
	Status  byte
}

// Encode writes the 13-byte wire form of csw into buf.
func (c CSW) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], cswSignature)
	binary.LittleEndian.PutUint32(buf[4:8], c.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], c.Residue)
	buf[12] = c.Status
}

// Machine drives one USB MSC session: it decodes CBWs, hands the CDB to a
// scsi.Target, streams data phases through an Endpoint pair, and writes the
// CSW. It performs no I/O on its own other than through the supplied
// Endpoint — callers invoke Step once per RxTx wake-up from the worker loop
// in internal/session.
type Machine struct {
	target *scsi.Target
	in     Endpoint
	out    Endpoint

	state State
	cbw   CBW
	csw   CSW

	sent     uint32 // bytes sent/received so far in the current data phase
	expected uint32 // CBW.DataLength for the current command
}

// NewMachine returns a Machine in StateReadCbw driving target over the
// given endpoint pair.
func NewMachine(target *scsi.Target, in, out Endpoint) *Machine {
	return &Machine{target: target, in: in, out: out, state: StateReadCbw}
}

// State reports the machine's current BOT state.
func (m *Machine) State() State { return m.state }

// Reset handles BOT_RESET: it returns the state machine to StateReadCbw and
// clears any buffered transfer progress, without touching the SCSI target
// or the underlying virtual filesystem.
func (m *Machine) Reset() {
	m.state = StateReadCbw
	m.sent = 0
	m.expected = 0
	m.in.ClearStall()
	m.out.ClearStall()
}

// Step processes at most one endpoint event and returns. It is safe to call
// repeatedly from a single-threaded worker loop; it never blocks beyond
// what the Endpoint implementation itself blocks for.
func (m *Machine) Step() {
	switch m.state {
	case StateReadCbw:
		m.stepReadCbw()
	case StateDataIn:
		m.stepDataIn()
	case StateDataOut:
		m.stepDataOut()
	case StateWriteCsw:
		m.stepWriteCsw()
	}
}

func (m *Machine) stepReadCbw() {
	buf := make([]byte, cbwLength)
	n, ok := m.out.Read(buf)
	if !ok {
		return
	}

	cbw, err := DecodeCBW(buf[:n])
	if err != nil {
		m.in.Stall()
		m.out.Stall()
		return
	}

	m.cbw = cbw
	m.csw = CSW{Tag: cbw.Tag}
	m.sent = 0
	m.expected = cbw.DataLength

	cmdErr := m.target.ProcessCommand(cbw.cdb())
	if cmdErr != nil {
		m.csw.Status = StatusFailed
		m.csw.Residue = cbw.DataLength
		m.state = StateWriteCsw
		return
	}

	switch {
	case cbw.DataLength == 0:
		m.csw.Status = StatusPassed
		m.state = StateWriteCsw
	case cbw.directionIn():
		m.state = StateDataIn
	default:
		// Write phase: the SCSI layer never enters SectorStream/data-out
		// mode for WRITE(10) (it fails at ProcessCommand), so any other
		// DIR_OUT data phase is rejected as a phase error.
		m.csw.Status = StatusPhaseError
		m.csw.Residue = cbw.DataLength
		m.state = StateWriteCsw
	}
}

func (m *Machine) stepDataIn() {
	if m.target.Remaining() == 0 {
		m.csw.Status = StatusPassed
		if m.expected > m.sent {
			m.csw.Residue = m.expected - m.sent
		}
		m.state = StateWriteCsw
		return
	}

	packet := make([]byte, maxPacketSize)
	n := m.target.TransmitData(packet)
	if n == 0 {
		m.csw.Status = StatusPassed
		if m.expected > m.sent {
			m.csw.Residue = m.expected - m.sent
		}
		m.state = StateWriteCsw
		return
	}

	if !m.in.Write(packet[:n]) {
		return // endpoint busy: retry this same chunk on the next event
	}
	m.sent += uint32(n)
}

func (m *Machine) stepDataOut() {
	// No SCSI command in this target's opcode set reaches a DataOut
	// phase (WRITE(10) fails before any data phase begins), so this
	// state is reachable only via a future opcode addition.
	m.csw.Status = StatusPhaseError
	m.state = StateWriteCsw
}

func (m *Machine) stepWriteCsw() {
	buf := make([]byte, cswLength)
	m.csw.Encode(buf)
	if !m.in.Write(buf) {
		return
	}
	m.state = StateReadCbw
}
