package usbmsc

// maxPacketSize is the bulk endpoint's max packet size.
const maxPacketSize = 64

// Endpoint models one direction of a bulk USB endpoint. The platform USB
// device stack owns the real implementation; Read/Write are called only
// from the worker loop (never from the interrupt-context completion
// callback itself).
//
// Read and Write are non-blocking: they report ok=false when no data/
// capacity is currently available, letting Machine.Step retry on the next
// RxTx wake-up rather than stalling the worker.
type Endpoint interface {
	// Read copies up to len(buf) bytes of a pending OUT packet into buf.
	// ok is false if no packet is currently available.
	Read(buf []byte) (n int, ok bool)

	// Write queues buf as the next IN packet. ok is false if the endpoint
	// is still busy transmitting a previous packet.
	Write(buf []byte) (ok bool)

	// Stall halts the endpoint until ClearStall (driven by BOT_RESET).
	Stall()

	// ClearStall releases a halt set by Stall.
	ClearStall()
}

// EndpointAddress values.
const (
	EndpointIn  = 0x82
	EndpointOut = 0x02
)

// Class-specific control requests.
const (
	RequestGetMaxLUN = 0xFE
	RequestBOTReset  = 0xFF
)

// GetMaxLUN answers the GET_MAX_LUN class request: this target exposes a
// single LUN.
func GetMaxLUN() byte { return 0 }
