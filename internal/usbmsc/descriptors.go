package usbmsc

// Descriptor constants the platform USB stack reports during enumeration.
// The core only supplies these values; control-transfer handling other
// than the two class requests belongs to the platform device interface.
const (
	VendorID  = 0x0483
	ProductID = 0x5720
	BCDDevice = 0x0100 // 1.00

	InterfaceClass    = 0x08 // mass storage
	InterfaceSubclass = 0x06 // SCSI transparent command set
	InterfaceProtocol = 0x50 // Bulk-Only Transport
)

const (
	StringManufacturer = "boot2flipper"
	StringProduct      = "iPXE Boot Disk"
	StringSerial       = "B2F00001"
)
