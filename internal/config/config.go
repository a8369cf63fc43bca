// Package config holds the settings the core consumes to build a session:
// partition scheme, chainload target, and network configuration for the
// generated boot script. Persisting these to a key-value text file is the
// menu UI's job, out of scope here; Config is a plain in-memory value.
package config

import "github.com/ipxeusb/vdisk/internal/layout"

// StaticIP carries the four fields needed to emit a static-IP iPXE script,
// per internal/bootscript. A zero-value StaticIP (all fields empty) means
// "use DHCP".
type StaticIP struct {
	Address string
	Netmask string
	Gateway string
	DNS     string
}

// IsSet reports whether Address, Netmask and Gateway are all populated.
// DNS is optional and does not affect the result.
func (s StaticIP) IsSet() bool {
	return s.Address != "" && s.Netmask != "" && s.Gateway != ""
}

// Config is the full set of inputs to one run: the disk layout scheme and
// the parameters that flow into the generated boot script.
type Config struct {
	Scheme layout.Scheme

	// NetworkInterface resolves to net0 when empty or "auto"; any other
	// value is used verbatim.
	NetworkInterface string

	ChainloadURL     string
	ChainloadEnabled bool

	Static StaticIP

	VolumeLabel  string
	VolumeSerial uint32
}

// Default returns a Config with the generator's built-in defaults: GPT
// scheme, DHCP networking, chainloading disabled.
func Default() Config {
	return Config{
		Scheme:           layout.GptOnly,
		NetworkInterface: "",
		ChainloadEnabled: false,
		VolumeLabel:      "Boot2Flippr",
		VolumeSerial:     0x78563412,
	}
}
