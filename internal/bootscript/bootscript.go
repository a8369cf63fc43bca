// Package bootscript generates the iPXE script text installed as the
// "autoexec.ipxe" virtual file. The generated text is consumed by the
// virtual filesystem as a memory-backed file; this package has no
// dependency on vfat itself.
package bootscript

import (
	"strings"

	"github.com/ipxeusb/vdisk/internal/config"
)

// resolveInterface resolves an empty string or the literal "auto" to the
// default "net0"; any other value is used verbatim. Both the DHCP and
// static-IP script paths call this, so neither can end up referencing an
// interface variable that was never resolved.
func resolveInterface(iface string) string {
	if iface == "" || iface == "auto" {
		return "net0"
	}
	return iface
}

// Generate returns the full iPXE script text for cfg: a static-IP script
// when cfg.Static carries a complete address/netmask/gateway triple,
// otherwise a DHCP script, per original_source/src/ipxe/script_generator.c
// (supplemented: the distilled spec only described DHCP mode).
func Generate(cfg config.Config) string {
	iface := resolveInterface(cfg.NetworkInterface)

	var b strings.Builder
	b.WriteString("#!ipxe\n")

	if cfg.Static.IsSet() {
		writeStaticSection(&b, iface, cfg.Static)
	} else {
		writeDHCPSection(&b, iface)
	}

	b.WriteString("\n")
	if cfg.ChainloadEnabled && cfg.ChainloadURL != "" {
		b.WriteString("echo Chainloading: " + cfg.ChainloadURL + "\n")
		b.WriteString("chain --autofree " + cfg.ChainloadURL + " || goto failed\n")
	} else {
		b.WriteString("echo Network configured successfully\n")
		b.WriteString("echo Chainloading disabled, dropping to shell\n")
		b.WriteString("shell\n")
		b.WriteString("goto end\n")
	}

	b.WriteString("\n:failed\n")
	b.WriteString("echo Dropping to shell\n")
	b.WriteString("shell\n")
	b.WriteString("\n:end\n")

	return b.String()
}

func writeDHCPSection(b *strings.Builder, iface string) {
	b.WriteString("# Boot2Flipper - DHCP Mode\n\n")
	b.WriteString("echo Boot2Flipper: Configuring network (DHCP)\n")
	b.WriteString("dhcp " + iface + " || goto failed\n\n")
	b.WriteString("echo Network configured:\n")
	b.WriteString("echo IP: ${" + iface + "/ip}\n")
	b.WriteString("echo Gateway: ${" + iface + "/gateway}\n")
	b.WriteString("echo DNS: ${" + iface + "/dns}\n")
}

func writeStaticSection(b *strings.Builder, iface string, s config.StaticIP) {
	b.WriteString("# Boot2Flipper - Static IP Mode\n\n")
	b.WriteString("echo Boot2Flipper: Configuring network (Static IP)\n\n")
	b.WriteString("# Configure static IP\n")
	b.WriteString("set " + iface + "/ip " + s.Address + "\n")
	b.WriteString("set " + iface + "/netmask " + s.Netmask + "\n")
	b.WriteString("set " + iface + "/gateway " + s.Gateway + "\n")
	if s.DNS != "" {
		b.WriteString("set dns " + s.DNS + "\n")
	}
	b.WriteString("\n# Open network interface\n")
	b.WriteString("ifopen " + iface + " || goto failed\n\n")
	b.WriteString("echo Network configured:\n")
	b.WriteString("echo IP: ${" + iface + "/ip}\n")
	b.WriteString("echo Netmask: ${" + iface + "/netmask}\n")
	b.WriteString("echo Gateway: ${" + iface + "/gateway}\n")
	if s.DNS != "" {
		b.WriteString("echo DNS: ${dns}\n")
	}
}
