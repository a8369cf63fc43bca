package bootscript_test

import (
	"strings"
	"testing"

	"github.com/ipxeusb/vdisk/internal/bootscript"
	"github.com/ipxeusb/vdisk/internal/config"
	"github.com/stretchr/testify/require"
)

func TestGenerate_DefaultsToNet0WhenInterfaceUnset(t *testing.T) {
	cfg := config.Default()
	script := bootscript.Generate(cfg)
	require.True(t, strings.HasPrefix(script, "#!ipxe\n"))
	require.Contains(t, script, "dhcp net0 || goto failed")
}

func TestGenerate_AutoResolvesToNet0(t *testing.T) {
	cfg := config.Default()
	cfg.NetworkInterface = "auto"
	script := bootscript.Generate(cfg)
	require.Contains(t, script, "dhcp net0 || goto failed")
}

func TestGenerate_ExplicitInterfaceUsedVerbatim(t *testing.T) {
	cfg := config.Default()
	cfg.NetworkInterface = "net1"
	script := bootscript.Generate(cfg)
	require.Contains(t, script, "dhcp net1 || goto failed")
	require.Contains(t, script, "${net1/ip}")
}

func TestGenerate_StaticIPBranch(t *testing.T) {
	cfg := config.Default()
	cfg.Static = config.StaticIP{
		Address: "192.168.1.50",
		Netmask: "255.255.255.0",
		Gateway: "192.168.1.1",
		DNS:     "8.8.8.8",
	}
	script := bootscript.Generate(cfg)
	require.Contains(t, script, "set net0/ip 192.168.1.50")
	require.Contains(t, script, "set net0/netmask 255.255.255.0")
	require.Contains(t, script, "set net0/gateway 192.168.1.1")
	require.Contains(t, script, "set dns 8.8.8.8")
	require.Contains(t, script, "ifopen net0 || goto failed")
	require.NotContains(t, script, "dhcp net0")
}

func TestGenerate_IncompleteStaticFallsBackToDHCP(t *testing.T) {
	cfg := config.Default()
	cfg.Static = config.StaticIP{Address: "10.0.0.5"} // netmask/gateway missing
	script := bootscript.Generate(cfg)
	require.Contains(t, script, "dhcp net0 || goto failed")
}

func TestGenerate_ChainloadEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.ChainloadEnabled = true
	cfg.ChainloadURL = "http://example.test/boot.ipxe"
	script := bootscript.Generate(cfg)
	require.Contains(t, script, "chain --autofree http://example.test/boot.ipxe || goto failed")
	require.NotContains(t, script, "goto end")
}

func TestGenerate_ChainloadDisabledDropsToShell(t *testing.T) {
	cfg := config.Default()
	script := bootscript.Generate(cfg)
	require.Contains(t, script, "Chainloading disabled, dropping to shell")
	require.Contains(t, script, "goto end")
}
