package session_test

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/ipxeusb/vdisk/internal/config"
	"github.com/ipxeusb/vdisk/internal/session"
	"github.com/ipxeusb/vdisk/internal/usbmsc"
	"github.com/stretchr/testify/require"
)

func encodeCBW(tag, dataLength uint32, dirIn bool, cdb []byte) []byte {
	buf := make([]byte, 31)
	binary.LittleEndian.PutUint32(buf[0:4], 0x43425355)
	binary.LittleEndian.PutUint32(buf[4:8], tag)
	binary.LittleEndian.PutUint32(buf[8:12], dataLength)
	if dirIn {
		buf[12] = 0x80
	}
	buf[14] = byte(len(cdb))
	copy(buf[15:31], cdb)
	return buf
}

func TestBuild_InstallsGeneratedBootScript(t *testing.T) {
	cfg := config.Default()
	fs := session.Build(cfg)

	buf := make([]byte, 512)
	fs.ReadSector(0, buf) // smoke check: reading any LBA never panics
	fs.ReadSector(3000, buf)

	entries := fs.Walk()
	require.Len(t, entries, 1)
	require.Equal(t, "autoexec.ipxe", entries[0].Path)

	script, err := fs.ReadFile("autoexec.ipxe")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(script), "#!ipxe\n"))
}

func TestSession_EndToEndTestUnitReady(t *testing.T) {
	cfg := config.Default()
	fs := session.Build(cfg)

	in := usbmsc.NewLoopbackEndpoint()
	out := usbmsc.NewLoopbackEndpoint()
	sess := session.NewSession(fs, in, out)

	var seen []string
	sess.SetCurrentFileObserver(func(name string) { seen = append(seen, name) })

	worker := sess.StartWorker()
	defer worker.Stop()

	out.Send(encodeCBW(1, 0, false, []byte{0x00}))

	var csw []byte
	require.Eventually(t, func() bool {
		worker.SignalRxTx()
		for _, p := range in.Drain() {
			csw = p
		}
		return csw != nil
	}, time.Second, 2*time.Millisecond)

	require.Equal(t, uint32(0x53425355), binary.LittleEndian.Uint32(csw[0:4]))
	require.Equal(t, byte(usbmsc.StatusPassed), csw[12])
}
