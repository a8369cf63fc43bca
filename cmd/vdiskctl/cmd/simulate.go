package cmd

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ipxeusb/vdisk/internal/config"
	"github.com/ipxeusb/vdisk/internal/session"
	"github.com/ipxeusb/vdisk/internal/usbmsc"
	"github.com/spf13/cobra"
)

func DefineSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "simulate",
		Short:        "Drive a full CBW -> data -> CSW cycle against a loopback USB endpoint pair",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runSimulate,
	}

	cmd.Flags().String("scheme", "gpt", "partition scheme: gpt or mbr")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	schemeFlag, _ := cmd.Flags().GetString("scheme")
	scheme, err := parseScheme(schemeFlag)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Scheme = scheme
	fs := session.Build(cfg)

	in := usbmsc.NewLoopbackEndpoint()
	out := usbmsc.NewLoopbackEndpoint()
	sess := session.NewSession(fs, in, out)

	sess.SetCurrentFileObserver(func(name string) {
		fmt.Printf("reading %s\n", name)
	})

	worker := sess.StartWorker()
	defer worker.Stop()

	fmt.Println("-> INQUIRY")
	sendCommand(worker, out, in, 1, 36, true, []byte{0x12, 0, 0, 0, 36, 0})

	fmt.Println("-> READ CAPACITY (10)")
	sendCommand(worker, out, in, 2, 8, true, []byte{0x25, 0, 0, 0, 0, 0, 0, 0, 0, 0})

	fmt.Println("-> READ (10), LBA 0, 1 sector")
	sendCommand(worker, out, in, 3, 512, true, []byte{0x28, 0, 0, 0, 0, 0, 0, 0, 1, 0})

	return nil
}

// sendCommand encodes and sends one CBW, then drains the loopback IN
// endpoint until a CSW has been observed, printing a one-line summary.
func sendCommand(worker *session.Worker, out, in *usbmsc.LoopbackEndpoint, tag, dataLength uint32, dirIn bool, cdb []byte) {
	buf := make([]byte, 31)
	binary.LittleEndian.PutUint32(buf[0:4], 0x43425355)
	binary.LittleEndian.PutUint32(buf[4:8], tag)
	binary.LittleEndian.PutUint32(buf[8:12], dataLength)
	if dirIn {
		buf[12] = 0x80
	}
	buf[14] = byte(len(cdb))
	copy(buf[15:31], cdb)
	out.Send(buf)

	deadline := time.Now().Add(2 * time.Second)
	dataBytes := 0
	for time.Now().Before(deadline) {
		worker.SignalRxTx()
		for _, p := range in.Drain() {
			if len(p) == 13 && binary.LittleEndian.Uint32(p[0:4]) == 0x53425355 {
				status := p[12]
				residue := binary.LittleEndian.Uint32(p[8:12])
				fmt.Printf("   CSW tag=%d status=%d residue=%d bytes=%d\n", tag, status, residue, dataBytes)
				return
			}
			dataBytes += len(p)
		}
		time.Sleep(time.Millisecond)
	}
	fmt.Println("   timed out waiting for CSW")
}
