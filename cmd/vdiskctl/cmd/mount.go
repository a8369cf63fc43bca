package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ipxeusb/vdisk/internal/config"
	"github.com/ipxeusb/vdisk/internal/fuseview"
	"github.com/ipxeusb/vdisk/internal/session"
	"github.com/ipxeusb/vdisk/internal/vfat"
	"github.com/spf13/cobra"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mount <mountpoint>",
		Short:        "Mount the synthesized disk read-only via FUSE for local inspection",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runMount,
	}

	cmd.Flags().String("scheme", "gpt", "partition scheme: gpt or mbr")
	cmd.Flags().String("chainload", "", "path to a chainload binary installed at EFI/BOOT/BOOTX64.EFI")
	return cmd
}

func runMount(cmd *cobra.Command, args []string) error {
	schemeFlag, _ := cmd.Flags().GetString("scheme")
	scheme, err := parseScheme(schemeFlag)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Scheme = scheme
	fs := session.Build(cfg)

	if chainload, _ := cmd.Flags().GetString("chainload"); chainload != "" {
		fs.SetByteRangeReader(vfat.FileReader{})
		if err := fs.AddFileUnderPath("EFI/BOOT", "BOOTX64.EFI", "", chainload); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return fuseview.Mount(ctx, args[0], fs)
}
