package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ipxeusb/vdisk/internal/config"
	"github.com/ipxeusb/vdisk/internal/layout"
	"github.com/ipxeusb/vdisk/internal/session"
	"github.com/ipxeusb/vdisk/internal/vfat"
	"github.com/ipxeusb/vdisk/pkg/pbar"
	"github.com/spf13/cobra"
)

func DefineBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "build <output.img>",
		Short:        "Materialize the synthesized disk to a raw image file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runBuild,
	}

	cmd.Flags().String("scheme", "gpt", "partition scheme: gpt or mbr")
	cmd.Flags().String("chainload", "", "path to a chainload binary installed at EFI/BOOT/BOOTX64.EFI")
	cmd.Flags().String("iface", "", "network interface for the generated boot script (empty/\"auto\" -> net0)")
	cmd.Flags().Bool("chainload-enabled", false, "enable the generated script's chain directive")
	cmd.Flags().String("chainload-url", "", "URL chainloaded by the generated boot script")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	schemeFlag, _ := cmd.Flags().GetString("scheme")
	scheme, err := parseScheme(schemeFlag)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Scheme = scheme
	cfg.NetworkInterface, _ = cmd.Flags().GetString("iface")
	cfg.ChainloadEnabled, _ = cmd.Flags().GetBool("chainload-enabled")
	cfg.ChainloadURL, _ = cmd.Flags().GetString("chainload-url")

	fs := session.Build(cfg)

	if chainload, _ := cmd.Flags().GetString("chainload"); chainload != "" {
		reader := vfat.FileReader{}
		fs.SetByteRangeReader(reader)
		if err := fs.AddFileUnderPath("EFI/BOOT", "BOOTX64.EFI", "", chainload); err != nil {
			return fmt.Errorf("add chainload binary: %w", err)
		}
	}

	out, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer out.Close()

	return writeImage(out, fs)
}

func parseScheme(s string) (layout.Scheme, error) {
	switch s {
	case "gpt", "":
		return layout.GptOnly, nil
	case "mbr":
		return layout.MbrOnly, nil
	default:
		return 0, fmt.Errorf("unknown scheme %q (want gpt or mbr)", s)
	}
}

// writeImage streams every LBA of the synthesized disk into w, sector by
// sector, producing a flat image a real USB host (or a real USB gadget
// testbed) could boot from.
func writeImage(w io.Writer, fs *vfat.Filesystem) error {
	total := int64(vfat.TotalSectors) * int64(vfat.SectorSize)
	bar := pbar.NewProgressBarState(total)

	buf := make([]byte, vfat.SectorSize)
	for lba := uint32(0); lba < vfat.TotalSectors; lba++ {
		fs.ReadSector(lba, buf)
		if _, err := w.Write(buf); err != nil {
			return err
		}
		bar.ProcessedBytes += int64(len(buf))
		bar.Render(false)
	}
	bar.Render(true)
	bar.Finish()
	return nil
}
