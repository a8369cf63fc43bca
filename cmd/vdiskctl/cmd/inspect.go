package cmd

import (
	"fmt"

	"github.com/ipxeusb/vdisk/internal/config"
	"github.com/ipxeusb/vdisk/internal/session"
	"github.com/spf13/cobra"
)

func DefineInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "inspect",
		Short:        "Print the declarative file tree the generator would synthesize",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runInspect,
	}

	cmd.Flags().String("scheme", "gpt", "partition scheme: gpt or mbr")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	schemeFlag, _ := cmd.Flags().GetString("scheme")
	scheme, err := parseScheme(schemeFlag)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Scheme = scheme
	fs := session.Build(cfg)

	for _, e := range fs.Walk() {
		kind := "file"
		if e.IsDirectory {
			kind = "dir "
		}
		fmt.Printf("%s  %8d  %s\n", kind, e.Size, e.Path)
	}
	return nil
}
