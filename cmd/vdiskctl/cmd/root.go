package cmd

import (
	"github.com/spf13/cobra"
)

const AppName = "vdiskctl"

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - synthesized USB mass storage boot disk",
	}

	rootCmd.AddCommand(DefineBuildCommand())
	rootCmd.AddCommand(DefineSimulateCommand())
	rootCmd.AddCommand(DefineMountCommand())
	rootCmd.AddCommand(DefineInspectCommand())

	return rootCmd.Execute()
}
