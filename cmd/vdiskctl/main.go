package main

import (
	"fmt"

	"github.com/ipxeusb/vdisk/cmd/vdiskctl/cmd"
	"github.com/ipxeusb/vdisk/internal/buildinfo"
)

func main() {
	printLogo()

	_ = cmd.Execute()
}

func printLogo() {
	fmt.Println(" _    ____  _     _      ")
	fmt.Println("| |  |___ \\| |   | |     ")
	fmt.Println("| |__  __) | | __| | ___ ")
	fmt.Println("|  _ \\|__ <| |/ _` |/ __|")
	fmt.Println("| |_) |__) | | (_| |\\__ \\")
	fmt.Println("|____/____/|_|\\__,_||___/")
	fmt.Println()
	fmt.Println("Synthesized USB mass storage boot disk")
	fmt.Println()
	fmt.Printf("Version:    %s\n", buildinfo.Version)
	fmt.Printf("Commit:     %s\n", buildinfo.CommitHash)
	fmt.Printf("Build Time: %s\n", buildinfo.BuildTime)
	fmt.Println()
}
