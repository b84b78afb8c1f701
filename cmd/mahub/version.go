// ABOUTME: Version command
// ABOUTME: Prints the client version and runtime details
package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/mahub-go/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", version.Product, version.Version)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
