package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// @title			Feedback Responder API
// @version		1.0
// @description	Review and administration API for the marketplace feedback auto-responder.
// @host			localhost:8080
// @BasePath		/api/v1
func main() {
	rootCmd := &cobra.Command{
		Use:     "responder",
		Short:   "Marketplace feedback auto-responder",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
