package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	appConfigPath  string
	s3ConfigPath   string
	authConfigPath string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "muxlti",
		Short:         "LTI tool for uploading and watching Mux videos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&appConfigPath, "config", ".app.env", "application config file")
	root.PersistentFlags().StringVar(&s3ConfigPath, "s3-config", ".s3.env", "S3 config file for subtitle storage")
	root.PersistentFlags().StringVar(&authConfigPath, "auth-config", ".auth.env", "LTI session service config file")

	root.AddCommand(
		newServeCmd(),
		newSyncCmd(),
		newSigningKeyCmd(),
		newMigrateCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
