package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"authwatch/internal/logger"
	"authwatch/internal/transform/sshd"
)

var (
	rootCmd = &cobra.Command{
		Use:           "authwatch",
		Short:         "SSH authentication log analysis and intrusion detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configPath string
	envFile    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./authwatch.yml, then next to the binary)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with AUTHWATCH_* overrides")
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status: 2 when the input
// held no usable data, 1 for any other failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, sshd.ErrEmptyInput) {
		fmt.Fprintf(os.Stderr, "no usable data: %v\n", err)
		return 2
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}
