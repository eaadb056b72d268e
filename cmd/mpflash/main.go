package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mpflash/pkg/probe"
)

var (
	logLevel   = "info"
	configPath = defaultConfigPath()
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mpflash.json"
	}
	return filepath.Join(home, ".config", "mpflash", "config.json")
}

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	var busy *probe.PortBusyError
	if errors.As(err, &busy) {
		fmt.Fprintln(os.Stderr, "\nError: the serial port is held by another program")
		fmt.Fprintln(os.Stderr, "Close any serial monitor, REPL, or IDE using the port and try again.")
		return
	}
	if errors.Is(err, exec.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "\nError: esptool was not found")
		fmt.Fprintln(os.Stderr, "  - Install it with 'pip install esptool'")
		fmt.Fprintln(os.Stderr, "  - Or point the esptoolPath config field at the binary")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mpflash",
		Short: "mpflash puts MicroPython on ESP32 boards",
		Long: `mpflash is an interactive tool that detects a connected ESP32 board,
fingerprints whatever firmware is running on it, and walks you through
erasing it and flashing MicroPython.

Running mpflash without a subcommand starts the interactive wizard.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWizard(cmd)
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")

	cmd.AddCommand(
		NewFlashCommand(),
		NewPortsCommand(),
		NewProbeCommand(),
		NewVersionCommand(),
	)

	return cmd
}
