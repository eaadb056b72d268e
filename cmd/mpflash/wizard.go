package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"mpflash/internal/index"
	"mpflash/pkg/config"
	"mpflash/pkg/firmware"
	"mpflash/pkg/flash"
	"mpflash/pkg/flow"
	"mpflash/pkg/probe"
	"mpflash/pkg/serialport"
	"mpflash/pkg/ui"
)

// NewFlashCommand exposes the wizard as an explicit subcommand. Bare
// mpflash runs the same thing.
func NewFlashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flash",
		Short: "Run the interactive flashing wizard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWizard(cmd)
		},
	}
}

// runWizard wires the collaborators from config and drives one full
// flashing session.
func runWizard(cmd *cobra.Command) error {
	cfg, err := config.NewFile(configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if err := os.MkdirAll(cfg.WorkDir(), 0o755); err != nil {
		return errors.Wrap(err, "create work directory")
	}

	orch := flow.New(
		serialport.USBLister{},
		probe.New(cfg.ProbeBaud(), cfg.ProbeTimeout()),
		firmware.NewCatalog(index.NewClient(cfg.IndexURL(), cfg.IndexTimeout()), cfg.WorkDir()),
		flash.NewExecutor(flash.ExecRunner{Path: cfg.EsptoolPath()}, cfg.PrimaryBaud(), cfg.FallbackBaud()),
		ui.NewTerminal(),
	)

	session, err := orch.Run(cmd.Context())
	if session != nil {
		printAttempts(cmd, session.Attempts)
	}
	if err != nil {
		color.New(color.FgRed).Fprintln(cmd.OutOrStdout(), "✗ Flashing failed")
		return err
	}

	switch session.Status {
	case flash.Completed:
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
			"✔ MicroPython is running on %s\n", session.Device.Port)
		fmt.Fprintln(cmd.OutOrStdout(), "Connect to the REPL with any serial terminal at 115200 baud.")
	case flash.Cancelled:
		color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "Cancelled, device left untouched.")
	}

	return nil
}

func printAttempts(cmd *cobra.Command, attempts []flash.Attempt) {
	if len(attempts) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Write attempts:")
	for _, a := range attempts {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d. %d baud: %s\n", a.Index, a.BaudRate, a.Outcome)
	}
}
