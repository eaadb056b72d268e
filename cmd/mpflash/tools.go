package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"mpflash/pkg/config"
	"mpflash/pkg/probe"
	"mpflash/pkg/serialport"
	"mpflash/pkg/version"
)

func NewPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports that look like ESP32 devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := serialport.USBLister{}.List()
			if err != nil {
				return errors.Wrap(err, "scan serial ports")
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial devices found.")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p.Label())
			}
			return nil
		},
	}
}

func NewProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <port>",
		Short: "Fingerprint the firmware running on a device",
		Long: `Fingerprint the firmware running on a device.

Opens the port, sends a few harmless MicroPython commands, and classifies
whatever the device answers. The device is not modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFile(configPath)
			if err != nil {
				return errors.Wrap(err, "load config")
			}

			res, err := probe.New(cfg.ProbeBaud(), cfg.ProbeTimeout()).Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Firmware:   %s\n", res.Type)
			if res.Version != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", res.Version)
			}
			if res.Type != probe.NoResponse {
				fmt.Fprintf(cmd.OutOrStdout(), "Confidence: %s\n", res.Confidence)
			}
			if res.Raw != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "\nDevice output:")
				fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
			}

			if res.Type == probe.MicroPython {
				color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "\nThis device already runs MicroPython.")
			}
			return nil
		},
	}
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}
