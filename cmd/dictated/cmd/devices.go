package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localcue/dictate/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Inspect audio input devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available input devices",
	RunE:  runDevicesList,
}

func runDevicesList(_ *cobra.Command, _ []string) error {
	devices, err := audio.ListInputDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %s\t%s\n", marker, d.ID, d.Name)
	}
	return nil
}

func init() {
	devicesCmd.AddCommand(devicesListCmd)
}
