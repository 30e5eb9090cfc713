package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localcue/dictate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the persisted configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE:  runConfigShow,
}

// loadConfig loads config.toml from dataDirFlag, writing defaults if it is
// missing.
func loadConfig() (config.Config, error) {
	store := config.NewStore(dataDirFlag)
	return store.Load()
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", cfg)
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
