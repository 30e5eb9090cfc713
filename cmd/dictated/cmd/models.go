package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localcue/dictate/internal/model"
	"github.com/localcue/dictate/internal/privacy"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and manage installed models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog and installed models",
	RunE:  runModelsList,
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download <id> <quantization>",
	Short: "Download and verify a model variant",
	Args:  cobra.ExactArgs(2),
	RunE:  runModelsDownload,
}

var modelsVerifyCmd = &cobra.Command{
	Use:   "verify <id> <quantization>",
	Short: "Re-hash an installed model against the catalog",
	Args:  cobra.ExactArgs(2),
	RunE:  runModelsVerify,
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <id> <quantization>",
	Short: "Delete an installed model file",
	Args:  cobra.ExactArgs(2),
	RunE:  runModelsDelete,
}

func newManager() (*model.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	guard := privacy.New(cfg.Privacy.LocalOnly, cfg.Privacy.AllowedDomains)
	return model.NewManager(dataDirFlag+"/models", guard, nil)
}

func runModelsList(_ *cobra.Command, _ []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	fmt.Println("catalog:")
	for _, mi := range mgr.Catalog().Models {
		fmt.Printf("  %s (%s) min_ram=%dGB\n", mi.ID, mi.Name, mi.MinRAMGB)
	}
	fmt.Println("installed:")
	for _, im := range mgr.Installed() {
		fmt.Printf("  %s-%s\t%s\t%d bytes\n", im.ID, im.Quantization, im.Path, im.SizeBytes)
	}
	return nil
}

func runModelsDownload(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	id, quant := args[0], model.Quantization(args[1])
	progress := func(downloaded, total int64) {
		fmt.Fprintf(os.Stderr, "\r%d/%d bytes", downloaded, total)
	}
	im, err := mgr.Download(cmd.Context(), id, quant, progress)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("download %s/%s: %w", id, quant, err)
	}
	fmt.Printf("installed %s\n", im.Path)
	return nil
}

func runModelsVerify(_ *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	ok, err := mgr.Verify(args[0], model.Quantization(args[1]))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("checksum mismatch for %s/%s", args[0], args[1])
	}
	fmt.Println("ok")
	return nil
}

func runModelsDelete(_ *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	return mgr.Delete(args[0], model.Quantization(args[1]))
}

func init() {
	modelsCmd.AddCommand(modelsListCmd, modelsDownloadCmd, modelsVerifyCmd, modelsDeleteCmd)
}
