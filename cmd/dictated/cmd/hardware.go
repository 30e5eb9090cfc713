package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localcue/dictate/internal/hardware"
	"github.com/localcue/dictate/internal/model"
	"github.com/localcue/dictate/internal/privacy"
)

var hardwareCmd = &cobra.Command{
	Use:   "hardware",
	Short: "Inspect the detected hardware profile",
}

var hardwareProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the detected CPU/RAM profile",
	RunE:  runHardwareProfile,
}

var hardwareRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the recommended model id/quantization for this machine",
	RunE:  runHardwareRecommend,
}

func runHardwareProfile(_ *cobra.Command, _ []string) error {
	p, err := hardware.Detect()
	if err != nil {
		return fmt.Errorf("detect hardware: %w", err)
	}
	fmt.Printf("arch=%s cores=%d ram_gb=%d avx2=%v neon=%v recommended_threads=%d\n",
		p.Arch, p.Cores, p.RAMGB(), p.SIMD.AVX2, p.SIMD.NEON, p.RecommendedThreads())
	return nil
}

func runHardwareRecommend(_ *cobra.Command, _ []string) error {
	p, err := hardware.Detect()
	if err != nil {
		return fmt.Errorf("detect hardware: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	guard := privacy.New(cfg.Privacy.LocalOnly, cfg.Privacy.AllowedDomains)
	mgr, err := model.NewManager(dataDirFlag+"/models", guard, nil)
	if err != nil {
		return fmt.Errorf("init model manager: %w", err)
	}
	rec, err := hardware.Recommend(p, mgr.Catalog())
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", rec.ModelID, rec.Quantization)
	return nil
}

func init() {
	hardwareCmd.AddCommand(hardwareProfileCmd, hardwareRecommendCmd)
}
