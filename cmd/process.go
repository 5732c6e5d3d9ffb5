package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/orchestrator"
)

var (
	processImage    string
	processText     string
	processLocation string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a single item and print the recommendation report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		o := buildOrchestrator()
		report := o.ProcessSync(ctx, orchestrator.Input{
			ImagePath: processImage,
			Text:      processText,
			Location:  processLocation,
		})
		if report == nil {
			return eris.New("process: no report produced")
		}

		zap.L().Info("processing complete",
			zap.String("run_id", report.RunID),
			zap.Bool("success", report.Success),
			zap.String("primary_path", report.Metadata.PrimaryPath),
			zap.Int("branch_successes", report.Metadata.SuccessCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	processCmd.Flags().StringVar(&processImage, "image", "", "path to an item photo")
	processCmd.Flags().StringVar(&processText, "text", "", "item description")
	processCmd.Flags().StringVar(&processLocation, "location", "", "user coordinates as lng,lat (enables nearby recycling points)")
	rootCmd.AddCommand(processCmd)
}
