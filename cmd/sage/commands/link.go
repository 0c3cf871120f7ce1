package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sage/pkg/models"
)

var linkFile string

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link the mentions of a JSON file of reports",
	Long: `Link reads a JSON array of reports (or a single report object), resolves every
mention and attaches the resolved players to their report. Statistics are printed as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if linkFile == "" {
			return fmt.Errorf("input file is required, use --file")
		}
		reports, err := loadReports(linkFile)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		stats := a.linker.LinkBatch(cmd.Context(), reports)
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

func init() {
	linkCmd.Flags().StringVarP(&linkFile, "file", "f", "", "JSON file of reports")
}

func loadReports(path string) ([]models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var report models.Report
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("failed to parse report: %w", err)
		}
		return []models.Report{report}, nil
	}

	var reports []models.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to parse reports: %w", err)
	}
	return reports, nil
}
