package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/parser"
)

var (
	expResult string
	expFile   string
	expOut    string
	expCSV    csvFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a saved analysis result as a PDF report",
	Example: `  datapilot export --result result.json
  datapilot export --result result.json --file attendance.csv --out ./reports/`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if expResult == "" {
			return errors.New("--result is required")
		}
		res, err := readResult(expResult)
		if err != nil {
			return err
		}
		in := &parser.Input{}
		if expFile != "" {
			csvCfg, err := expCSV.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			if in, err = parser.ParseFile(expFile, csvCfg); err != nil {
				return err
			}
		}
		path, err := writePDF(expOut, res, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote PDF to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expResult, "result", "r", "", "result JSON saved by analyze --output")
	exportCmd.Flags().StringVarP(&expFile, "file", "f", "", "data file whose preview rows are appended")
	exportCmd.Flags().StringVar(&expOut, "out", ".", "output directory or file path")
	addCSVFlags(exportCmd, &expCSV)
}
