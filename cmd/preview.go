package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/parser"
	"github.com/KaramelBytes/datapilot-cli/internal/utils"
)

var (
	prevJSON   bool
	prevRows   int
	prevPrompt bool
	prevCSV    csvFlags
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show how a file will be sampled, without calling a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		csvCfg, err := prevCSV.resolve(cmd, cfg)
		if err != nil {
			return err
		}
		in, err := parser.ParseFile(args[0], csvCfg)
		if err != nil {
			return err
		}
		if prevJSON {
			b, err := utils.PrettyJSON(in.Sample)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if in.Sample == nil {
			fmt.Fprintf(out, "%s: text input (~%d tokens), sent verbatim\n\n%s\n", in.Name, in.Tokens(), in.Text)
			return nil
		}

		s := in.Sample
		fmt.Fprintf(out, "File: %s\n", in.Name)
		fmt.Fprintf(out, "Delimiter: %s\n", s.Delimiter)
		fmt.Fprintf(out, "Lines: %d (preview %d rows", s.TotalLines, len(s.Rows))
		if s.Truncated {
			fmt.Fprint(out, ", truncated")
		}
		fmt.Fprintln(out, ")")
		fmt.Fprintf(out, "Prompt: ~%d tokens\n\n", in.Tokens())

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(s.Headers, "\t"))
		rows := s.Rows
		if prevRows > 0 && len(rows) > prevRows {
			rows = rows[:prevRows]
		}
		for _, r := range rows {
			vals := make([]string, len(s.Headers))
			for i := range vals {
				vals[i] = r.At(i)
			}
			fmt.Fprintln(tw, strings.Join(vals, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if prevPrompt {
			fmt.Fprintf(out, "\n--- prompt ---\n%s\n", s.Prompt)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().BoolVar(&prevJSON, "json", false, "print the parsed sample as JSON")
	previewCmd.Flags().IntVarP(&prevRows, "rows", "n", 10, "rows to print (0 for all preview rows)")
	previewCmd.Flags().BoolVar(&prevPrompt, "prompt", false, "also print the prompt that would be sent")
	addCSVFlags(previewCmd, &prevCSV)
}
