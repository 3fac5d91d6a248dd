package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/marklens/marklens/internal/config"
	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/variant"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <name>...",
	Short: "Show the variants a name expands into",
	Long: `Expand names into their search variants without touching the registry.

Useful for checking what a screening run would actually search: the cleaned
name, its core root after stop-word removal, the confusable permutations and
the fingilish transliteration.`,
	Args: cobra.ArbitraryArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("names-file", "f", "", "file with one name per line (- for stdin)")
	analyzeCmd.Flags().String("lexicon", "", "YAML lexicon override for variant expansion")
	analyzeCmd.Flags().Bool("json", false, "emit JSON instead of a table")
}

type nameAnalysis struct {
	Name     string              `json:"name"`
	Report   core.AnalysisReport `json:"report"`
	Variants []string            `json:"variants"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	namesFile, err := cmd.Flags().GetString("names-file")
	if err != nil {
		return err
	}
	names, err := resolveNames(args, namesFile)
	if err != nil {
		return err
	}

	lexPath, err := cmd.Flags().GetString("lexicon")
	if err != nil {
		return err
	}
	if lexPath == "" {
		lexPath = config.Get().Lexicon.Path
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	lex, err := loadLexicon(lexPath)
	if err != nil {
		return err
	}
	eng := variant.NewEngine(lex)

	analyses := make([]nameAnalysis, 0, len(names))
	for _, name := range names {
		set, report := eng.Analyze(name)
		analyses = append(analyses, nameAnalysis{
			Name:     name,
			Report:   report,
			Variants: set.Values(),
		})
	}

	if asJSON {
		data, err := json.MarshalIndent(analyses, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for _, a := range analyses {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(a.Name)
		t.AppendHeader(table.Row{"#", "Variant"})
		for i, v := range a.Variants {
			t.AppendRow(table.Row{i + 1, v})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("root: %s | fingilish: %s", a.Report.CoreRoot, a.Report.Fingilish)})
		fmt.Println(t.Render())
	}
	return nil
}
