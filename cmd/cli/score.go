package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"homeops-backend/pkg/scoring"

	"github.com/spf13/cobra"
)

type scoreOptions struct {
	rules         string
	threshold     int
	displayedOnly bool
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score a JSON array of email records",
		Long: `Score reads a JSON array of email records from a file, or from stdin when
no file is given, and prints the scored records as JSON in input order.

Each record may carry subject, snippet, sender, category and priority; the
camelCase, snake_case and Gmail style field names are all accepted.`,
		Example: `  homeops score inbox.json
  cat inbox.json | homeops score --threshold 8 --displayed-only
  homeops score --rules rules.yaml inbox.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runScore(in, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.rules, "rules", "", "YAML rule file overriding the built-in tables")
	cmd.Flags().IntVar(&opts.threshold, "threshold", -1, "display threshold (default: the rule set's)")
	cmd.Flags().BoolVar(&opts.displayedOnly, "displayed-only", false, "print only records that pass the threshold")
	return cmd
}

func runScore(in io.Reader, out io.Writer, opts *scoreOptions) error {
	scorer, err := scoring.Load(opts.rules)
	if err != nil {
		return err
	}
	if opts.threshold >= 0 {
		scorer = scorer.WithThreshold(opts.threshold)
	}

	var records []scoring.EmailRecord
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return fmt.Errorf("failed to decode email records: %w", err)
	}

	results := scorer.ScoreBatch(records)
	if opts.displayedOnly {
		shown := make([]scoring.ScoredEmail, 0, len(results))
		for _, r := range results {
			if r.ShouldDisplay {
				shown = append(shown, r)
			}
		}
		results = shown
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
