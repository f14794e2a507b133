package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pirozshki/FinancePro/internal/categorize"
	"github.com/Pirozshki/FinancePro/internal/csvparse"
	"github.com/Pirozshki/FinancePro/internal/ingest"
	"github.com/Pirozshki/FinancePro/internal/models"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	var overrides []string

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Review a Chase CSV export and merge its debits into the budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig(opts)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read statement: %w", err)
			}
			parsedOverrides, err := parseOverrides(overrides)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.shutdown()

			filename := filepath.Base(args[0])
			if a.archive != nil {
				if blobName, err := a.archive.Save(cmd.Context(), filename, string(data)); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: statement not archived: %v\n", err)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Archived as %s\n", blobName)
				}
			}

			session := ingest.NewSession(categorize.NewMapper(nil))
			return runImport(cmd, session, a.store, filename, string(data), parsedOverrides, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "merge the reviewed rows without asking again")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, `override a row's category, e.g. --set "3=🚗 Transport"`)

	return cmd
}

type rowOverride struct {
	index    int
	category string
}

// parseOverrides reads 1-based "row=category" pairs.
func parseOverrides(raw []string) ([]rowOverride, error) {
	out := make([]rowOverride, 0, len(raw))
	for _, r := range raw {
		idx, category, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(category) == "" {
			return nil, fmt.Errorf("invalid --set %q: expected row=category", r)
		}
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid --set %q: row must be a positive number", r)
		}
		out = append(out, rowOverride{index: n - 1, category: strings.TrimSpace(category)})
	}
	return out, nil
}

type budgetSource interface {
	ingest.Committer
	Document() *models.BudgetDocument
}

func runImport(cmd *cobra.Command, session *ingest.Session, budget budgetSource, source, content string, overrides []rowOverride, yes bool) error {
	out := cmd.OutOrStdout()

	err := session.Load(source, content, budget.Document().Categories)
	switch {
	case errors.Is(err, csvparse.ErrNoExpenses):
		fmt.Fprintln(out, ingest.MessageNoExpense)
		return nil
	case errors.Is(err, csvparse.ErrFormat):
		return errors.New(ingest.MessageFormat)
	case err != nil:
		return err
	}

	for _, o := range overrides {
		if err := session.SetCategory(o.index, o.category); err != nil {
			return fmt.Errorf("row %d: %w", o.index+1, err)
		}
	}

	state := session.State()
	fmt.Fprintln(out, renderCandidates(state.Candidates))

	if !yes {
		fmt.Fprintf(out, "Dry run: re-run with --yes to import %d transactions.\n", len(state.Candidates))
		return nil
	}

	n, err := session.Confirm(budget)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d transactions.\n", n)
	return nil
}
