package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Pirozshki/FinancePro/internal/models"
)

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [month]",
		Short: "Show spending against limits for a month (default: current month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig(opts)
			if err != nil {
				return err
			}

			month := time.Now().Month().String()
			if len(args) == 1 {
				month = args[0]
			}
			if !models.IsMonth(month) {
				return fmt.Errorf("unknown month %q: use an English month name such as %s", month, models.Months[0])
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.store.Close()

			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(a.store.Document().Summarize(month)))
			return nil
		},
	}
}
