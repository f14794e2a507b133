package commands

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Pirozshki/FinancePro/internal/ingest"
	"github.com/Pirozshki/FinancePro/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	amountStyle = cellStyle.Align(lipgloss.Right)
	overStyle   = amountStyle.Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderCandidates lists the rows of an import under review. Row numbers
// are 1-based, matching the --set flag.
func renderCandidates(candidates []ingest.Candidate) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "Date", "Description", "Amount", "Chase category", "Category").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3:
				return amountStyle
			default:
				return cellStyle
			}
		})

	for i, c := range candidates {
		category := c.Category
		if c.SuggestedCategory == "" {
			category += " (default)"
		}
		t.Row(strconv.Itoa(i+1), c.Date, c.Description, c.Amount.StringFixed(2), c.SourceCategory, category)
	}
	return t.Render()
}

// renderSummary shows a month's spending by category against its limits.
func renderSummary(s models.MonthSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Category", "Spent", "Limit").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			case col == 1 && row < len(s.Categories) && s.Categories[row].OverLimit:
				return overStyle
			default:
				return amountStyle
			}
		})

	for _, c := range s.Categories {
		limit := "-"
		if c.HasLimit {
			limit = c.Limit.StringFixed(2)
		}
		t.Row(c.Category, c.Spent.StringFixed(2), limit)
	}

	totals := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 1 {
				return amountStyle
			}
			return cellStyle
		}).
		Row("Income", s.Income.StringFixed(2)).
		Row("Spent", s.TotalSpent.StringFixed(2)).
		Row("Extra income", s.ExtraIncome.StringFixed(2)).
		Row("Balance", s.Balance.StringFixed(2)).
		Row("Total limits", s.TotalLimit.StringFixed(2)).
		Row("Projected savings", s.ProjectedSavings.StringFixed(2))

	title := headerStyle.Render(s.Month)
	return lipgloss.JoinVertical(lipgloss.Left, title, t.Render(), totals.Render())
}
