// Package csvparse reads Chase statement exports (credit card and checking
// account layouts) into debit records.
package csvparse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrFormat means no known header row or a required column is missing.
	ErrFormat = errors.New("unrecognized statement format")
	// ErrNoExpenses means the statement parsed but held no debit rows.
	ErrNoExpenses = errors.New("no expense transactions found")
)

const sourceDateLayout = "1/2/2006"

// headerPrefixes identify the header row of each export layout: credit card
// exports start with "Transaction Date", checking exports with "Details".
var headerPrefixes = []string{"Transaction Date", "Date,", "Details,"}

// dateColumns are tried in order: credit card, checking, generic.
var dateColumns = []string{"Transaction Date", "Posting Date", "Date"}

// excludedTypes are Type column values that are never imported.
var excludedTypes = map[string]bool{
	"Payment": true,
	"Return":  true,
	"Credit":  true,
}

// Record is one debit row of a statement.
type Record struct {
	Date           string          `json:"date"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	SourceCategory string          `json:"sourceCategory,omitempty"`
	Type           string          `json:"type,omitempty"`
}

// Columns holds resolved column indices; optional columns are -1 when
// absent.
type Columns struct {
	Date        int
	Description int
	Amount      int
	Category    int
	Type        int
}

// Result is the outcome of parsing a statement.
type Result struct {
	Records []Record
	// Skipped counts rows after the header that were not imported.
	Skipped int
}

// ParseStatement parses a raw statement export. It returns ErrFormat when
// the layout is not recognized and ErrNoExpenses when no debit rows remain
// after filtering. Malformed rows are skipped, never fatal.
func ParseStatement(content string) (*Result, error) {
	lines := Normalize(content)

	headerIdx := FindHeader(lines)
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no header row found", ErrFormat)
	}

	cols, err := ResolveColumns(SplitLine(lines[headerIdx]))
	if err != nil {
		return nil, err
	}

	res := &Result{Records: []Record{}}
	for _, line := range lines[headerIdx+1:] {
		rec, ok := parseRow(SplitLine(line), cols)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if len(res.Records) == 0 {
		return res, ErrNoExpenses
	}
	return res, nil
}

// Normalize strips a leading byte-order mark, unifies line endings and
// drops blank lines.
func Normalize(content string) []string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var lines []string
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// FindHeader returns the index of the first header row, or -1.
func FindHeader(lines []string) int {
	for i, l := range lines {
		normalized := strings.TrimSpace(strings.ReplaceAll(l, `"`, ""))
		for _, prefix := range headerPrefixes {
			if strings.HasPrefix(normalized, prefix) {
				return i
			}
		}
	}
	return -1
}

// SplitLine splits a line on commas outside quotes. A quote toggles quoted
// mode and is dropped; fields are trimmed.
func SplitLine(line string) []string {
	var (
		cols     []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			cols = append(cols, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(cols, strings.TrimSpace(current.String()))
}

// ResolveColumns finds column indices by exact header name.
func ResolveColumns(header []string) (Columns, error) {
	index := func(name string) int {
		for i, h := range header {
			if strings.ReplaceAll(h, `"`, "") == name {
				return i
			}
		}
		return -1
	}

	cols := Columns{
		Date:        -1,
		Description: index("Description"),
		Amount:      index("Amount"),
		Category:    index("Category"),
		Type:        index("Type"),
	}
	for _, name := range dateColumns {
		if i := index(name); i >= 0 {
			cols.Date = i
			break
		}
	}

	var missing []string
	if cols.Date < 0 {
		missing = append(missing, "date")
	}
	if cols.Description < 0 {
		missing = append(missing, "Description")
	}
	if cols.Amount < 0 {
		missing = append(missing, "Amount")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: missing columns %s", ErrFormat, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(fields []string, cols Columns) (Record, bool) {
	amount, err := decimal.NewFromString(field(fields, cols.Amount))
	if err != nil || !amount.IsNegative() {
		return Record{}, false
	}

	txType := field(fields, cols.Type)
	if excludedTypes[txType] {
		return Record{}, false
	}

	date, err := time.Parse(sourceDateLayout, field(fields, cols.Date))
	if err != nil {
		return Record{}, false
	}

	return Record{
		Date:           date.Format(models.DateLayout),
		Description:    field(fields, cols.Description),
		Amount:         amount.Abs(),
		SourceCategory: field(fields, cols.Category),
		Type:           txType,
	}, true
}

// field returns the cleaned value at idx, or "" when the column is absent
// or the row is short.
func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(fields[idx], `"`, ""))
}
