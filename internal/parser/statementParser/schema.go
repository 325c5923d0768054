package statementParser

import (
	"strings"
	"time"

	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
)

// Result is one parsed statement: the rows that passed structural checks,
// the snapshot date the statement describes and the count of rows dropped
// on numeric or identity validation.
type Result struct {
	Rows         []model.StatementRow
	SnapshotDate time.Time
	Rejected     int
}

type column struct {
	key      string
	aliases  []string
	optional bool
}

type tableSchema struct {
	anchor  string
	columns []column
}

// locate finds the header row by its anchor cell and maps every schema column
// to its index. Missing required columns come back inside a FormatError.
func (s tableSchema) locate(rows [][]string) (headerIdx int, colIdx map[string]int, err error) {
	anchorNorm := normalizeHeader(s.anchor)

	for i, row := range rows {
		found := false
		for _, cell := range row {
			if normalizeHeader(cell) == anchorNorm {
				found = true
				break
			}
		}
		if !found {
			continue
		}

		colIdx = make(map[string]int, len(s.columns))
		var missing []string
		for _, col := range s.columns {
			idx, ok := findColumn(row, col.aliases)
			if !ok {
				if !col.optional {
					missing = append(missing, col.aliases[0])
				}
				continue
			}
			colIdx[col.key] = idx
		}

		if len(missing) > 0 {
			return 0, nil, &FormatError{Reason: "missing required columns", Missing: missing}
		}
		return i, colIdx, nil
	}

	return 0, nil, &FormatError{Reason: "header row not found", Missing: []string{s.anchor}}
}

func findColumn(row []string, aliases []string) (int, bool) {
	for _, alias := range aliases {
		aliasNorm := normalizeHeader(alias)
		for i, cell := range row {
			if normalizeHeader(cell) == aliasNorm {
				return i, true
			}
		}
	}
	return 0, false
}

// normalizeHeader makes header comparison tolerant to case, padding and
// repeated inner whitespace.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseDecimal handles values like "1,234.56". Anything non-numeric is a miss.
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
