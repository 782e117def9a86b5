package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// AlignTables pads every markdown table in content so that its columns line
// up in a terminal, using display width for wide characters. Other lines are
// kept as they are.
func AlignTables(content string) string {
	lines := strings.Split(content, "\n")

	var (
		out   []string
		table []string
	)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			table = append(table, trimmed)
			continue
		}

		if len(table) > 0 {
			out = append(out, alignTable(table)...)
			table = nil
		}

		out = append(out, line)
	}

	if len(table) > 0 {
		out = append(out, alignTable(table)...)
	}

	return strings.Join(out, "\n")
}

func alignTable(rows []string) []string {
	// needs header and separator
	if len(rows) < 2 {
		return rows
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = splitRow(row)
	}

	cols := 0
	for _, row := range cells {
		cols = max(cols, len(row))
	}

	sep := -1
	if isSeparator(cells[1]) {
		sep = 1
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}

	for r, row := range cells {
		if r == sep {
			continue
		}

		for c, cell := range row {
			widths[c] = max(widths[c], runewidth.StringWidth(cell))
		}
	}

	out := make([]string, len(cells))

	for r, row := range cells {
		var sb strings.Builder

		sb.WriteString("|")

		for c := range cols {
			sb.WriteString(" ")

			if r == sep {
				sb.WriteString(strings.Repeat("-", widths[c]))
			} else {
				cell := ""
				if c < len(row) {
					cell = row[c]
				}

				sb.WriteString(runewidth.FillRight(cell, widths[c]))
			}

			sb.WriteString(" |")
		}

		out[r] = sb.String()
	}

	return out
}

// splitRow splits a table row on unescaped pipes and trims the cells.
func splitRow(row string) []string {
	row = strings.TrimPrefix(row, "|")
	if strings.HasSuffix(row, "|") && !strings.HasSuffix(row, `\|`) {
		row = row[:len(row)-1]
	}

	var (
		cells []string
		cur   strings.Builder
	)

	for i := 0; i < len(row); i++ {
		if row[i] == '\\' && i+1 < len(row) && row[i+1] == '|' {
			cur.WriteString(`\|`)
			i++

			continue
		}

		if row[i] == '|' {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()

			continue
		}

		cur.WriteByte(row[i])
	}

	return append(cells, strings.TrimSpace(cur.String()))
}

func isSeparator(row []string) bool {
	for _, cell := range row {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}

	return len(row) > 0
}

// escapeCell makes text safe inside a table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
