package domain

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// CSVToMarkdown renders CSV text as a markdown table. At most maxRows data
// rows are rendered; maxRows <= 0 renders all rows.
func CSVToMarkdown(r io.Reader, maxRows int) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	writeMarkdownRow(&b, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeMarkdownRow(&b, sep)

	for n := 0; maxRows <= 0 || n < maxRows; n++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		writeMarkdownRow(&b, padRow(row, len(header)))
	}
	return b.String(), nil
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
