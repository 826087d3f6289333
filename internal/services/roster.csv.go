package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// rosterAliases maps each roster field to the header names accepted for it.
// Headers are compared case-insensitively.
var rosterAliases = map[string][]string{
	"name":  {"name", "client_name", "Name", "ClientName", "full_name"},
	"email": {"email", "client_email", "Email", "ClientEmail", "email_address"},
}

type rosterRow struct {
	line int
	// pos is the 1-based position among the data records, skipped ones
	// included; 0 when the row did not come from a file.
	pos   int
	name  string
	email string
}

// resolveRosterColumns returns the column index of every roster field.
func resolveRosterColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(rosterAliases))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for field, aliases := range rosterAliases {
			if _, seen := cols[field]; seen {
				continue
			}
			for _, alias := range aliases {
				if h == strings.ToLower(alias) {
					cols[field] = i
					break
				}
			}
		}
	}
	if _, ok := cols["email"]; !ok {
		return nil, errors.New("csv header has no email column")
	}
	return cols, nil
}

// parseRoster reads a CSV roster with a header line. Rows without an email
// are skipped and counted; they still take up their position.
func parseRoster(r io.Reader) ([]rosterRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, errors.New("csv is empty")
		}
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	cols, err := resolveRosterColumns(header)
	if err != nil {
		return nil, 0, err
	}

	var (
		rows    []rosterRow
		skipped int
		line    = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("read csv line %d: %w", line, err)
		}

		email := field(record, cols, "email")
		if email == "" {
			skipped++
			continue
		}
		name := field(record, cols, "name")
		if name == "" {
			name = email
		}
		rows = append(rows, rosterRow{line: line, pos: line - 1, name: name, email: email})
	}
	return rows, skipped, nil
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
