package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRosterColumns(t *testing.T) {
	tests := []struct {
		name      string
		header    []string
		wantName  int
		wantEmail int
		wantErr   bool
	}{
		{name: "plain", header: []string{"name", "email"}, wantName: 0, wantEmail: 1},
		{name: "prefixed aliases", header: []string{"client_email", "client_name"}, wantName: 1, wantEmail: 0},
		{name: "mixed case", header: []string{"ClientName", "EMAIL", "phone"}, wantName: 0, wantEmail: 1},
		{name: "byte order mark", header: []string{"\ufeffEmail", "full_name"}, wantName: 1, wantEmail: 0},
		{name: "no email column", header: []string{"name", "phone"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := resolveRosterColumns(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cols["name"])
			assert.Equal(t, tt.wantEmail, cols["email"])
		})
	}
}

func TestParseRoster(t *testing.T) {
	input := "Name,Email\n" +
		"Ada Lovelace, ada@example.com\n" +
		",grace@example.com\n" +
		"No Address,\n" +
		"Alan Turing,alan@example.com\n"

	rows, skipped, err := parseRoster(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 3)
	assert.Equal(t, "Ada Lovelace", rows[0].name)
	assert.Equal(t, "ada@example.com", rows[0].email)
	assert.Equal(t, "grace@example.com", rows[1].name)
	assert.Equal(t, "Alan Turing", rows[2].name)
	assert.Equal(t, 5, rows[2].line)
	assert.Equal(t, []int{1, 2, 4}, []int{rows[0].pos, rows[1].pos, rows[2].pos})
}

func TestParseRoster_Errors(t *testing.T) {
	_, _, err := parseRoster(strings.NewReader(""))
	assert.EqualError(t, err, "csv is empty")

	_, _, err = parseRoster(strings.NewReader("name,phone\nx,1\n"))
	assert.EqualError(t, err, "csv header has no email column")
}
