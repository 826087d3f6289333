package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationCommand(t *testing.T) {
	tests := []struct {
		argv    []string
		command string
		args    []string
	}{
		{nil, "up", nil},
		{[]string{"--dir=./migrations"}, "up", nil},
		{[]string{"migrate", "--env=.env"}, "up", nil},
		{[]string{"migrate", "status"}, "status", nil},
		{[]string{"down", "--dir=x"}, "down", []string{}},
		{[]string{"migrate", "up-to", "3"}, "up-to", []string{"3"}},
	}
	for _, tt := range tests {
		command, args := migrationCommand(tt.argv)
		assert.Equal(t, tt.command, command, "%v", tt.argv)
		assert.Equal(t, len(tt.args), len(args), "%v", tt.argv)
		if len(tt.args) > 0 {
			assert.Equal(t, tt.args, args)
		}
	}
}
