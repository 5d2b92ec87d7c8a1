package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"lookup"},
		{"account", "open"},
		{"account", "balance"},
		{"account", "credit"},
		{"account", "set-balance"},
		{"account", "history"},
		{"ledger", "stats"},
		{"ledger", "reconcile"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"lookup needs an identifier", []string{"lookup"}, "accepts 1 arg"},
		{"credit needs an integer", []string{"account", "credit", "alice", "ten"}, `invalid amount "ten"`},
		{"set-balance needs an integer", []string{"account", "set-balance", "alice", "1.5"}, `invalid target "1.5"`},
		{"history rejects unknown types", []string{"account", "history", "alice", "--type", "refund"}, `unknown transaction type "refund"`},
		{"stats takes no args", []string{"ledger", "stats", "extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
