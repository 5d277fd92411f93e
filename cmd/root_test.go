package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_SubcommandsRegistered(t *testing.T) {
	expected := []string{"collect", "export", "run", "bridge"}
	for _, name := range expected {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "subcommand %q must be registered", name)
	}
}

func TestRootCmd_LogFlagDefault(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("log")
	require.NotNil(t, flag)
	assert.Equal(t, "info", flag.DefValue)
}
