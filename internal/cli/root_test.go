package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "comicsync", cmd.Use)
	assert.Contains(t, cmd.Long, "staleness sweep")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"},
		{"sync", "code"},
		{"sync", "id"},
		{"sync", "related"},
		{"sync", "purchased"},
		{"sweep"},
		{"queue", "add"},
		{"queue", "list"},
		{"queue", "remove"},
		{"acquire"},
		{"dump"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestSweepCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sweepCmd, _, err := cmd.Find([]string{"sweep"})
	require.NoError(t, err)

	for _, name := range []string{"page-size", "max-pages", "max-age-days"} {
		flag := sweepCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "0", flag.DefValue)
	}
}

func TestAcquireCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	acquireCmd, _, err := cmd.Find([]string{"acquire"})
	require.NoError(t, err)

	require.NotNil(t, acquireCmd.Flags().Lookup("decision"))
	require.NotNil(t, acquireCmd.Flags().Lookup("purchase"))
}

func TestRootInvalidFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "xml", "dump"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
