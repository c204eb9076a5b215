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
	assert.Equal(t, "syncctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	paths := [][]string{
		{"replicate"},
		{"snapshot"},
		{"cache-students"},
		{"report", "worst"},
		{"report", "summary"},
		{"report", "group"},
		{"token"},
	}

	for _, path := range paths {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err, "命令 %v 应存在", path)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestReportFlags(t *testing.T) {
	cmd := NewRootCommand()

	worst, _, err := cmd.Find([]string{"report", "worst"})
	require.NoError(t, err)
	top := worst.Flags().Lookup("top")
	require.NotNil(t, top)
	assert.Equal(t, "10", top.DefValue)
	require.NotNil(t, worst.Flags().Lookup("lectures"))
	require.NotNil(t, worst.InheritedFlags().Lookup("from"))

	group, _, err := cmd.Find([]string{"report", "group"})
	require.NoError(t, err)
	require.NotNil(t, group.Flags().Lookup("group"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "token", "--subject", "ops"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReport_InvalidRangeFailsBeforeConnecting(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"report", "summary", "--lectures", "1", "--from", "2024-05-01", "--to", "2024-04-01"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
