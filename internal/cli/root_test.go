package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontogen/internal/domainerr"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ontogen", cmd.Use)
	assert.Contains(t, cmd.Long, "baseline")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "build", "ids", "check", "migrate", "baseline", "history", "query", "watch", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestHistorySubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"show", "diff"} {
		sub, _, err := cmd.Find([]string{"history", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
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

	dirFlag := cmd.PersistentFlags().Lookup("dir")
	require.NotNil(t, dirFlag)
	assert.Equal(t, ".", dirFlag.DefValue)
}

func TestBuildCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	buildCmd, _, err := cmd.Find([]string{"build"})
	require.NoError(t, err)

	outFlag := buildCmd.Flags().Lookup("out")
	require.NotNil(t, outFlag)
	assert.Equal(t, "o", outFlag.Shorthand)
	assert.NotNil(t, buildCmd.Flags().Lookup("pretty"))
}

func TestCheckCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	checkCmd, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)

	baselineFlag := checkCmd.Flags().Lookup("baseline")
	require.NotNil(t, baselineFlag)
	assert.Equal(t, "b", baselineFlag.Shorthand)
	assert.Equal(t, "", baselineFlag.DefValue)
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	debounce := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounce)
	assert.Equal(t, "100ms", debounce.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	dir := newTestProject(t, librarySource)
	_, _, err := execute(t, "validate", "--dir", dir, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"syntax", domainerr.Syntax(3, "bogus", "unexpected line"), ExitFailure},
		{"semantic", domainerr.Semantic([]string{"x"}), ExitFailure},
		{"policy", domainerr.Policy("declared patch bump is below the required major bump", nil), ExitFailure},
		{"io", domainerr.IO("baseline missing", "record one", nil), ExitCommandError},
		{"wrapped policy", fmt.Errorf("check: %w", domainerr.Policy("p", nil)), ExitFailure},
		{"plain", errors.New("boom"), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestExitErrorMessage(t *testing.T) {
	assert.Equal(t, "msg", NewExitError(1, "msg").Error())

	cause := errors.New("cause")
	wrapped := WrapExitError(2, "msg", cause)
	assert.Equal(t, "msg: cause", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}
