package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/coach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", ""}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "", "version")
	assert.Equal(t, "coach version "+strings.TrimSpace(coach.Version)+"\n", out)
}

func TestInspectCommand(t *testing.T) {
	out := execute(t, "", "inspect")
	assert.Contains(t, out, "Problem Clarification")
	assert.Contains(t, out, "Pattern Summary")
	assert.Equal(t, 8, strings.Count(out, "\n"))
}

func TestChatAndSessionCommands(t *testing.T) {
	t.Setenv("COACH_STORE_DRIVER", "file")
	t.Setenv("COACH_STORE_PATH", t.TempDir())
	t.Setenv("COACH_LOG_LEVEL", "error")

	out := execute(t, "I think a stack fits\nexit\n",
		"chat", "--plain", "--session", "cli-1", "Check balanced brackets.")
	assert.Contains(t, out, "Check balanced brackets.")
	assert.Contains(t, out, "Session cli-1 saved. Bye!")

	out = execute(t, "", "session", "ls")
	assert.Contains(t, out, "cli-1")

	out = execute(t, "", "session", "rm", "cli-1")
	assert.Contains(t, out, "Removed session 'cli-1'")

	out = execute(t, "", "session", "ls")
	assert.Contains(t, out, "No sessions found.")
}
