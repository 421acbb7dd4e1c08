package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRootCmd_RegistersSubcommands(t *testing.T) {
	root := buildRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	require.Contains(t, names, "run")
	require.Contains(t, names, "status")
}

func TestBuildRunCmd_RequiresExactlyOneArg(t *testing.T) {
	cmd := buildRunCmd()
	require.NoError(t, cmd.Args(cmd, []string{"prompt text"}))
	require.Error(t, cmd.Args(cmd, []string{}))
	require.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}
