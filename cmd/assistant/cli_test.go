package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	output, err := runRootCommandForTest("--help")
	require.NoError(t, err)

	for _, cmd := range []string{"chat", "ask", "sizes", "seed", "init", "status", "version"} {
		assert.Contains(t, output, cmd)
	}
}

func TestRootWithoutSubcommandFails(t *testing.T) {
	_, err := runRootCommandForTest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand")
}

func TestSizesCommandPrintsCharts(t *testing.T) {
	output, err := runRootCommandForTest("sizes")
	require.NoError(t, err)
	assert.True(t, strings.Contains(output, "XS") && strings.Contains(output, "XXL"))
}
