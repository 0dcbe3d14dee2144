// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(args ...string) (string, error) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := executeCommand("--help")
	require.NoError(t, err)
	assert.Contains(t, out, "tempo")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "migrate")
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := executeCommand("bogus")
	require.Error(t, err)
}

func TestServeCmd_Flags(t *testing.T) {
	cmd := NewServeCmd()
	for _, name := range []string{"database.url", "observability.addr", "log.format", "log.level"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := NewMigrateCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"up", "down", "version"}, names)
}

func TestMigrateCmd_BadConfigPath(t *testing.T) {
	t.Cleanup(func() { configFile = "" })
	configFile = "/nonexistent/tempo.yaml"

	cmd := NewMigrateCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})
	err := cmd.Execute()
	require.Error(t, err)
}
