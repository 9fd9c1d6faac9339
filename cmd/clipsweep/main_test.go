package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := rootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoot_Version(t *testing.T) {
	out, err := execRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestRoot_RejectsExtraArgs(t *testing.T) {
	_, err := execRoot(t, "a", "b")
	assert.Error(t, err)
}

func TestRoot_RequiresFolder(t *testing.T) {
	_, err := execRoot(t, "--color=never")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder")
}

func TestRoot_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative threshold", []string{"--threshold", "-1"}},
		{"bad time box", []string{"--time-box", "1,2,3"}},
		{"zero workers", []string{"--workers", "0"}},
		{"bad color", []string{"--color=sometimes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, t.TempDir())
			_, err := execRoot(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestRoot_MissingFolder(t *testing.T) {
	_, err := execRoot(t, "--color=never", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, errFailed)
}
