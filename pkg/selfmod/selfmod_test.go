package selfmod_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/selfmod"
)

func TestCanModifyRejectsProtectedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	gate := selfmod.New([]string{path}, []string{path}, filepath.Join(dir, "backups"), nil)
	assert.False(t, gate.CanModify(path))
}

func TestProposeModificationBacksUpBeforeReturning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	gate := selfmod.New([]string{path}, nil, filepath.Join(dir, "backups"), nil)
	proposal, err := gate.ProposeModification(path, selfmod.ModOptimize, "tune a loop")
	require.NoError(t, err)
	assert.Equal(t, selfmod.RiskMedium, proposal.Risk)
	_, err = os.Stat(proposal.Backup.BackupPath)
	require.NoError(t, err)
}

func TestApplyModificationRollsBackOnBadSyntax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.go")
	original := "package main\n\nfunc Foo() {}\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	gate := selfmod.New([]string{path}, nil, filepath.Join(dir, "backups"), nil)
	proposal, err := gate.ProposeModification(path, selfmod.ModModify, "break it")
	require.NoError(t, err)

	result := gate.ApplyModification(path, "this is not valid go {{{", proposal)
	assert.False(t, result.Success)
	assert.True(t, result.RolledBack)

	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(restored))
}

func TestRiskForByModType(t *testing.T) {
	assert.Equal(t, selfmod.RiskLow, selfmod.RiskFor(selfmod.ModAdd))
	assert.Equal(t, selfmod.RiskMedium, selfmod.RiskFor(selfmod.ModRefactor))
	assert.Equal(t, selfmod.RiskHigh, selfmod.RiskFor(selfmod.ModDelete))
}
