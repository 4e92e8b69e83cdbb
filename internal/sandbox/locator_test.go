package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainLocatorPrefersProjectBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, ProjectBundlePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(bundle), 0o755))
	require.NoError(t, os.WriteFile(bundle, []byte("#!/bin/sh\n"), 0o755))

	w, err := DefaultLocator().Locate(dir)
	require.NoError(t, err)
	assert.Equal(t, bundle, w.Path)
}

func TestChainLocatorFirstHitWins(t *testing.T) {
	second := &Worker{Path: "/opt/second"}
	calls := 0

	l := &chainLocator{strategies: []strategy{
		func(string) (*Worker, string, error) {
			calls++
			return nil, "first", nil
		},
		func(string) (*Worker, string, error) {
			calls++
			return second, "second", nil
		},
		func(string) (*Worker, string, error) {
			t.Fatal("strategy after a hit must not run")
			return nil, "", nil
		},
	}}

	w, err := l.Locate(t.TempDir())
	require.NoError(t, err)
	assert.Same(t, second, w)
	assert.Equal(t, 2, calls)
}

func TestChainLocatorExhaustedReportsTried(t *testing.T) {
	l := &chainLocator{strategies: []strategy{
		func(string) (*Worker, string, error) { return nil, "/a/worker", nil },
		func(string) (*Worker, string, error) { return nil, "/b/worker", nil },
	}}

	_, err := l.Locate(t.TempDir())

	var notFound *WorkerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"/a/worker", "/b/worker"}, notFound.Tried)
	assert.Contains(t, err.Error(), "/a/worker")
}

func TestLocateProjectBundleIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProjectBundlePath), 0o755))

	w, _, err := locateProjectBundle(dir)
	require.NoError(t, err)
	assert.Nil(t, w)
}
