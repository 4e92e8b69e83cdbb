package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ProjectBundlePath is the location, relative to the project directory, of
// an optional prebuilt, project-specific worker bundle.
const ProjectBundlePath = ".dataform/worker"

// LoaderBinaryName is the generic compile-loader artifact shipped alongside
// the harness, used when a project carries no bundle of its own.
const LoaderBinaryName = "dataform-worker"

// Worker describes a resolved worker executable.
type Worker struct {
	// Path is the executable to spawn.
	Path string
	// Args are passed to the executable.
	Args []string
	// Env entries are appended to the inherited environment.
	Env []string
}

// Locator resolves the worker executable for a project.
type Locator interface {
	// Locate returns the worker to spawn for projectDir, or a
	// WorkerNotFoundError when nothing resolves.
	Locate(projectDir string) (*Worker, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(projectDir string) (*Worker, error)

func (f LocatorFunc) Locate(projectDir string) (*Worker, error) {
	return f(projectDir)
}

// strategy is one step of the resolution chain. It returns (nil, desc, nil)
// when it does not apply, where desc records what was checked.
type strategy func(projectDir string) (*Worker, string, error)

// chainLocator tries an ordered list of strategies; the first hit wins.
type chainLocator struct {
	strategies []strategy
}

// DefaultLocator returns the standard resolution chain: a prebuilt worker
// bundle inside the project, then the generic loader next to the harness
// executable, then the generic loader on PATH.
func DefaultLocator() Locator {
	return &chainLocator{strategies: []strategy{
		locateProjectBundle,
		locateLoaderBesideHarness,
		locateLoaderOnPath,
	}}
}

func (l *chainLocator) Locate(projectDir string) (*Worker, error) {
	var tried []string
	for _, s := range l.strategies {
		worker, desc, err := s(projectDir)
		if err != nil {
			return nil, err
		}
		if worker != nil {
			return worker, nil
		}
		tried = append(tried, desc)
	}
	return nil, &WorkerNotFoundError{Tried: tried}
}

func locateProjectBundle(projectDir string) (*Worker, string, error) {
	path := filepath.Join(projectDir, ProjectBundlePath)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return &Worker{Path: path}, path, nil
	}
	return nil, path, nil
}

func locateLoaderBesideHarness(string) (*Worker, string, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Sprintf("%s beside harness", LoaderBinaryName), nil
	}
	path := filepath.Join(filepath.Dir(self), LoaderBinaryName)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return &Worker{Path: path}, path, nil
	}
	return nil, path, nil
}

func locateLoaderOnPath(string) (*Worker, string, error) {
	desc := fmt.Sprintf("%s on PATH", LoaderBinaryName)
	if path, err := exec.LookPath(LoaderBinaryName); err == nil {
		return &Worker{Path: path}, desc, nil
	}
	return nil, desc, nil
}
