package session

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/db-magnus/dataform/pkg/core"
)

// debounceInterval coalesces bursts of filesystem events into one
// recompilation.
const debounceInterval = 100 * time.Millisecond

// Watch compiles the project once, then recompiles it whenever definitions
// or configuration under the project directory change, reporting every
// result (graph or error) through onResult. It blocks until ctx is done.
func (s *Session) Watch(ctx context.Context, req core.CompileConfig, onResult func(*core.CompiledGraph, error)) error {
	projectDir, err := filepath.Abs(req.ProjectDir)
	if err != nil {
		return err
	}
	req.ProjectDir = projectDir

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, projectDir); err != nil {
		return err
	}

	compile := func() {
		g, err := s.Compile(ctx, req)
		onResult(g, err)
	}
	compile()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// New directories need watching too.
			if event.Op&fsnotify.Create != 0 {
				_ = watchDirRecursive(watcher, event.Name)
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, func() {
				s.logger.Debug("project changed, recompiling", "file", event.Name)
				compile()
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
// Plain files are covered by their parent directory's watch.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
