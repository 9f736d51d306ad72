package file

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces the burst of events a single editor save produces.
const debounce = 50 * time.Millisecond

// Watch reports the name of every .go source created, written, removed or
// renamed below BasePath until ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := s.addDirs(w, s.BasePath); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer w.Close()

		pending := make(map[string]bool)
		timer := time.NewTimer(debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = s.addDirs(w, ev.Name)
						continue
					}
				}
				name, ok := s.sourceName(ev.Name)
				if !ok || ev.Op == fsnotify.Chmod {
					continue
				}
				pending[name] = true
				timer.Reset(debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("source watcher error", "err", err)
			case <-timer.C:
				for name := range pending {
					select {
					case out <- name:
					case <-ctx.Done():
						return
					}
				}
				clear(pending)
			}
		}
	}()
	return out, nil
}

func (s *Store) addDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != s.BasePath && skipDir(d.Name()) {
			return fs.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

func (s *Store) sourceName(p string) (string, bool) {
	base := filepath.Base(p)
	if filepath.Ext(p) != ".go" || strings.HasSuffix(base, "_test.go") || strings.HasPrefix(base, "tmp-") {
		return "", false
	}
	rel, err := filepath.Rel(s.BasePath, p)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
