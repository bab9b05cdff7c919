package assets

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/sylvagraph/sylva/engine/core"
)

// Source fetches raw asset bytes by registry path.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// HTTPSource fetches assets from a base URL.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	u, err := url.JoinPath(s.BaseURL, path)
	if err != nil {
		return nil, errors.Wrapf(err, "building url for %q", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %q", path)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %q", u)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching %q: status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading body of %q", u)
	}
	return data, nil
}

// DirSource fetches assets from a directory tree and can watch it for
// changes, announcing modified registry paths on Changes.
type DirSource struct {
	BaseDir string

	watcher *fsnotify.Watcher
	changes chan string
	done    chan struct{}
}

func NewDirSource(baseDir string) *DirSource {
	return &DirSource{
		BaseDir: baseDir,
		changes: make(chan string, 16),
		done:    make(chan struct{}),
	}
}

func (s *DirSource) Fetch(_ context.Context, path string) ([]byte, error) {
	full := filepath.Join(s.BaseDir, filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", full)
	}
	return data, nil
}

// Changes delivers registry paths whose backing files changed on disk while
// watching. Nil until Watch is called.
func (s *DirSource) Changes() <-chan string {
	return s.changes
}

// Watch starts watching the base directory recursively. New subdirectories
// are added to the watch as they appear.
func (s *DirSource) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	s.watcher = w

	err = filepath.Walk(s.BaseDir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.Add(walkPath)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return errors.Wrapf(err, "watching %q", s.BaseDir)
	}

	go s.run()
	return nil
}

func (s *DirSource) run() {
	for {
		select {
		case e, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					s.watcher.Add(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if rel, err := filepath.Rel(s.BaseDir, e.Name); err == nil {
					select {
					case s.changes <- filepath.ToSlash(rel):
					default:
						core.LogDebug("change channel full, dropping %s", e.Name)
					}
				}
			}
		case e, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", e.Error())
		case <-s.done:
			s.watcher.Close()
			return
		}
	}
}

// Close stops the watcher if one was started.
func (s *DirSource) Close() {
	if s.watcher != nil {
		close(s.done)
	}
}
