package source

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads JSON text from a file and watches it for writes.
type FileSource struct {
	path string
}

// NewFileSource wraps the file at path. The file does not need to exist
// until the first Read.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the watched file path.
func (s *FileSource) Path() string { return s.path }

// Read returns the file's current contents.
func (s *FileSource) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Subscribe starts an fsnotify watcher and runs fn on every write, create,
// or rename of the file. The watch is on the parent directory, filtered by
// name: watching the file inode directly goes silent after an atomic save
// (write to a temp file, rename over the original), which is how most
// editors write. The returned cancel stops the watcher and is idempotent.
func (s *FileSource) Subscribe(fn func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, err
	}

	watched := filepath.Clean(s.path)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != watched {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					fn()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			watcher.Close()
		})
	}
	return cancel, nil
}
