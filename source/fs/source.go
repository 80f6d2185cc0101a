// Package fs provides the local file source for the configuration document.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/yacchi/assigner/source"
)

type lockFile interface {
	Stat() (os.FileInfo, error)
	ReadAt(p []byte, off int64) (n int, err error)
	Close() error
	Fd() uintptr
}

type tempFile interface {
	Write(p []byte) (n int, err error)
	Sync() error
	Close() error
	Name() string
}

var (
	userHomeDir  = os.UserHomeDir
	osReadFile   = os.ReadFile
	osMkdirAll   = os.MkdirAll
	osChmod      = os.Chmod
	osRename     = os.Rename
	osRemove     = os.Remove
	fileLockFunc = fileLock

	openFile = func(name string, flag int, perm os.FileMode) (lockFile, error) {
		return os.OpenFile(name, flag, perm)
	}
	createTemp = func(dir, pattern string) (tempFile, error) {
		return os.CreateTemp(dir, pattern)
	}
)

// fileLock attempts to acquire an exclusive lock on the given file descriptor.
// Returns a function to release the lock. If locking is not supported by the
// filesystem the save proceeds unlocked and the returned unlock is a no-op.
func fileLock(fd int) (unlock func(), err error) {
	if err := flockExclusive(fd); err != nil {
		if isLockNotSupportedError(err) {
			return func() {}, nil
		}
		return nil, err
	}
	return func() { flockUnlock(fd) }, nil
}

// Default permission modes.
const (
	DefaultFileMode = 0644
	DefaultDirMode  = 0755
)

// Source loads and saves the configuration document from a file.
type Source struct {
	path     string
	fileMode os.FileMode
	dirMode  os.FileMode
}

var (
	_ source.Source     = (*Source)(nil)
	_ source.Subscriber = (*Source)(nil)
)

// Option configures a Source.
type Option func(*Source)

// WithFileMode sets the file permission mode used when saving.
// Default is 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Source) {
		s.fileMode = mode
	}
}

// WithDirMode sets the directory permission mode used when creating parent directories.
// Default is 0755.
func WithDirMode(mode os.FileMode) Option {
	return func(s *Source) {
		s.dirMode = mode
	}
}

// New creates a source that reads from and writes to a file.
// The path can be absolute or relative. Tilde (~) expansion is supported.
//
//	src := fs.New("_config.yml")
//	src := fs.New("~/courses/cs1001.toml", fs.WithFileMode(0600))
func New(path string, opts ...Option) *Source {
	s := &Source{
		path:     path,
		fileMode: DefaultFileMode,
		dirMode:  DefaultDirMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the path as given to New.
func (s *Source) Location() string {
	return s.path
}

// CanSave returns true because file system sources support saving.
func (s *Source) CanSave() bool {
	return true
}

// Path returns the expanded file path, or the original path when the home
// directory cannot be determined.
func (s *Source) Path() string {
	expanded, err := expandTilde(s.path)
	if err != nil {
		return s.path
	}
	return expanded
}

// Load reads the whole file. A missing file yields *source.NotExistError.
func (s *Source) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := expandTilde(s.path)
	if err != nil {
		return nil, err
	}

	data, err := osReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &source.NotExistError{Location: s.path, Err: err}
		}
		return nil, fmt.Errorf("failed to read file %q: %w", s.path, err)
	}
	return data, nil
}

// Save replaces the file with the bytes returned by updateFunc.
//
// An exclusive flock is held on the target while updateFunc runs so that two
// invocations sharing a configuration do not interleave. The write goes to a
// temporary file in the same directory which is then renamed over the
// target. Parent directories are created if they do not exist.
func (s *Source) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := expandTilde(s.path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := osMkdirAll(dir, s.dirMode); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	f, err := openFile(target, os.O_RDWR|os.O_CREATE, s.fileMode)
	if err != nil {
		return fmt.Errorf("failed to open file %q for locking: %w", target, err)
	}
	defer f.Close()

	unlock, err := fileLockFunc(int(f.Fd()))
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %q: %w", target, err)
	}
	defer unlock()

	current, err := readLocked(f, target)
	if err != nil {
		return err
	}
	data, err := updateFunc(current)
	if err != nil {
		return err
	}
	return s.replace(target, data)
}

// readLocked returns the content of the locked target, nil when it is empty.
func readLocked(f lockFile, target string) ([]byte, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %q: %w", target, err)
	}
	if stat.Size() == 0 {
		return nil, nil
	}
	data := make([]byte, stat.Size())
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("failed to read current file %q: %w", target, err)
	}
	return data, nil
}

// replace writes data next to target and renames it into place. The caller
// holds the lock on target.
func (s *Source) replace(target string, data []byte) (err error) {
	tmp, err := createTemp(filepath.Dir(target), ".assigner-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			osRemove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := osChmod(tmpPath, s.fileMode); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := osRename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to rename temporary file to %q: %w", target, err)
	}
	return nil
}

// Subscribe watches the file with fsnotify and calls notify(nil) whenever it
// is written, created or replaced. Watch errors are passed to notify.
// Notifications stop when ctx is done or the returned StopFunc is called.
func (s *Source) Subscribe(ctx context.Context, notify source.NotifyFunc) (source.StopFunc, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	path := s.Path()

	// Watch the directory so that rename-based saves, including our own,
	// are seen.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	filename := filepath.Base(path)

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					notify(nil)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				notify(err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return w.Close, nil
}

// expandTilde expands "~" and "~/path". Other forms are returned as-is.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}

	if len(path) == 1 {
		return homeDir, nil
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}
