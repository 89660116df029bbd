package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/liamg/memoryfs"
)

const (
	dirMode  fs.FileMode = 0o755
	fileMode fs.FileMode = 0o644
)

// Target is the filesystem a run writes into. Names are slash separated and
// relative to the target's root.
type Target interface {
	MkdirAll(name string, perm fs.FileMode) error
	WriteFile(name string, data []byte, perm fs.FileMode) error
	ReadFile(name string) ([]byte, error)
}

// Dir is a Target backed by a directory of the local file system.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root. An empty root means the working
// directory. The root does not need to exist yet.
func NewDir(root string) *Dir {
	if len(root) == 0 {
		root = "."
	}

	return &Dir{root: root}
}

// Root returns the directory names are resolved against.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the local path of name. Absolute names are kept as they are.
func (d *Dir) Path(name string) string {
	p := filepath.FromSlash(name)
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(d.root, p)
}

func (d *Dir) MkdirAll(name string, perm fs.FileMode) error {
	return os.MkdirAll(d.Path(name), perm)
}

func (d *Dir) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.Path(name))
}

// WriteFile opens name for writing, truncating an existing file. Symlinks are
// followed and an existing file keeps its mode.
func (d *Dir) WriteFile(name string, data []byte, perm fs.FileMode) (err error) {
	file, err := os.OpenFile(d.Path(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// Overlay keeps every write in memory. Reads of names it has not written
// fall through to base, so region splicing sees the real files.
type Overlay struct {
	mem  *memoryfs.FS
	base Target
}

// NewOverlay returns an empty Overlay over base. base may be nil.
func NewOverlay(base Target) *Overlay {
	return &Overlay{mem: memoryfs.New(), base: base}
}

// FS exposes what has been written so far.
func (o *Overlay) FS() fs.FS {
	return o.mem
}

func (o *Overlay) MkdirAll(name string, perm fs.FileMode) error {
	if name = memName(name); name == "." {
		return nil
	}

	return o.mem.MkdirAll(name, perm)
}

func (o *Overlay) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return o.mem.WriteFile(memName(name), data, perm)
}

func (o *Overlay) ReadFile(name string) ([]byte, error) {
	data, err := fs.ReadFile(o.mem, memName(name))
	if err == nil || o.base == nil {
		return data, err
	}

	return o.base.ReadFile(name)
}

func memName(name string) string {
	return strings.TrimPrefix(path.Clean(name), "/")
}
