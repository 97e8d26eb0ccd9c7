package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mezonai/accounting/db"
	"github.com/pkg/errors"
)

// Backend stores named blobs. Read returns nil, nil for a missing name and
// Delete of a missing name is not an error.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Delete(name string) error
	Exists(name string) (bool, error)
	Location(name string) string
}

// FileBackend keeps one file per name inside a storage directory.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve storage dir %s", dir)
	}
	return &FileBackend{dir: abs}, nil
}

func (f *FileBackend) Location(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *FileBackend) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(f.Location(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

// Write replaces the file atomically: the data is written to a temp file in
// the same directory, synced, then renamed over the target.
func (f *FileBackend) Write(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", name)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, f.Location(name)); err != nil {
		return errors.Wrapf(err, "rename %s", tmpName)
	}
	return syncDir(f.dir)
}

func (f *FileBackend) Delete(name string) error {
	err := os.Remove(f.Location(name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %s", name)
	}
	return nil
}

func (f *FileBackend) Exists(name string) (bool, error) {
	_, err := os.Stat(f.Location(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", name)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "open dir %s", dir)
	}
	defer d.Close()
	// some filesystems refuse fsync on directories
	_ = d.Sync()
	return nil
}

const PrefixStore = "store:"

// ProviderBackend keeps each named blob under PrefixStore+name in a database provider.
type ProviderBackend struct {
	provider db.DatabaseProvider
}

func NewProviderBackend(provider db.DatabaseProvider) (*ProviderBackend, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &ProviderBackend{provider: provider}, nil
}

func (p *ProviderBackend) key(name string) []byte {
	return []byte(PrefixStore + name)
}

func (p *ProviderBackend) Location(name string) string {
	return PrefixStore + name
}

func (p *ProviderBackend) Read(name string) ([]byte, error) {
	value, err := p.provider.Get(p.key(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, nil
}

func (p *ProviderBackend) Write(name string, data []byte) error {
	if err := p.provider.Put(p.key(name), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (p *ProviderBackend) Delete(name string) error {
	if err := p.provider.Delete(p.key(name)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

func (p *ProviderBackend) Exists(name string) (bool, error) {
	return p.provider.Has(p.key(name))
}
