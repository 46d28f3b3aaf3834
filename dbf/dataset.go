package dbf

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dataset is a set of tables sharing one directory, opened as a unit.
// Table handles stay single-threaded; only the open itself runs
// concurrently.
type Dataset struct {
	mu     sync.Mutex
	tables map[string]*Table
}

// OpenDataset opens every .dbf table under the directory with the
// settings of the config template. Tables are opened concurrently and
// the open fails as a unit: on any error all already opened handles
// are closed again. With MemHooks the provider's file list is used for
// discovery instead of the host file system.
func OpenDataset(dir string, config *Config) (*Dataset, error) {
	if config == nil {
		config = &Config{}
	}
	hooks := config.Hooks
	if hooks == nil {
		hooks = DefaultHooks
	}
	filenames, err := discoverTables(dir, hooks)
	if err != nil {
		return nil, newError("dbf-dataset-opendataset-1", err)
	}
	dataset := &Dataset{tables: make(map[string]*Table)}
	group := errgroup.Group{}
	for _, filename := range filenames {
		filename := filename
		group.Go(func() error {
			table, err := OpenTable(&Config{
				Filename:          filename,
				Mode:              config.Mode,
				TrimSpaces:        config.TrimSpaces,
				Converter:         config.Converter,
				InterpretCodePage: config.InterpretCodePage,
				Hooks:             hooks,
			})
			if err != nil {
				return newError("dbf-dataset-opendataset-2", err)
			}
			name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
			dataset.mu.Lock()
			dataset.tables[name] = table
			dataset.mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		dataset.Close()
		return nil, newError("dbf-dataset-opendataset-3", err)
	}
	debugf("Opened dataset %s with %d table/s", dir, len(dataset.tables))
	return dataset, nil
}

func discoverTables(dir string, hooks Hooks) ([]string, error) {
	if mem, ok := hooks.(*MemHooks); ok {
		filenames := make([]string, 0)
		for _, name := range mem.Names() {
			if !strings.HasSuffix(strings.ToLower(name), ".dbf") {
				continue
			}
			if filepath.Dir(name) != filepath.Clean(dir) {
				continue
			}
			filenames = append(filenames, name)
		}
		return filenames, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newError("dbf-dataset-discover-1", err)
	}
	filenames := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".dbf") {
			filenames = append(filenames, filepath.Join(dir, entry.Name()))
		}
	}
	return filenames, nil
}

// Table returns the open handle for the base name, or nil.
func (d *Dataset) Table(name string) *Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tables[name]
}

// Names returns the sorted base names of all tables in the dataset.
func (d *Dataset) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every table and reports the first error.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for name, table := range d.tables {
		if err := table.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.tables, name)
	}
	return firstErr
}
