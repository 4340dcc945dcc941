package target

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the on-disk targets descriptor:
//
//	targets:
//	  leaf1:
//	    host: 172.80.80.11
//	    user: admin
//	    password: admin
type File struct {
	Targets map[string]*Target `yaml:"targets"`
}

// Load reads and validates a targets file. Every target is normalized with
// defaults before validation.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing targets file %s: %w", path, err)
	}
	if len(f.Targets) == 0 {
		return nil, fmt.Errorf("targets file %s defines no targets", path)
	}

	for name, t := range f.Targets {
		t.Name = name
		t.Normalize()
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}

	return &f, nil
}

// Get returns the named target.
func (f *File) Get(name string) (*Target, error) {
	t, ok := f.Targets[name]
	if !ok {
		return nil, fmt.Errorf("target %s not found (have: %v)", name, f.Names())
	}
	return t, nil
}

// Names returns the target names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Targets))
	for name := range f.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
