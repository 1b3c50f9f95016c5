// Package results implements the local file where the workflows save what
// they produced, so that a later command can find it back without asking the
// user.
package results

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Entry is the result of a workflow.
type Entry struct {
	Name       string    `yaml:"name"`
	Binding    string    `yaml:"binding,omitempty"`
	Prefix     string    `yaml:"prefix,omitempty"`
	Nonce      string    `yaml:"nonce,omitempty"`
	Identifier string    `yaml:"identifier,omitempty"`
	BlobID     string    `yaml:"blob,omitempty"`
	Record     string    `yaml:"record,omitempty"`
	Allowlist  string    `yaml:"allowlist,omitempty"`
	Cap        string    `yaml:"cap,omitempty"`
	CreatedAt  time.Time `yaml:"created"`
}

// Get returns the value of the field of the entry by its key, or an empty
// string if the key is unknown.
func (e Entry) Get(key string) string {
	switch key {
	case "name":
		return e.Name
	case "binding":
		return e.Binding
	case "prefix":
		return e.Prefix
	case "nonce":
		return e.Nonce
	case "identifier":
		return e.Identifier
	case "blob":
		return e.BlobID
	case "record":
		return e.Record
	case "allowlist":
		return e.Allowlist
	case "cap":
		return e.Cap
	default:
		return ""
	}
}

type document struct {
	Entries []Entry `yaml:"entries"`
}

// File is a results file. It is safe for concurrent use.
type File struct {
	sync.Mutex

	path    string
	entries []Entry
}

// Open reads the results file at the path. A missing file is an empty one.
func Open(path string) (*File, error) {
	f := &File{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}

	if err != nil {
		return nil, xerrors.Errorf("failed to read results: %v", err)
	}

	var doc document

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode results: %v", err)
	}

	f.entries = doc.Entries

	return f, nil
}

// Path returns the path of the file.
func (f *File) Path() string {
	return f.path
}

// Entries returns the list of entries, oldest first.
func (f *File) Entries() []Entry {
	f.Lock()
	defer f.Unlock()

	return append([]Entry{}, f.entries...)
}

// Last returns the most recent entry, or false if the file is empty.
func (f *File) Last() (Entry, bool) {
	f.Lock()
	defer f.Unlock()

	if len(f.entries) == 0 {
		return Entry{}, false
	}

	return f.entries[len(f.entries)-1], true
}

// Find returns the most recent entry with the name, or false if none.
func (f *File) Find(name string) (Entry, bool) {
	f.Lock()
	defer f.Unlock()

	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].Name == name {
			return f.entries[i], true
		}
	}

	return Entry{}, false
}

// Add appends the entry and writes the file.
func (f *File) Add(entry Entry) error {
	f.Lock()
	defer f.Unlock()

	entries := append(append([]Entry{}, f.entries...), entry)

	err := write(f.path, document{Entries: entries})
	if err != nil {
		return err
	}

	f.entries = entries

	return nil
}

func write(path string, doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return xerrors.Errorf("failed to encode results: %v", err)
	}

	dir := filepath.Dir(path)

	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return xerrors.Errorf("failed to create folder: %v", err)
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write results: %v", err)
	}

	return nil
}
