package loader

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

// fileLoader stores the key hex-encoded in a file that only the current user
// can read.
//
// - implements loader.Loader
type fileLoader struct {
	path string

	readFn  func(path string) ([]byte, error)
	writeFn func(path string, data []byte, perm os.FileMode) error
	statFn  func(path string) (os.FileInfo, error)
	mkdirFn func(path string, perm os.FileMode) error
}

// NewFileLoader returns a loader of the key in the file at the path.
func NewFileLoader(path string) Loader {
	return fileLoader{
		path:    path,
		readFn:  os.ReadFile,
		writeFn: os.WriteFile,
		statFn:  os.Stat,
		mkdirFn: os.MkdirAll,
	}
}

// LoadOrCreate implements loader.Loader. It loads the key if the file exists,
// otherwise it generates one and writes it in a new file (0400), creating the
// missing parent folders.
func (l fileLoader) LoadOrCreate(g Generator) ([]byte, error) {
	_, err := l.statFn(l.path)
	if err == nil {
		key, err := l.Load()
		if err != nil {
			return nil, xerrors.Errorf("failed to load file: %v", err)
		}

		return key, nil
	}

	if !os.IsNotExist(err) {
		return nil, xerrors.Errorf("failed to stat '%s': %v", l.path, err)
	}

	key, err := g.Generate()
	if err != nil {
		return nil, xerrors.Errorf("generator failed: %v", err)
	}

	err = l.mkdirFn(filepath.Dir(l.path), 0700)
	if err != nil {
		return nil, xerrors.Errorf("failed to create folder: %v", err)
	}

	err = l.writeFn(l.path, []byte(hex.EncodeToString(key)+"\n"), 0400)
	if err != nil {
		return nil, xerrors.Errorf("failed to write file: %v", err)
	}

	return key, nil
}

// Load implements loader.Loader. It returns the key of the file, or an error
// if the file does not exist or is not hex-encoded.
func (l fileLoader) Load() ([]byte, error) {
	data, err := l.readFn(l.path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read file: %v", err)
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, xerrors.Errorf("malformed key file '%s': %v", l.path, err)
	}

	return key, nil
}
