package loader

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
)

// ReadFileFunc declares function to read the whole file by name
type ReadFileFunc func(fileName string) ([]byte, error)

// LocalFileLoader loads audio bytes from local disk by storage locator
type LocalFileLoader struct {
	// Path is the main folder to load from
	Path         string
	ReadFileFunc ReadFileFunc
}

// NewLocalFileLoader creates LocalFileLoader instance
func NewLocalFileLoader(path string) (*LocalFileLoader, error) {
	cmdapp.Log.Infof("Init Local File Storage at: %s", path)
	if path == "" {
		return nil, errors.New("no path provided")
	}
	f := LocalFileLoader{Path: path, ReadFileFunc: ioutil.ReadFile}
	return &f, nil
}

// Load reads file bytes by locator
func (fs LocalFileLoader) Load(locator string) ([]byte, error) {
	name := filepath.Clean(locator)
	if strings.Contains(name, "..") || filepath.IsAbs(name) {
		return nil, errors.Errorf("wrong locator '%s'", locator)
	}
	fileName := filepath.Join(fs.Path, name)
	data, err := fs.ReadFileFunc(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Can not read file "+fileName)
	}
	return data, nil
}
