package loader

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewLoader(t *testing.T) {
	l, err := NewLocalFileLoader("/data/")
	assert.Nil(t, err)
	assert.NotNil(t, l)
}

func TestNewLoader_FailsOnEmpty(t *testing.T) {
	_, err := NewLocalFileLoader("")
	assert.NotNil(t, err)
}

func TestLoad(t *testing.T) {
	l := newTestLoader(func(fileName string) ([]byte, error) {
		assert.Equal(t, "/data/id1.wav", fileName)
		return []byte("audio"), nil
	})
	data, err := l.Load("id1.wav")
	assert.Nil(t, err)
	assert.Equal(t, []byte("audio"), data)
}

func TestLoad_Fails(t *testing.T) {
	l := newTestLoader(func(fileName string) ([]byte, error) {
		return nil, errors.New("no file")
	})
	_, err := l.Load("id1.wav")
	assert.NotNil(t, err)
}

func TestLoad_RefusesTraversal(t *testing.T) {
	l := newTestLoader(nil)
	_, err := l.Load("../secret")
	assert.NotNil(t, err)
	_, err = l.Load("/etc/passwd")
	assert.NotNil(t, err)
}

func newTestLoader(f ReadFileFunc) *LocalFileLoader {
	return &LocalFileLoader{Path: "/data", ReadFileFunc: f}
}
