package runstatus

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/scribeline/scribeline/internal/pkg/persistence"
	"github.com/scribeline/scribeline/internal/pkg/status"
)

type testRunFunc func(id string) (*persistence.Run, error)

func (f testRunFunc) Get(id string) (*persistence.Run, error) {
	return f(id)
}

func testRuns(run *persistence.Run) testRunFunc {
	return func(id string) (*persistence.Run, error) {
		if run != nil && run.ID == id {
			return run, nil
		}
		return nil, nil
	}
}

func TestWrongPath(t *testing.T) {
	req := httptest.NewRequest("GET", "/invalid", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{}).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestReturnsStatus(t *testing.T) {
	req := httptest.NewRequest("GET", "/status/r1", nil)
	resp := httptest.NewRecorder()
	data := &ServiceData{Runs: testRuns(&persistence.Run{ID: "r1", AudioID: "a1",
		Status: status.Name(status.Processing)})}
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Body.String(), `{"id":"r1"`))
}

func TestUnknownRun(t *testing.T) {
	req := httptest.NewRequest("GET", "/status/none", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Runs: testRuns(nil)}).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestProviderFails(t *testing.T) {
	req := httptest.NewRequest("GET", "/status/r1", nil)
	resp := httptest.NewRecorder()
	data := &ServiceData{Runs: testRunFunc(func(id string) (*persistence.Run, error) {
		return nil, errors.New("db down")
	})}
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}
