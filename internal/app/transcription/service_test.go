package transcription

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/scribeline/scribeline/internal/app/transcription/api"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
	"github.com/scribeline/scribeline/internal/pkg/pipeline"
	"github.com/scribeline/scribeline/internal/pkg/status"
)

type testTrigger struct {
	run *persistence.Run
	err error
	ids []string
}

func (tr *testTrigger) ProcessRunJob(ctx context.Context, runID string) (*persistence.Run,
	*persistence.Audio, error) {
	tr.ids = append(tr.ids, runID)
	return tr.run, nil, tr.err
}

func initServiceTest(t *testing.T) (*testData, *ServiceData) {
	t.Helper()
	d := initTest(t)
	sd := &ServiceData{Starter: d.crd, Runs: d.runs,
		Trigger: &testTrigger{run: &persistence.Run{ID: "r1", AudioID: "a1",
			Status: status.Name(status.Succeeded)}},
		TriggerSecret: "olia"}
	assert.Nil(t, initMetrics(sd))
	return d, sd
}

func TestWrongPath(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("GET", "/invalid", nil)
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestTranscribe(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("POST", "/transcriptions",
		strings.NewReader(`{"audioId": "a1"}`))
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	var res api.Response
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.False(t, res.Queued)
	assert.Equal(t, status.Name(status.Succeeded), res.Run.Status)
}

func TestTranscribe_Queued(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("POST", "/transcriptions",
		strings.NewReader(`{"audioId": "a1", "params": {"model": "long"}}`))
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 202, resp.Code)
	var res api.Response
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.True(t, res.Queued)
	assert.NotNil(t, res.Job)
}

func TestTranscribe_NoBody(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("POST", "/transcriptions", nil)
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}

func TestTranscribe_NoAudioID(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("POST", "/transcriptions", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}

func TestTranscribe_UnknownAudio(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("POST", "/transcriptions",
		strings.NewReader(`{"audioId": "missing"}`))
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}

func TestGetRun(t *testing.T) {
	d, sd := initServiceTest(t)
	d.runs.runs["r1"] = &persistence.Run{ID: "r1", AudioID: "a1",
		Status: status.Name(status.Processing)}
	req := httptest.NewRequest("GET", "/transcriptions/r1", nil)
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	var res api.Run
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "r1", res.ID)
	assert.Equal(t, status.Name(status.Processing), res.Status)
}

func TestGetRun_Unknown(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("GET", "/transcriptions/none", nil)
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestTriggerJob(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("POST", "/internal/jobs/r1", nil)
	req.Header.Set("X-Trigger-Secret", "olia")
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, []string{"r1"}, sd.Trigger.(*testTrigger).ids)
}

func TestTriggerJob_WrongSecret(t *testing.T) {
	_, sd := initServiceTest(t)
	req := httptest.NewRequest("POST", "/internal/jobs/r1", nil)
	req.Header.Set("X-Trigger-Secret", "wrong")
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 401, resp.Code)
	assert.Equal(t, 0, len(sd.Trigger.(*testTrigger).ids))
}

func TestTriggerJob_NoActiveJob(t *testing.T) {
	_, sd := initServiceTest(t)
	sd.Trigger.(*testTrigger).err = errors.Wrap(pipeline.ErrNotFound, "no job")
	req := httptest.NewRequest("POST", "/internal/jobs/r1", nil)
	req.Header.Set("X-Trigger-Secret", "olia")
	resp := httptest.NewRecorder()
	NewRouter(sd).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}
