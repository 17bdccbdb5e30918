package recognition

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/scribeline/scribeline/internal/pkg/segment"
)

type testResp struct {
	code int
	resp string
}

type testReq struct {
	body string
	URL  string
}

func newTestR(code int, resp string) testResp {
	return testResp{code: code, resp: resp}
}

func newTestReq(req *http.Request) testReq {
	b, _ := ioutil.ReadAll(req.Body)
	return testReq{URL: req.URL.String(), body: string(b)}
}

func initTestServer(t *testing.T, rData map[string]testResp) (*httptest.Server, *[]testReq) {
	t.Helper()
	resRequest := make([]testReq, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		resRequest = append(resRequest, newTestReq(req))
		resp, f := rData[req.URL.String()]
		if f {
			rw.WriteHeader(resp.code)
			rw.Write([]byte(resp.resp))
		}
	}))
	return server, &resRequest
}

func testResult() string {
	res := Result{Words: []segment.Word{{Text: "olia", Start: 0, End: 0.5}},
		Confidence: 0.9}
	rb, _ := json.Marshal(res)
	return string(rb)
}

func TestBufferRecognize(t *testing.T) {
	server, tReq := initTestServer(t, map[string]testResp{"/recognize": newTestR(200, testResult())})
	defer server.Close()
	client := BufferClient{httpclient: newHTTPClient(), url: server.URL + "/recognize"}

	res, err := client.Recognize(context.Background(), Source{Data: []byte("audio")},
		&Params{Language: "en-US"})

	assert.Nil(t, err)
	assert.Equal(t, 1, len(res.Words))
	assert.Equal(t, "olia", res.Words[0].Text)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, 1, len(*tReq))
	assert.Contains(t, (*tReq)[0].body, `"language":"en-US"`)
}

func TestBufferRecognize_NoData(t *testing.T) {
	client := BufferClient{httpclient: newHTTPClient(), url: "http://l"}
	_, err := client.Recognize(context.Background(), Source{}, nil)
	assert.NotNil(t, err)
}

func TestBufferRecognize_TooLong(t *testing.T) {
	server, _ := initTestServer(t, map[string]testResp{"/recognize": newTestR(413, "")})
	defer server.Close()
	client := BufferClient{httpclient: newHTTPClient(), url: server.URL + "/recognize"}

	_, err := client.Recognize(context.Background(), Source{Data: []byte("audio")}, nil)

	assert.True(t, errors.Is(err, ErrTooLong))
}

func TestLocatorRecognize(t *testing.T) {
	server, tReq := initTestServer(t, map[string]testResp{"/batch": newTestR(200, testResult())})
	defer server.Close()
	client := LocatorClient{httpclient: newHTTPClient(), url: server.URL + "/batch"}

	res, err := client.Recognize(context.Background(),
		Source{Locator: "gs://bucket/audio.wav"}, &Params{Language: "en-US"})

	assert.Nil(t, err)
	assert.Equal(t, 1, len(res.Words))
	assert.Equal(t, 1, len(*tReq))
	assert.Contains(t, (*tReq)[0].body, `"locator":"gs://bucket/audio.wav"`)
	assert.Contains(t, (*tReq)[0].body, `"model":"long"`)
}

func TestLocatorRecognize_NoLocator(t *testing.T) {
	client := LocatorClient{httpclient: newHTTPClient(), url: "http://l"}
	_, err := client.Recognize(context.Background(), Source{}, nil)
	assert.NotNil(t, err)
}

func TestLocatorRecognize_Fails(t *testing.T) {
	server, _ := initTestServer(t, map[string]testResp{"/batch": newTestR(500, "err")})
	defer server.Close()
	hc := newHTTPClient()
	hc.RetryMax = 0 // do not wait out retries in the test
	client := LocatorClient{httpclient: hc, url: server.URL + "/batch"}

	_, err := client.Recognize(context.Background(), Source{Locator: "gs://b/a.wav"}, nil)

	assert.NotNil(t, err)
}
