package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/segment"
	"github.com/scribeline/scribeline/internal/pkg/utils"
)

//ErrTooLong indicates the backend rejected the input as too long for the selected mode
var ErrTooLong = utils.ErrTooLongHTTPCall

//Params is the recognition request parameter set
type Params struct {
	Language    string  `json:"language,omitempty"`
	Model       string  `json:"model,omitempty"`
	MinSpeakers int     `json:"minSpeakers,omitempty"`
	MaxSpeakers int     `json:"maxSpeakers,omitempty"`
	GapSec      float64 `json:"gapSec,omitempty"`
	MaxDurSec   float64 `json:"maxDurSec,omitempty"`
}

//Source holds the audio input - either raw bytes or a storage locator
type Source struct {
	Data    []byte
	Locator string
}

//Result is the raw recognition outcome
type Result struct {
	Words      []segment.Word `json:"words"`
	Confidence float64        `json:"confidence"`
}

//Recognizer invokes the speech recognition backend
type Recognizer interface {
	Recognize(ctx context.Context, src Source, prm *Params) (*Result, error)
}

type bufferRequest struct {
	AudioData string `json:"audioData"`
	Params
}

type locatorRequest struct {
	Locator string `json:"locator"`
	Params
}

//BufferClient sends audio bytes for synchronous recognition
type BufferClient struct {
	httpclient *retryablehttp.Client
	url        string
}

//NewBufferClient creates a buffer mode recognition client
func NewBufferClient() (*BufferClient, error) {
	res := BufferClient{}
	var err error
	res.url, err = utils.GetURLFromConfig("recognizer.url.buffer")
	if err != nil {
		return nil, err
	}
	res.httpclient = newHTTPClient()
	return &res, nil
}

//Recognize sends the audio buffer to the backend
func (sp *BufferClient) Recognize(ctx context.Context, src Source, prm *Params) (*Result, error) {
	if len(src.Data) == 0 {
		return nil, errors.New("No audio data")
	}
	cmdapp.Log.Infof("Buffer recognition of %d bytes", len(src.Data))
	inp := bufferRequest{AudioData: base64.StdEncoding.EncodeToString(src.Data)}
	if prm != nil {
		inp.Params = *prm
	}
	return invoke(ctx, sp.httpclient, sp.url, inp)
}

//LocatorClient sends a storage locator for batch recognition
type LocatorClient struct {
	httpclient *retryablehttp.Client
	url        string
}

//NewLocatorClient creates a batch mode recognition client
func NewLocatorClient() (*LocatorClient, error) {
	res := LocatorClient{}
	var err error
	res.url, err = utils.GetURLFromConfig("recognizer.url.batch")
	if err != nil {
		return nil, err
	}
	res.httpclient = newHTTPClient()
	return &res, nil
}

//Recognize sends the locator to the backend batch endpoint
func (sp *LocatorClient) Recognize(ctx context.Context, src Source, prm *Params) (*Result, error) {
	if src.Locator == "" {
		return nil, errors.New("No audio locator")
	}
	cmdapp.Log.Infof("Batch recognition of %s", utils.URLToLog(src.Locator))
	inp := locatorRequest{Locator: src.Locator}
	if prm != nil {
		inp.Params = *prm
	}
	if inp.Model == "" {
		inp.Model = "long"
	}
	return invoke(ctx, sp.httpclient, sp.url, inp)
}

func newHTTPClient() *retryablehttp.Client {
	res := retryablehttp.NewClient()
	res.RetryMax = 3
	res.Logger = nil
	return res
}

func invoke(ctx context.Context, client *retryablehttp.Client, url string, inp interface{}) (*Result, error) {
	b, err := json.Marshal(inp)
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal request")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	err = utils.ValidateResponse(resp)
	if err != nil {
		return nil, errors.Wrap(err, "Can't recognize")
	}
	var res Result
	err = json.NewDecoder(resp.Body).Decode(&res)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode response")
	}
	return &res, nil
}
