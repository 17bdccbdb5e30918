package utils

import (
	"io/ioutil"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestURLJoin(t *testing.T) {
	assert.Equal(t, "http://server:80/olia", URLJoin("http://server:80", "olia"))
	assert.Equal(t, "http://server:80/olia/2", URLJoin("http://server:80/", "olia", "2"))
	assert.Equal(t, "olia/2", URLJoin("olia", "2"))
}

func TestValidateResponse_OK(t *testing.T) {
	assert.Nil(t, ValidateResponse(newResp(200, "")))
	assert.Nil(t, ValidateResponse(newResp(299, "")))
}

func TestValidateResponse_Fails(t *testing.T) {
	assert.NotNil(t, ValidateResponse(newResp(300, "")))
	assert.NotNil(t, ValidateResponse(newResp(500, "err")))
}

func TestValidateResponse_WrongCall(t *testing.T) {
	err := ValidateResponse(newResp(400, "bad param"))
	assert.True(t, errors.Is(err, ErrWrongHTTPCall))
}

func TestValidateResponse_TooLong(t *testing.T) {
	err := ValidateResponse(newResp(413, ""))
	assert.True(t, errors.Is(err, ErrTooLongHTTPCall))
	err = ValidateResponse(newResp(400, `{"code":"TOO_LONG"}`))
	assert.True(t, errors.Is(err, ErrTooLongHTTPCall))
}

func newResp(code int, body string) *http.Response {
	return &http.Response{StatusCode: code,
		Body: ioutil.NopCloser(strings.NewReader(body))}
}
