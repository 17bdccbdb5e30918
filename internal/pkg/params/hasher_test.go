package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	prm := map[string]interface{}{"language": "en-US", "diarization": true}
	assert.Equal(t, Hash("transcription", "default", prm),
		Hash("transcription", "default", prm))
}

func TestHash_OrderIndependent(t *testing.T) {
	a := map[string]interface{}{"language": "en-US", "diarization": true,
		"speakers": map[string]interface{}{"min": 1, "max": 4}}
	b := map[string]interface{}{
		"speakers": map[string]interface{}{"max": 4, "min": 1},
		"diarization": true, "language": "en-US"}
	assert.Equal(t, Hash("transcription", "default", a), Hash("transcription", "default", b))
}

func TestHash_ValueSensitive(t *testing.T) {
	a := map[string]interface{}{"language": "en-US"}
	b := map[string]interface{}{"language": "lt-LT"}
	assert.NotEqual(t, Hash("transcription", "default", a), Hash("transcription", "default", b))
}

func TestHash_KindEngineSensitive(t *testing.T) {
	prm := map[string]interface{}{"language": "en-US"}
	assert.NotEqual(t, Hash("transcription", "default", prm), Hash("translation", "default", prm))
	assert.NotEqual(t, Hash("transcription", "default", prm), Hash("transcription", "other", prm))
}

func TestHash_NilStripped(t *testing.T) {
	a := map[string]interface{}{"language": "en-US", "model": nil}
	b := map[string]interface{}{"language": "en-US"}
	assert.Equal(t, Hash("transcription", "default", a), Hash("transcription", "default", b))
}

func TestHash_ArrayOrderMatters(t *testing.T) {
	a := map[string]interface{}{"phrases": []interface{}{"one", "two"}}
	b := map[string]interface{}{"phrases": []interface{}{"two", "one"}}
	assert.NotEqual(t, Hash("transcription", "default", a), Hash("transcription", "default", b))
}

func TestHash_KeyNotConfusedWithValue(t *testing.T) {
	a := map[string]interface{}{"a": "b:c"}
	b := map[string]interface{}{"a:b": "c"}
	assert.NotEqual(t, Hash("transcription", "default", a), Hash("transcription", "default", b))
}
