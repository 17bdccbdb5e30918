package api

import (
	"github.com/scribeline/scribeline/internal/pkg/recognition"
)

const (
	//KindTranscription discriminates transcription requests in the params hash
	KindTranscription = "transcription"
	//ModelLong is the model tier that always routes to the async path
	ModelLong = "long"
	//DefaultGapSec is the silence gap that forces a segment break
	DefaultGapSec = 0.6
	//DefaultMaxSegmentSec is the max cumulative segment duration
	DefaultMaxSegmentSec = 10.0
)

//TranscriptionParams is the caller supplied recognition parameter set
type TranscriptionParams struct {
	Language      string  `json:"language,omitempty"`
	Diarization   bool    `json:"diarization,omitempty"`
	MinSpeakers   int     `json:"minSpeakers,omitempty"`
	MaxSpeakers   int     `json:"maxSpeakers,omitempty"`
	GapSec        float64 `json:"gapSec,omitempty"`
	MaxSegmentSec float64 `json:"maxSegmentSec,omitempty"`
	Model         string  `json:"model,omitempty"`
}

//Normalize applies defaults and returns the map used for hashing and
//persistence. Zero values are dropped, so an omitted field and an explicit
//default hash the same.
func (p TranscriptionParams) Normalize(fallbackLanguage string) map[string]interface{} {
	if p.Language == "" {
		p.Language = fallbackLanguage
	}
	if p.GapSec == 0 {
		p.GapSec = DefaultGapSec
	}
	if p.MaxSegmentSec == 0 {
		p.MaxSegmentSec = DefaultMaxSegmentSec
	}
	res := make(map[string]interface{})
	if p.Language != "" {
		res["language"] = p.Language
	}
	if p.Diarization {
		res["diarization"] = true
	}
	if p.MinSpeakers > 0 {
		res["minSpeakers"] = p.MinSpeakers
	}
	if p.MaxSpeakers > 0 {
		res["maxSpeakers"] = p.MaxSpeakers
	}
	res["gapSec"] = p.GapSec
	res["maxSegmentSec"] = p.MaxSegmentSec
	if p.Model != "" {
		res["model"] = p.Model
	}
	return res
}

//FromMap restores typed params from a persisted parameter map
func FromMap(m map[string]interface{}) TranscriptionParams {
	res := TranscriptionParams{}
	res.Language = asString(m["language"])
	res.Diarization = asBool(m["diarization"])
	res.MinSpeakers = asInt(m["minSpeakers"])
	res.MaxSpeakers = asInt(m["maxSpeakers"])
	res.GapSec = asFloat(m["gapSec"])
	res.MaxSegmentSec = asFloat(m["maxSegmentSec"])
	res.Model = asString(m["model"])
	if res.GapSec == 0 {
		res.GapSec = DefaultGapSec
	}
	if res.MaxSegmentSec == 0 {
		res.MaxSegmentSec = DefaultMaxSegmentSec
	}
	return res
}

//Recognition maps the params to a recognition backend request
func (p TranscriptionParams) Recognition() *recognition.Params {
	return &recognition.Params{Language: p.Language, Model: p.Model,
		MinSpeakers: p.MinSpeakers, MaxSpeakers: p.MaxSpeakers,
		GapSec: p.GapSec, MaxDurSec: p.MaxSegmentSec}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v interface{}) int {
	switch tv := v.(type) {
	case int:
		return tv
	case int32:
		return int(tv)
	case int64:
		return int(tv)
	case float64:
		return int(tv)
	}
	return 0
}

func asFloat(v interface{}) float64 {
	switch tv := v.(type) {
	case float64:
		return tv
	case float32:
		return float64(tv)
	case int:
		return float64(tv)
	case int32:
		return float64(tv)
	case int64:
		return float64(tv)
	}
	return 0
}
