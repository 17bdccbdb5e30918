package api

import (
	"time"

	"github.com/scribeline/scribeline/internal/pkg/persistence"
	"github.com/scribeline/scribeline/internal/pkg/segment"
)

//Request is the transcription request body
type Request struct {
	AudioID string              `json:"audioId"`
	Params  TranscriptionParams `json:"params"`
	Force   bool                `json:"force,omitempty"`
}

//Run is the persisted run shape returned to callers
type Run struct {
	ID           string                 `json:"id"`
	AudioID      string                 `json:"audioId"`
	Status       string                 `json:"status"`
	Engine       string                 `json:"engine"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Text         string                 `json:"text,omitempty"`
	Segments     []segment.Segment      `json:"segments,omitempty"`
	SpeakerCount int                    `json:"speakerCount,omitempty"`
	Confidence   float64                `json:"confidence,omitempty"`
	Version      int                    `json:"version"`
	Error        string                 `json:"error,omitempty"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
}

//Job is the queued job descriptor returned to callers
type Job struct {
	ID           string     `json:"id"`
	RunID        string     `json:"runId"`
	Status       string     `json:"status"`
	AttemptsMade int        `json:"attemptsMade"`
	NextRetryAt  *time.Time `json:"nextRetryAt,omitempty"`
}

//Response is the transcription request outcome
type Response struct {
	Run    Run  `json:"run"`
	Queued bool `json:"queued"`
	Job    *Job `json:"job,omitempty"`
}

//RunFrom maps a persisted run to the caller visible shape
func RunFrom(run *persistence.Run) Run {
	return Run{ID: run.ID, AudioID: run.AudioID, Status: run.Status,
		Engine: run.Engine, Params: run.Params, Text: run.Text,
		Segments: run.Segments, SpeakerCount: run.SpeakerCount,
		Confidence: run.Confidence, Version: run.Version,
		Error: run.Error, CompletedAt: run.CompletedAt}
}

//JobFrom maps a persisted job to the caller visible shape
func JobFrom(job *persistence.Job) *Job {
	if job == nil {
		return nil
	}
	return &Job{ID: job.ID, RunID: job.RunID, Status: job.Status,
		AttemptsMade: job.AttemptsMade, NextRetryAt: job.NextRetryAt}
}
