package persistence

import (
	"time"

	"github.com/scribeline/scribeline/internal/pkg/segment"
)

const (
	//JobTypeTranscription is the only job category the worker handles
	JobTypeTranscription = "transcription"

	//AudioStProcessing - transcription started for the audio
	AudioStProcessing = "processing"
	//AudioStTranscribed - transcription finished for the audio
	AudioStTranscribed = "transcribed"
	//AudioStFailed - transcription failed for the audio
	AudioStFailed = "failed"
)

type (
	//Run is one versioned attempt to transcribe an audio file
	//with a specific parameter set
	Run struct {
		ID           string                 `bson:"ID"`
		AudioID      string                 `bson:"audioID"`
		AuthorID     string                 `bson:"authorID,omitempty"`
		Engine       string                 `bson:"engine"`
		Version      int                    `bson:"version"`
		Params       map[string]interface{} `bson:"params,omitempty"`
		ParamsHash   string                 `bson:"paramsHash"`
		Status       string                 `bson:"status"`
		Text         string                 `bson:"text,omitempty"`
		Segments     []segment.Segment      `bson:"segments,omitempty"`
		SpeakerCount int                    `bson:"speakerCount,omitempty"`
		Confidence   float64                `bson:"confidence,omitempty"`
		Error        string                 `bson:"error,omitempty"`
		CreatedAt    time.Time              `bson:"createdAt"`
		CompletedAt  *time.Time             `bson:"completedAt,omitempty"`
	}

	//Job is a queued unit of asynchronous work bound to one run
	Job struct {
		ID            string     `bson:"ID"`
		RunID         string     `bson:"runID"`
		AudioID       string     `bson:"audioID"`
		JobType       string     `bson:"jobType"`
		Status        string     `bson:"status"`
		Active        bool       `bson:"active"`
		AttemptsMade  int        `bson:"attemptsMade"`
		NextRetryAt   *time.Time `bson:"nextRetryAt,omitempty"`
		Error         string     `bson:"error,omitempty"`
		ProviderJobID string     `bson:"providerJobID,omitempty"`
		CreatedAt     time.Time  `bson:"createdAt"`
		UpdatedAt     time.Time  `bson:"updatedAt"`
	}

	//Audio is the owning audio resource as this pipeline sees it
	Audio struct {
		ID         string                 `bson:"ID"`
		UserID     string                 `bson:"userID,omitempty"`
		SizeBytes  int64                  `bson:"sizeBytes"`
		DurationMs int64                  `bson:"durationMs"`
		Locator    string                 `bson:"locator,omitempty"`
		Language   string                 `bson:"language,omitempty"`
		Status     string                 `bson:"status,omitempty"`
		Summary    map[string]interface{} `bson:"summary,omitempty"`
	}
)
