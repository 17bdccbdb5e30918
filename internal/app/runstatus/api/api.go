package api

import "time"

//RunStatus is the run state pushed to subscribers
type RunStatus struct {
	ID           string     `json:"id"`
	AudioID      string     `json:"audioId"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	SpeakerCount int        `json:"speakerCount,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}
