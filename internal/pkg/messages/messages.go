package messages

import "time"

const (
	//EvStarted - synchronous or queued processing started
	EvStarted = "started"
	//EvQueued - run enqueued for async processing
	EvQueued = "queued"
	//EvFinished - run completed successfully
	EvFinished = "finished"
	//EvFailed - run failed
	EvFailed = "failed"
)

//RunEvent is a lifecycle event going through the broker
type RunEvent struct {
	Event     string `json:"event"`
	RunID     string `json:"runId"`
	AudioID   string `json:"audioId"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

//NewRunEvent creates the event with current timestamp
func NewRunEvent(event, runID, audioID, status string) *RunEvent {
	return &RunEvent{Event: event, RunID: runID, AudioID: audioID,
		Status: status, Timestamp: time.Now().Unix()}
}
