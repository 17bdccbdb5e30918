package transcription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/scribeline/scribeline/internal/app/transcription/api"
	"github.com/scribeline/scribeline/internal/pkg/audit"
	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/messages"
	"github.com/scribeline/scribeline/internal/pkg/params"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
	"github.com/scribeline/scribeline/internal/pkg/recognition"
	"github.com/scribeline/scribeline/internal/pkg/segment"
	"github.com/scribeline/scribeline/internal/pkg/status"
)

//ErrNotFound indicates a missing audio resource - a validation failure
var ErrNotFound = errors.New("audio not found")

//RunStore persists transcription runs
type RunStore interface {
	Create(run *persistence.Run) error
	Get(id string) (*persistence.Run, error)
	FindLatestByHash(audioID string, paramsHash string) (*persistence.Run, error)
	MarkQueued(id string) error
	MarkProcessing(id string) error
	SaveResult(id string, text string, segments []segment.Segment, speakerCount int, confidence float64) error
	SaveFailure(id string, errMsg string) error
}

//JobStore enqueues async work items
type JobStore interface {
	Enqueue(job *persistence.Job) (*persistence.Job, bool, error)
}

//AudioProvider looks up and updates the owning audio resources
type AudioProvider interface {
	Get(id string) (*persistence.Audio, error)
	SetStatus(id string, st string, summary map[string]interface{}) error
}

//FileLoader loads audio bytes for buffer mode recognition
type FileLoader interface {
	Load(locator string) ([]byte, error)
}

//RoutingConfig keeps the sync/async decision limits
type RoutingConfig struct {
	//SyncSizeLimit is the synchronous-path size ceiling in bytes
	SyncSizeLimit int64
	//SyncDurationLimit is the synchronous-path duration ceiling
	SyncDurationLimit time.Duration
	//BufferSizeLimit is the stricter ceiling for buffer mode calls
	//on the synchronous path
	BufferSizeLimit int64
	//InlineOnly forces inline processing, for environments without a worker
	InlineOnly bool
}

//Coordinator decides the execution path for transcription requests
//and drives the synchronous one
type Coordinator struct {
	Runs    RunStore
	Jobs    JobStore
	Audio   AudioProvider
	Loader  FileLoader
	Buffer  recognition.Recognizer
	Locator recognition.Recognizer
	Events  audit.Sink

	Engine string
	Config RoutingConfig
}

//Validate checks the coordinator wiring
func (c *Coordinator) Validate() error {
	if c.Runs == nil {
		return errors.New("No run store")
	}
	if c.Jobs == nil {
		return errors.New("No job store")
	}
	if c.Audio == nil {
		return errors.New("No audio provider")
	}
	if c.Loader == nil {
		return errors.New("No file loader")
	}
	if c.Buffer == nil || c.Locator == nil {
		return errors.New("No recognizer")
	}
	if c.Events == nil {
		return errors.New("No event sink")
	}
	if c.Engine == "" {
		return errors.New("No engine")
	}
	return nil
}

//RequestTranscription is the single entry point used by the HTTP layer.
//It either returns a finished run (cache hit or synchronous execution)
//or enqueues a job and returns without blocking.
func (c *Coordinator) RequestTranscription(ctx context.Context, audioID string,
	prm api.TranscriptionParams, force bool) (*api.Response, error) {
	audio, err := c.Audio.Get(audioID)
	if err != nil {
		return nil, errors.Wrap(err, "can't get audio")
	}
	if audio == nil {
		return nil, errors.Wrapf(ErrNotFound, "no audio %s", audioID)
	}

	prmMap := prm.Normalize(audio.Language)
	hash := params.Hash(api.KindTranscription, c.Engine, prmMap)

	run, err := c.Runs.FindLatestByHash(audioID, hash)
	if err != nil {
		return nil, errors.Wrap(err, "can't look up runs")
	}
	if run != nil && run.Status == status.Name(status.Succeeded) && !force {
		cmdapp.Log.Infof("Run %s reused for audio %s", run.ID, audioID)
		res := api.RunFrom(run)
		return &api.Response{Run: res, Queued: false}, nil
	}

	if c.routeAsync(audio, api.FromMap(prmMap)) {
		return c.enqueue(run, audio, prmMap, hash)
	}
	return c.runInline(ctx, run, audio, prmMap, hash)
}

//routeAsync applies the path decision: explicit long model request or
//a file over the sync ceilings goes to the queue
func (c *Coordinator) routeAsync(audio *persistence.Audio, prm api.TranscriptionParams) bool {
	if c.Config.InlineOnly {
		return false
	}
	return prm.Model == api.ModelLong ||
		audio.SizeBytes > c.Config.SyncSizeLimit ||
		time.Duration(audio.DurationMs)*time.Millisecond > c.Config.SyncDurationLimit
}

func (c *Coordinator) enqueue(run *persistence.Run, audio *persistence.Audio,
	prmMap map[string]interface{}, hash string) (*api.Response, error) {
	var err error
	if run != nil {
		err = c.Runs.MarkQueued(run.ID)
		if err == nil {
			run, err = c.Runs.Get(run.ID)
		}
	} else {
		run = c.newRun(audio, prmMap, hash, status.Queued)
		err = c.Runs.Create(run)
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't prepare run")
	}

	job := &persistence.Job{ID: uuid.New().String(), RunID: run.ID,
		AudioID: audio.ID, JobType: persistence.JobTypeTranscription,
		Status: status.Name(status.Queued)}
	job, created, err := c.Jobs.Enqueue(job)
	if err != nil {
		return nil, errors.Wrap(err, "can't enqueue job")
	}
	if created {
		cmdapp.Log.Infof("Queued job %s for run %s", job.ID, run.ID)
	}
	cmdapp.LogIf(c.Audio.SetStatus(audio.ID, persistence.AudioStProcessing, nil))
	c.Events.Send(messages.NewRunEvent(messages.EvQueued, run.ID, audio.ID,
		status.Name(status.Queued)))

	return &api.Response{Run: api.RunFrom(run), Queued: true, Job: api.JobFrom(job)}, nil
}

func (c *Coordinator) runInline(ctx context.Context, run *persistence.Run,
	audio *persistence.Audio, prmMap map[string]interface{}, hash string) (*api.Response, error) {
	var err error
	if run != nil {
		err = c.Runs.MarkProcessing(run.ID)
	} else {
		run = c.newRun(audio, prmMap, hash, status.Processing)
		err = c.Runs.Create(run)
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't prepare run")
	}
	cmdapp.LogIf(c.Audio.SetStatus(audio.ID, persistence.AudioStProcessing, nil))
	c.Events.Send(messages.NewRunEvent(messages.EvStarted, run.ID, audio.ID,
		status.Name(status.Processing)))

	prm := api.FromMap(prmMap)
	res, err := c.recognize(ctx, audio, prm)
	if err != nil {
		c.failRun(run.ID, audio.ID, err)
		return nil, err
	}

	segments := segment.Split(res.Words, prm.GapSec, prm.MaxSegmentSec)
	text := segment.JoinText(segments)
	speakerCount := segment.SpeakerCount(res.Words)
	err = c.Runs.SaveResult(run.ID, text, segments, speakerCount, res.Confidence)
	if err != nil {
		err = errors.Wrap(err, "can't save result")
		c.failRun(run.ID, audio.ID, err)
		return nil, err
	}
	cmdapp.LogIf(c.Audio.SetStatus(audio.ID, persistence.AudioStTranscribed,
		map[string]interface{}{"runID": run.ID, "speakerCount": speakerCount}))
	c.Events.Send(messages.NewRunEvent(messages.EvFinished, run.ID, audio.ID,
		status.Name(status.Succeeded)))

	saved, err := c.Runs.Get(run.ID)
	if err != nil || saved == nil {
		// the result is already persisted, answer from what we have
		cmdapp.LogIf(errors.Wrap(err, "can't reload run "+run.ID))
		run.Status = status.Name(status.Succeeded)
		run.Text = text
		run.Segments = segments
		run.SpeakerCount = speakerCount
		run.Confidence = res.Confidence
		saved = run
	}
	return &api.Response{Run: api.RunFrom(saved), Queued: false}, nil
}

//failRun leaves the run terminal after a synchronous processing error.
//Best effort, the caller still returns the original error.
func (c *Coordinator) failRun(runID, audioID string, cause error) {
	cmdapp.LogIf(c.Runs.SaveFailure(runID, cause.Error()))
	cmdapp.LogIf(c.Audio.SetStatus(audioID, persistence.AudioStFailed, nil))
	ev := messages.NewRunEvent(messages.EvFailed, runID, audioID, status.Name(status.Failed))
	ev.Error = cause.Error()
	c.Events.Send(ev)
}

//recognize picks buffer mode for small files falling back to the batch
//endpoint once when the backend rejects the input as too long
func (c *Coordinator) recognize(ctx context.Context, audio *persistence.Audio,
	prm api.TranscriptionParams) (*recognition.Result, error) {
	rp := prm.Recognition()
	if audio.SizeBytes <= c.Config.BufferSizeLimit {
		data, err := c.Loader.Load(audio.Locator)
		if err != nil {
			return nil, errors.Wrap(err, "can't load audio")
		}
		res, err := c.Buffer.Recognize(ctx, recognition.Source{Data: data}, rp)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, recognition.ErrTooLong) {
			return nil, err
		}
		cmdapp.Log.Infof("Buffer mode rejected audio %s as too long, falling back to batch", audio.ID)
	}
	return c.Locator.Recognize(ctx, recognition.Source{Locator: audio.Locator}, rp)
}

func (c *Coordinator) newRun(audio *persistence.Audio, prmMap map[string]interface{},
	hash string, st status.Status) *persistence.Run {
	return &persistence.Run{ID: uuid.New().String(), AudioID: audio.ID,
		AuthorID: audio.UserID, Engine: c.Engine, Params: prmMap,
		ParamsHash: hash, Status: status.Name(st)}
}
