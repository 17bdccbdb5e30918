package pipeline

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/scribeline/scribeline/internal/app/transcription/api"
	"github.com/scribeline/scribeline/internal/pkg/audit"
	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/messages"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
	"github.com/scribeline/scribeline/internal/pkg/recognition"
	"github.com/scribeline/scribeline/internal/pkg/segment"
	"github.com/scribeline/scribeline/internal/pkg/status"
)

//RunStore provides runs for job processing
type RunStore interface {
	Get(id string) (*persistence.Run, error)
	MarkProcessing(id string) error
	SaveResult(id string, text string, segments []segment.Segment, speakerCount int, confidence float64) error
	SaveFailure(id string, errMsg string) error
}

//JobStore advances job rows
type JobStore interface {
	FindActiveByRun(runID string) (*persistence.Job, error)
	Claim(id string) (*persistence.Job, error)
	MarkSucceeded(id string) error
	Requeue(id string, nextRetryAt time.Time, errMsg string) error
	MarkFailed(id string, errMsg string) error
}

//AudioStore provides and updates the owning audio resources
type AudioStore interface {
	Get(id string) (*persistence.Audio, error)
	SetStatus(id string, st string, summary map[string]interface{}) error
}

//BackoffProvider returns backoff for transient persistence writes
type BackoffProvider interface {
	Get() backoff.BackOff
}

//Processor executes one queued job: claim, recognize, segment, persist
type Processor struct {
	Runs       RunStore
	Jobs       JobStore
	Audio      AudioStore
	Recognizer recognition.Recognizer
	Events     audit.Sink

	MaxAttempts     int
	BackoffSchedule []time.Duration
	BackoffProvider BackoffProvider

	nowFunc func() time.Time
}

//ErrNotFound indicates a missing run, job or audio - never retried
var ErrNotFound = errors.New("record not found")

//DefaultBackoffSchedule returns the retry delays used when no schedule
//is configured
func DefaultBackoffSchedule() []time.Duration {
	return []time.Duration{5 * time.Second, 30 * time.Second, 120 * time.Second}
}

//Validate checks the processor wiring
func (p *Processor) Validate() error {
	if p.Runs == nil {
		return errors.New("No run store")
	}
	if p.Jobs == nil {
		return errors.New("No job store")
	}
	if p.Audio == nil {
		return errors.New("No audio store")
	}
	if p.Recognizer == nil {
		return errors.New("No recognizer")
	}
	if p.Events == nil {
		return errors.New("No event sink")
	}
	if p.MaxAttempts < 1 {
		return errors.New("Wrong max attempts")
	}
	if len(p.BackoffSchedule) == 0 {
		return errors.New("No backoff schedule")
	}
	return nil
}

//ProcessJob claims and executes the job. A claim miss is not an error -
//another claimer won the race.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	claimed, err := p.Jobs.Claim(jobID)
	if err != nil {
		return errors.Wrap(err, "can't claim job")
	}
	if claimed == nil {
		cmdapp.Log.Infof("Job %s is not queued anymore, skipping", jobID)
		return nil
	}
	cmdapp.Log.Infof("Processing job %s, attempt %d", claimed.ID, claimed.AttemptsMade)

	run, err := p.Runs.Get(claimed.RunID)
	if err == nil && run == nil {
		err = errors.Wrapf(ErrNotFound, "no run %s", claimed.RunID)
	}
	if err != nil {
		return p.fail(claimed, run, err)
	}

	if err := p.Runs.MarkProcessing(run.ID); err != nil {
		return p.fail(claimed, run, err)
	}
	p.Events.Send(messages.NewRunEvent(messages.EvStarted, run.ID, run.AudioID,
		status.Name(status.Processing)))

	audio, err := p.Audio.Get(run.AudioID)
	if err == nil && audio == nil {
		err = errors.Wrapf(ErrNotFound, "no audio %s", run.AudioID)
	}
	if err != nil {
		return p.fail(claimed, run, err)
	}

	prm := api.FromMap(run.Params)
	res, err := p.Recognizer.Recognize(ctx, recognition.Source{Locator: audio.Locator},
		prm.Recognition())
	if err != nil {
		return p.fail(claimed, run, err)
	}

	segments := segment.Split(res.Words, prm.GapSec, prm.MaxSegmentSec)
	text := segment.JoinText(segments)
	speakerCount := segment.SpeakerCount(res.Words)

	err = p.retryPersist(func() error {
		return p.Runs.SaveResult(run.ID, text, segments, speakerCount, res.Confidence)
	})
	if err != nil {
		return p.fail(claimed, run, err)
	}
	err = p.retryPersist(func() error {
		return p.Jobs.MarkSucceeded(claimed.ID)
	})
	if err != nil {
		// the result is already saved, settle only the job row
		return p.fail(claimed, nil, errors.Wrap(err, "can't mark job succeeded"))
	}
	cmdapp.LogIf(p.Audio.SetStatus(run.AudioID, persistence.AudioStTranscribed,
		summary(run.ID, text, speakerCount)))
	p.Events.Send(messages.NewRunEvent(messages.EvFinished, run.ID, run.AudioID,
		status.Name(status.Succeeded)))
	return nil
}

//ProcessRunJob finds and executes the active job for the run.
//It backs the push based internal trigger endpoint.
func (p *Processor) ProcessRunJob(ctx context.Context, runID string) (*persistence.Run, *persistence.Audio, error) {
	job, err := p.Jobs.FindActiveByRun(runID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "can't get job")
	}
	if job == nil {
		return nil, nil, errors.Wrapf(ErrNotFound, "no active job for run %s", runID)
	}
	err = p.ProcessJob(ctx, job.ID)
	if err != nil {
		return nil, nil, err
	}
	run, err := p.Runs.Get(runID)
	if err != nil || run == nil {
		return nil, nil, errors.Wrapf(ErrNotFound, "no run %s", runID)
	}
	audio, err := p.Audio.Get(run.AudioID)
	if err != nil {
		return run, nil, err
	}
	return run, audio, nil
}

//fail applies the retry policy: requeue with backoff while attempts remain,
//terminal failure otherwise. Validation failures are never retried.
func (p *Processor) fail(job *persistence.Job, run *persistence.Run, cause error) error {
	cmdapp.Log.Error(cause)
	attempts := job.AttemptsMade
	if attempts < p.MaxAttempts && !errors.Is(cause, ErrNotFound) {
		nextRetryAt := p.now().Add(p.delay(attempts))
		if err := p.Jobs.Requeue(job.ID, nextRetryAt, cause.Error()); err != nil {
			return errors.Wrap(err, "can't requeue job")
		}
		// the run stays processing, a retry will pick it up
		return nil
	}
	if err := p.Jobs.MarkFailed(job.ID, cause.Error()); err != nil {
		return errors.Wrap(err, "can't mark job failed")
	}
	if run != nil {
		cmdapp.LogIf(p.retryPersist(func() error {
			return p.Runs.SaveFailure(run.ID, cause.Error())
		}))
		cmdapp.LogIf(p.Audio.SetStatus(run.AudioID, persistence.AudioStFailed, nil))
		p.Events.Send(newFailureEvent(run, cause))
	}
	return nil
}

//delay returns the backoff delay for the attempt, the schedule caps out
//and repeats its last value
func (p *Processor) delay(attempts int) time.Duration {
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.BackoffSchedule) {
		idx = len(p.BackoffSchedule) - 1
	}
	return p.BackoffSchedule[idx]
}

func (p *Processor) retryPersist(op func() error) error {
	if p.BackoffProvider == nil {
		return op()
	}
	return backoff.Retry(op, p.BackoffProvider.Get())
}

func (p *Processor) now() time.Time {
	if p.nowFunc != nil {
		return p.nowFunc()
	}
	return time.Now()
}

func newFailureEvent(run *persistence.Run, cause error) *messages.RunEvent {
	ev := messages.NewRunEvent(messages.EvFailed, run.ID, run.AudioID,
		status.Name(status.Failed))
	ev.Error = cause.Error()
	return ev
}

func summary(runID, text string, speakerCount int) map[string]interface{} {
	txt := text
	if len(txt) > 200 {
		cut := 200
		// do not split a multi byte rune
		for cut > 0 && !utf8.RuneStart(txt[cut]) {
			cut--
		}
		txt = txt[:cut]
	}
	return map[string]interface{}{"runID": runID, "textPreview": txt,
		"speakerCount": speakerCount}
}
