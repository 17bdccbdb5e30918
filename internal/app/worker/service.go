package worker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
)

//JobLister returns jobs due for execution
type JobLister interface {
	ListDue(now time.Time, limit int) ([]persistence.Job, error)
}

//JobRunner executes one claimed job
type JobRunner interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Jobs   JobLister
	Runner JobRunner

	PollInterval time.Duration
	BatchSize    int

	qChan        chan struct{}
	workWaitChan chan struct{}

	lock     sync.Mutex
	inFlight map[string]struct{}
}

//StartWorkerService starts the job polling loop
func StartWorkerService(data *ServiceData) error {
	err := validateData(data)
	if err != nil {
		return err
	}
	cmdapp.Log.Infof("Starting worker service every %v", data.PollInterval)
	data.qChan = make(chan struct{})
	data.workWaitChan = make(chan struct{})
	data.inFlight = make(map[string]struct{})
	go serviceLoop(data)
	return nil
}

//Stop signals the loop to exit and waits for it
func Stop(data *ServiceData) {
	close(data.qChan)
	<-data.workWaitChan
}

func validateData(data *ServiceData) error {
	if data.Jobs == nil {
		return errors.New("No job lister")
	}
	if data.Runner == nil {
		return errors.New("No job runner")
	}
	if data.PollInterval <= 0 {
		return errors.New("Wrong poll interval")
	}
	if data.BatchSize < 1 {
		return errors.New("Wrong batch size")
	}
	return nil
}

func serviceLoop(data *ServiceData) {
	ticker := time.NewTicker(data.PollInterval)
	// run on startup
	doPoll(data)
mainloop:
	for {
		select {
		case <-ticker.C:
			doPoll(data)
		case <-data.qChan:
			ticker.Stop()
			break mainloop
		}
	}
	cmdapp.Log.Infof("Stopped worker service")
	close(data.workWaitChan)
}

func doPoll(data *ServiceData) {
	jobs, err := data.Jobs.ListDue(time.Now(), data.BatchSize)
	if err != nil {
		cmdapp.Log.Error(err)
		return
	}
	for _, job := range jobs {
		if !markInFlight(data, job.ID) {
			continue
		}
		go processJob(data, job.ID)
	}
}

func processJob(data *ServiceData, jobID string) {
	defer clearInFlight(data, jobID)
	cmdapp.Log.Infof("Processing job %s", jobID)
	err := data.Runner.ProcessJob(context.Background(), jobID)
	if err != nil {
		cmdapp.Log.Error(err)
	}
}

//markInFlight guards against dispatching a job the previous tick
//is still working on
func markInFlight(data *ServiceData, jobID string) bool {
	data.lock.Lock()
	defer data.lock.Unlock()
	if _, ok := data.inFlight[jobID]; ok {
		return false
	}
	data.inFlight[jobID] = struct{}{}
	return true
}

func clearInFlight(data *ServiceData, jobID string) {
	data.lock.Lock()
	defer data.lock.Unlock()
	delete(data.inFlight, jobID)
}
