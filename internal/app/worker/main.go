package worker

import (
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/spf13/cobra"

	"github.com/scribeline/scribeline/internal/pkg/audit"
	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/mongo"
	"github.com/scribeline/scribeline/internal/pkg/pipeline"
	"github.com/scribeline/scribeline/internal/pkg/rabbit"
	"github.com/scribeline/scribeline/internal/pkg/recognition"
)

var appName = "Scribeline Worker Service"

var rootCmd = &cobra.Command{
	Use:   "workerService",
	Short: appName,
	Long:  `Service to poll queued transcription jobs and run them with retries`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	cmdapp.Config.SetDefault("worker.pollInterval", 2*time.Second)
	cmdapp.Config.SetDefault("worker.batchSize", 10)
	cmdapp.Config.SetDefault("worker.maxAttempts", 3)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	var err error

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()

	runStore, err := mongo.NewRunStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init run store")
	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")
	audioStore, err := mongo.NewAudioStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init audio store")

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()

	events := audit.NewRabbitSink(msgChannelProvider)

	recognizer, err := recognition.NewLocatorClient()
	cmdapp.CheckOrPanic(err, "Can't init batch recognizer")

	proc := &pipeline.Processor{Runs: runStore, Jobs: jobStore, Audio: audioStore,
		Recognizer: recognizer, Events: events,
		MaxAttempts:     cmdapp.Config.GetInt("worker.maxAttempts"),
		BackoffSchedule: backoffSchedule(cmdapp.Config.GetString("worker.backoff")),
		BackoffProvider: &expBackOffProvider{}}
	cmdapp.CheckOrPanic(proc.Validate(), "Wrong processor config")

	data := &ServiceData{Jobs: jobStore, Runner: proc,
		PollInterval: cmdapp.Config.GetDuration("worker.pollInterval"),
		BatchSize:    cmdapp.Config.GetInt("worker.batchSize")}

	err = StartWorkerService(data)
	cmdapp.CheckOrPanic(err, "Can't start worker service")
	cmdapp.Log.Infof("Started")

	fc := cmdapp.NewSignalChannel()
	<-fc
	Stop(data)
	cmdapp.Log.Infof("Exiting service")
}

//backoffSchedule parses a comma separated duration list, for example "5s,30s,120s"
func backoffSchedule(s string) []time.Duration {
	if s == "" {
		return pipeline.DefaultBackoffSchedule()
	}
	var res []time.Duration
	for _, p := range strings.Split(s, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			cmdapp.Log.Warnf("Wrong backoff value '%s', using defaults", p)
			return pipeline.DefaultBackoffSchedule()
		}
		res = append(res, d)
	}
	return res
}

type expBackOffProvider struct {
}

func (bp *expBackOffProvider) Get() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         backoff.DefaultMaxInterval,
		MaxElapsedTime:      45 * time.Second,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
