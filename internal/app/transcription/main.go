package transcription

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scribeline/scribeline/internal/pkg/audit"
	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/loader"
	"github.com/scribeline/scribeline/internal/pkg/metrics"
	"github.com/scribeline/scribeline/internal/pkg/mongo"
	"github.com/scribeline/scribeline/internal/pkg/pipeline"
	"github.com/scribeline/scribeline/internal/pkg/rabbit"
	"github.com/scribeline/scribeline/internal/pkg/recognition"
)

var rootCmd = &cobra.Command{
	Use:   "transcriptionService",
	Short: "Scribeline Transcription Service",
	Long:  `HTTP server to accept transcription requests and route them to the sync or async path`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8080)
	cmdapp.Config.SetDefault("recognizer.engine", "default")
	cmdapp.Config.SetDefault("routing.syncSizeLimit", 10*1024*1024)
	cmdapp.Config.SetDefault("routing.syncDurationLimit", 60*time.Second)
	cmdapp.Config.SetDefault("routing.bufferSizeLimit", 4*1024*1024)
	cmdapp.Config.SetDefault("worker.maxAttempts", 3)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/audio.in/")
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting transcriptionService")
	data := &ServiceData{}
	err := initMetrics(data)
	cmdapp.CheckOrPanic(err, "Can't init metrics")
	data.health = healthcheck.NewHandler()

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	runStore, err := mongo.NewRunStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init run store")
	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")
	audioStore, err := mongo.NewAudioStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init audio store")

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()
	data.health.AddLivenessCheck("rabbit", healthcheck.Async(msgChannelProvider.Healthy, 10*time.Second))

	events := audit.NewRabbitSink(msgChannelProvider)

	fileLoader, err := loader.NewLocalFileLoader(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init file loader")

	bufferClient, err := recognition.NewBufferClient()
	cmdapp.CheckOrPanic(err, "Can't init buffer recognizer")
	locatorClient, err := recognition.NewLocatorClient()
	cmdapp.CheckOrPanic(err, "Can't init batch recognizer")

	crd := &Coordinator{Runs: runStore, Jobs: jobStore, Audio: audioStore,
		Loader: fileLoader, Buffer: bufferClient, Locator: locatorClient,
		Events: events,
		Engine: cmdapp.Config.GetString("recognizer.engine"),
		Config: RoutingConfig{
			SyncSizeLimit:     cmdapp.Config.GetInt64("routing.syncSizeLimit"),
			SyncDurationLimit: cmdapp.Config.GetDuration("routing.syncDurationLimit"),
			BufferSizeLimit:   cmdapp.Config.GetInt64("routing.bufferSizeLimit"),
			InlineOnly:        cmdapp.Config.GetBool("routing.inline")}}
	cmdapp.CheckOrPanic(crd.Validate(), "Wrong coordinator config")
	data.Starter = crd
	data.Runs = runStore

	proc := &pipeline.Processor{Runs: runStore, Jobs: jobStore, Audio: audioStore,
		Recognizer: locatorClient, Events: events,
		MaxAttempts:     cmdapp.Config.GetInt("worker.maxAttempts"),
		BackoffSchedule: pipeline.DefaultBackoffSchedule()}
	cmdapp.CheckOrPanic(proc.Validate(), "Wrong processor config")
	data.Trigger = proc

	data.TriggerSecret = cmdapp.Config.GetString("trigger.secret")
	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func initMetrics(data *ServiceData) error {
	namespace := "transcription_service"
	data.metrics.transcribeResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_durations_seconds",
			Help:      "Transcription request latency distributions.",
		}, nil)
	err := metrics.Register(data.metrics.transcribeResponseDur)
	if err != nil {
		return err
	}
	data.metrics.transcribeRequestSize = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "request_size_bytes",
			Help:      "Transcription request size in bytes."}, nil)
	err = metrics.Register(data.metrics.transcribeRequestSize)
	if err != nil {
		return err
	}
	data.metrics.runResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_request_durations_seconds",
			Help:      "Run status request latency distributions.",
		}, nil)
	err = metrics.Register(data.metrics.runResponseDur)
	if err != nil {
		return err
	}
	data.metrics.triggerResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trigger_request_durations_seconds",
			Help:      "Job trigger request latency distributions.",
		}, nil)
	return metrics.Register(data.metrics.triggerResponseDur)
}
