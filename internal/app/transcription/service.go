package transcription

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scribeline/scribeline/internal/app/transcription/api"
	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
	"github.com/scribeline/scribeline/internal/pkg/pipeline"
)

type serviceMetric struct {
	transcribeResponseDur prometheus.ObserverVec
	transcribeRequestSize prometheus.ObserverVec
	runResponseDur        prometheus.ObserverVec
	triggerResponseDur    prometheus.ObserverVec
}

//Starter routes a transcription request
type Starter interface {
	RequestTranscription(ctx context.Context, audioID string, prm api.TranscriptionParams,
		force bool) (*api.Response, error)
}

//RunProvider fetches a persisted run by ID
type RunProvider interface {
	Get(id string) (*persistence.Run, error)
}

//JobTrigger runs the active job of a run on demand
type JobTrigger interface {
	ProcessRunJob(ctx context.Context, runID string) (*persistence.Run, *persistence.Audio, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Starter Starter
	Runs    RunProvider
	Trigger JobTrigger

	TriggerSecret string
	Port          int
	health        healthcheck.Handler
	metrics       serviceMetric
}

//StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      300 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	th := promhttp.InstrumentHandlerDuration(data.metrics.transcribeResponseDur,
		promhttp.InstrumentHandlerRequestSize(data.metrics.transcribeRequestSize, transcribeHandler{data: data}))
	rh := promhttp.InstrumentHandlerDuration(data.metrics.runResponseDur, runHandler{data: data})
	jh := promhttp.InstrumentHandlerDuration(data.metrics.triggerResponseDur, triggerHandler{data: data})
	router.Methods("POST").Path("/transcriptions").Handler(th)
	router.Methods("GET").Path("/transcriptions/{id}").Handler(rh)
	router.Methods("POST").Path("/internal/jobs/{runId}").Handler(jh)
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

type transcribeHandler struct {
	data *ServiceData
}

func (h transcribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Transcription request from %s", r.Host)

	var req api.Request
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "Can't decode request", http.StatusBadRequest)
		cmdapp.Log.Error(errors.Wrap(err, "Can't decode request"))
		return
	}
	if req.AudioID == "" {
		http.Error(w, "No audioId", http.StatusBadRequest)
		cmdapp.Log.Errorf("No audioId")
		return
	}

	res, err := h.data.Starter.RequestTranscription(r.Context(), req.AudioID, req.Params, req.Force)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Unknown audio: "+req.AudioID, http.StatusBadRequest)
		} else {
			http.Error(w, "Can't process request", http.StatusInternalServerError)
		}
		cmdapp.Log.Error(err)
		return
	}

	code := http.StatusOK
	if res.Queued {
		code = http.StatusAccepted
	}
	writeJSON(w, code, res)
}

type runHandler struct {
	data *ServiceData
}

func (h runHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "No ID", http.StatusBadRequest)
		cmdapp.Log.Errorf("No ID")
		return
	}
	run, err := h.data.Runs.Get(id)
	if err != nil {
		http.Error(w, "Can't get run", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if run == nil {
		http.Error(w, "Unknown run: "+id, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.RunFrom(run))
}

type triggerHandler struct {
	data *ServiceData
}

func (h triggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.data.TriggerSecret == "" || r.Header.Get("X-Trigger-Secret") != h.data.TriggerSecret {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		cmdapp.Log.Errorf("Wrong trigger secret from %s", r.Host)
		return
	}
	runID := mux.Vars(r)["runId"]
	if runID == "" {
		http.Error(w, "No run ID", http.StatusBadRequest)
		cmdapp.Log.Errorf("No run ID")
		return
	}
	cmdapp.Log.Infof("Job trigger for run %s", runID)

	run, _, err := h.data.Trigger.ProcessRunJob(r.Context(), runID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			http.Error(w, "No active job for run: "+runID, http.StatusNotFound)
		} else {
			http.Error(w, "Can't process job", http.StatusInternalServerError)
		}
		cmdapp.Log.Error(err)
		return
	}
	writeJSON(w, http.StatusOK, api.RunFrom(run))
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		cmdapp.Log.Error(errors.Wrap(err, "Can't encode response"))
	}
}
