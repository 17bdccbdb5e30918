package runstatus

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/scribeline/scribeline/internal/app/runstatus/api"
	"github.com/scribeline/scribeline/internal/pkg/cmdapp"
	"github.com/scribeline/scribeline/internal/pkg/persistence"
)

//RunGetter fetches a persisted run by ID
type RunGetter interface {
	Get(id string) (*persistence.Run, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Runs             RunGetter
	Port             int
	EventChannelFunc eventChannelFunc
}

//StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Listen queue")
	quitChan := make(chan bool)
	defer close(quitChan)
	go registerQueue(data, quitChan, time.Second)

	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)
	http.Handle("/", r)
	portStr := strconv.Itoa(data.Port)
	err := http.ListenAndServe(":"+portStr, nil)

	if err != nil {
		return errors.Wrap(err, "Can't start HTTP listener at port "+portStr)
	}
	return nil
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Methods("GET").Path("/status/{runId}").Handler(statusHandler{data: data})
	router.Handle("/subscribe", websocketHandler{data: data})
	return router
}

type statusHandler struct {
	data *ServiceData
}

type websocketHandler struct {
	data *ServiceData
}

func (h statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Status request from %s", r.Host)

	id := mux.Vars(r)["runId"]
	if id == "" {
		setError(w, "No run ID", http.StatusBadRequest)
		cmdapp.Log.Errorf("No run ID")
		return
	}

	result, err := getStatus(h.data, id)
	if err != nil {
		setError(w, "Cannot get status for run: "+id, http.StatusNotFound)
		cmdapp.Log.Error(err)
		return
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		setError(w, "Can not prepare result", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(resultBytes)
}

func getStatus(data *ServiceData, id string) (*api.RunStatus, error) {
	run, err := data.Runs.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "Can't get run "+id)
	}
	if run == nil {
		return nil, errors.New("No run " + id)
	}
	return &api.RunStatus{ID: run.ID, AudioID: run.AudioID, Status: run.Status,
		Error: run.Error, SpeakerCount: run.SpeakerCount,
		CompletedAt: run.CompletedAt}, nil
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func (h websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("ws request from %s", r.Host)

	c, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		setError(w, "Can not init ws connection", http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}
	go handleConnection(c)
}

func setError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	w.Write([]byte(message))
}
