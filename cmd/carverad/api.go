// HTTP API surface, grounded on teacher cmd/gcnc/api.go (SSE state
// push, file PUT/DELETE under a data directory, run/probe POST
// endpoints), restructured onto gorilla/mux routing and
// jasonwbarnett/fileserver instead of the teacher's bare
// http.NewServeMux/http.FileServer (both declared but never actually
// used by the teacher).
package main

import (
	"encoding/json"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/jasonwbarnett/fileserver"
	"github.com/sirupsen/logrus"

	"github.com/mcowger/Carvera-Controller/session"
)

type api struct {
	http.Handler
	ctl     *session.Controller
	dataDir string
	sse     *sse.Server
	log     *logrus.Logger
}

func newAPI(ctl *session.Controller, dataDir string, log *logrus.Logger) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		ctl:     ctl,
		dataDir: dataDir,
		log:     log,
		sse:     sse.NewServer(&sse.Options{Logger: stdlog.New(log.Writer(), "", 0)}),
	}

	fs := fileserver.New(http.Dir(dataDir))
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data", withMethods(fs, a)))

	r.HandleFunc("/api/run", a.run).Methods("POST")
	r.HandleFunc("/api/status", a.status).Methods("GET")
	r.HandleFunc("/api/home", a.home).Methods("POST")
	r.HandleFunc("/api/feedhold", a.feedhold).Methods("POST")
	r.HandleFunc("/api/reset", a.reset).Methods("POST")
	r.PathPrefix("/events/").Handler(a.sse)

	ctl.OnStatus = func(st session.StatusReport) {
		data, err := json.Marshal(st)
		if err != nil {
			a.log.WithError(err).Error("marshal status")
			return
		}
		a.sse.SendMessage("/events/state", sse.SimpleMessage(string(data)))
	}

	return a
}

// withMethods lets GET fall through to the static file server while PUT
// and DELETE go through carverad's own upload/delete handlers.
func withMethods(fs http.Handler, a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			fs.ServeHTTP(w, req)
		case http.MethodPut:
			a.putFile(w, req)
		case http.MethodDelete:
			a.deleteFile(w, req)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	}
}

func safePath(base, name string) (bool, string) {
	if strings.Contains(name, "..") {
		return false, ""
	}
	return true, filepath.Join(base, filepath.FromSlash(name))
}

func (a *api) run(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, err := a.ctl.ExecuteGCode(line); err != nil {
			a.log.WithError(err).WithField("line", line).Error("execute gcode")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	a.ctl.Lock()
	pos := a.ctl.State().Position
	conn := a.ctl.ConnState().String()
	a.ctl.Unlock()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"connection": conn,
		"position":   pos,
	})
}

func (a *api) home(w http.ResponseWriter, req *http.Request) {
	if err := a.ctl.Home(req.FormValue("axes")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *api) feedhold(w http.ResponseWriter, req *http.Request) {
	if err := a.ctl.FeedHold(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *api) reset(w http.ResponseWriter, req *http.Request) {
	if err := a.ctl.SoftReset(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	os.MkdirAll(filepath.Dir(name), 0755)
	f, err := os.Create(name)
	if err != nil {
		a.log.WithError(err).WithField("file", name).Error("create")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	if _, err := io.Copy(f, req.Body); err != nil {
		a.log.WithError(err).WithField("file", name).Error("write")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := os.Remove(name); err != nil {
		a.log.WithError(err).WithField("file", name).Error("delete")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
