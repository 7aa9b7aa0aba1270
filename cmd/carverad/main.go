// Command carverad is the daemon entry point, grounded on teacher
// cmd/gcnc/main.go's flag/transport-selection/ListenAndServe shape but
// switched to env-based config (config.go) and structured logging via
// logrus instead of the stdlib log package.
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mcowger/Carvera-Controller/cmd/carverad/bridge"
	"github.com/mcowger/Carvera-Controller/session"
	"github.com/mcowger/Carvera-Controller/transport"
)

func main() {
	cfg := loadConfig()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	tr, err := openTransport(cfg)
	if err != nil {
		log.WithError(err).Fatal("open transport")
	}

	ctl := session.New(tr)
	if err := ctl.Connect(); err != nil {
		log.WithError(err).Fatal("connect")
	}
	log.WithField("state", ctl.ConnState()).Info("controller connected")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.WithError(err).Fatal("create data dir")
	}

	if lines, err := parseStartupCommands(cfg.StartupCommands); err != nil {
		log.WithError(err).Error("parse startup commands")
	} else {
		for _, line := range lines {
			if _, err := ctl.ExecuteGCode(line); err != nil {
				log.WithError(err).WithField("line", line).Error("startup command failed")
			}
		}
	}

	a := newAPI(ctl, cfg.DataDir, log)

	handler := withCORSAndLogging(a, log)

	log.WithField("addr", cfg.Addr).Info("listening")
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.WithError(err).Fatal("serve")
	}
}

// withCORSAndLogging mirrors the teacher's inline ListenAndServe wrapper
// (CORS headers plus a per-request log line) but through logrus instead
// of a bare log.Printf.
func withCORSAndLogging(next http.Handler, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"remote": req.RemoteAddr,
		}).Info("request")
		next.ServeHTTP(w, req)
	})
}

func openTransport(cfg Config) (transport.Transport, error) {
	if cfg.Bridge != "" {
		return bridge.New(cfg.Bridge), nil
	}
	if serial, err := transport.OpenSerial(transport.SerialConfig{
		Device:      cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: time.Second,
	}); err == nil {
		return serial, nil
	}
	return transport.DialTCP(cfg.Port, 5*time.Second)
}
