package main

import (
	"flag"
	"net/http"

	laptracker "github.com/alejandroabellanef-ai/Contador-Vueltas-Profe-Alejandro"

	"github.com/sirupsen/logrus"
)

func main() {
	configFile := flag.String("config", "config.yml", "config file location")
	flag.Parse()

	laptracker.InitLogging()

	config, err := laptracker.ReadConfig(*configFile)

	if err != nil {
		logrus.WithError(err).Fatal("could not open config file")
	}

	store, err := config.Store.BuildStore()

	if err != nil {
		logrus.WithError(err).Fatal("could not open store")
	}

	if config.Monitoring.Enabled {
		laptracker.InitMonitoring()
	}

	liveFeedHandler := laptracker.NewLiveFeedHandler()

	studentManager := laptracker.NewStudentManager(store)
	sessionManager := laptracker.NewSessionManager(store)
	scanEngine := laptracker.NewScanEngine(store, liveFeedHandler)

	router := laptracker.Router(
		store,
		laptracker.NewStudentsHandler(studentManager),
		laptracker.NewSessionsHandler(sessionManager, liveFeedHandler),
		laptracker.NewScanHandler(scanEngine, sessionManager, studentManager),
		laptracker.NewResultsHandler(sessionManager, studentManager),
		laptracker.NewAuditLogHandler(store),
		liveFeedHandler,
		config.Server.AuditLogging,
	)

	logrus.Infof("starting lap tracker on: %s", config.HTTP.Hostname)
	logrus.Fatal(http.ListenAndServe(config.HTTP.Hostname, router))
}
