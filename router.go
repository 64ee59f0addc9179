package laptracker

import (
	"bytes"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
)

const MaxLogSizeBytes = 1e6

var (
	logOutput = newLogBuffer(MaxLogSizeBytes)

	Debug = os.Getenv("DEBUG") == "true"
)

func InitLogging() {
	if !Debug {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logFile, err := os.OpenFile("lap-tracker.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)

	if err == nil {
		logrus.SetOutput(io.MultiWriter(os.Stdout, logOutput, logFile))
	} else {
		logrus.WithError(err).Errorf("could not create lap tracker log file")
		logrus.SetOutput(io.MultiWriter(os.Stdout, logOutput))
	}
}

func Router(
	store Store,
	studentsHandler *StudentsHandler,
	sessionsHandler *SessionsHandler,
	scanHandler *ScanHandler,
	resultsHandler *ResultsHandler,
	auditLogHandler *AuditLogHandler,
	liveFeedHandler *LiveFeedHandler,
	auditLogging bool,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if auditLogging {
		r.Use(AuditLogger(store))
	}

	r.Handle("/metrics", prometheusMonitoringHandler())

	if Debug {
		r.Mount("/debug/", middleware.Profiler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/students", studentsHandler.list)
		r.Post("/students", studentsHandler.create)
		r.Delete("/students/{studentID}", studentsHandler.delete)

		r.Get("/sessions", sessionsHandler.list)
		r.Post("/sessions", sessionsHandler.create)
		r.Get("/sessions/active", sessionsHandler.active)
		r.Get("/sessions/{sessionID}", sessionsHandler.view)
		r.Put("/sessions/{sessionID}", sessionsHandler.update)
		r.Post("/sessions/{sessionID}/end", sessionsHandler.end)

		r.Method(http.MethodPost, "/scan", MonitoringWrapper("scan", http.HandlerFunc(scanHandler.scan)))

		r.Get("/sessions/{sessionID}/results", resultsHandler.view)
		r.Get("/sessions/{sessionID}/results/download", resultsHandler.download)

		r.Get("/live", liveFeedHandler.serveWebsocket)

		r.Get("/audit", auditLogHandler.list)
		r.Get("/logs", serverLogsHandler)
	})

	return r
}

func serverLogsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"log": logOutput.String()})
}

func newLogBuffer(maxSize int) *logBuffer {
	return &logBuffer{
		size: maxSize,
		buf:  new(bytes.Buffer),
	}
}

type logBuffer struct {
	buf *bytes.Buffer

	size int
}

func (lb *logBuffer) Write(p []byte) (n int, err error) {
	b := lb.buf.Bytes()

	if len(b) > lb.size {
		lb.buf = bytes.NewBuffer(b[len(b)-lb.size:])
	}

	return lb.buf.Write(p)
}

func (lb *logBuffer) String() string {
	return lb.buf.String()
}
