package laptracker

import (
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// AuditEntry records one operator action against the store.
type AuditEntry struct {
	Method string    `json:"method"`
	URL    string    `json:"url"`
	Time   time.Time `json:"time"`
}

// scans arrive at camera frame rate and would drown the log
var auditIgnoredURLs = [...]string{
	"/api/scan",
}

// AuditLogger persists every mutating request. Failures to write the audit
// trail never fail the request itself.
func AuditLogger(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			for _, url := range auditIgnoredURLs {
				if url == r.URL.Path {
					next.ServeHTTP(w, r)
					return
				}
			}

			entry := &AuditEntry{
				Method: r.Method,
				URL:    r.URL.String(),
				Time:   time.Now(),
			}

			if err := store.AddAuditEntry(entry); err != nil {
				logrus.WithError(err).Error("couldn't add audit entry for request")
			}

			next.ServeHTTP(w, r)
		})
	}
}

type AuditLogHandler struct {
	store Store
}

func NewAuditLogHandler(store Store) *AuditLogHandler {
	return &AuditLogHandler{store: store}
}

func (alh *AuditLogHandler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := alh.store.ListAuditEntries()

	if err != nil {
		logrus.WithError(err).Error("couldn't load audit entries")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// newest first
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Time.After(entries[j].Time)
	})

	writeJSON(w, entries)
}
