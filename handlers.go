package laptracker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Add("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONStatus(w, status, map[string]string{"error": err.Error()})
}

type StudentsHandler struct {
	studentManager *StudentManager
}

func NewStudentsHandler(studentManager *StudentManager) *StudentsHandler {
	return &StudentsHandler{studentManager: studentManager}
}

func (sh *StudentsHandler) list(w http.ResponseWriter, r *http.Request) {
	students, err := sh.studentManager.ListStudents()

	if err != nil {
		logrus.WithError(err).Error("could not list students")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, students)
}

func (sh *StudentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	student, err := sh.studentManager.AddStudent(body.Name)

	switch err {
	case nil:
		writeJSONStatus(w, http.StatusCreated, student)
	case ErrEmptyStudentName:
		writeError(w, http.StatusBadRequest, err)
	case ErrDuplicateQRCode:
		writeError(w, http.StatusConflict, err)
	default:
		logrus.WithError(err).Error("could not add student")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (sh *StudentsHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := sh.studentManager.DeleteStudent(chi.URLParam(r, "studentID"))

	switch err {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case ErrStudentNotFound:
		writeError(w, http.StatusNotFound, err)
	default:
		logrus.WithError(err).Error("could not delete student")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type SessionsHandler struct {
	sessionManager *SessionManager
	broadcaster    Broadcaster
}

func NewSessionsHandler(sessionManager *SessionManager, broadcaster Broadcaster) *SessionsHandler {
	return &SessionsHandler{
		sessionManager: sessionManager,
		broadcaster:    broadcaster,
	}
}

type sessionSummary struct {
	*Session

	TotalLaps      int    `json:"totalLaps"`
	ActiveStudents int    `json:"activeStudents"`
	Started        string `json:"started"`
}

func summariseSession(session *Session) *sessionSummary {
	age := time.Since(time.Unix(0, session.StartTime*int64(time.Millisecond)))

	return &sessionSummary{
		Session:        session,
		TotalLaps:      session.TotalLaps(),
		ActiveStudents: session.ActiveStudents(),
		Started:        durafmt.Parse(age.Round(time.Second)).LimitFirstN(2).String() + " ago",
	}
}

func (sh *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := sh.sessionManager.ListSessions()

	if err != nil {
		logrus.WithError(err).Error("could not list sessions")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	summaries := make([]*sessionSummary, 0, len(sessions))

	for _, session := range sessions {
		summaries = append(summaries, summariseSession(session))
	}

	writeJSON(w, summaries)
}

func (sh *SessionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string  `json:"name"`
		DistancePerLap float64 `json:"distancePerLap"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := sh.sessionManager.CreateSession(body.Name, body.DistancePerLap)

	switch err {
	case nil:
		writeJSONStatus(w, http.StatusCreated, session)
	case ErrEmptySessionName, ErrInvalidDistance:
		writeError(w, http.StatusBadRequest, err)
	default:
		logrus.WithError(err).Error("could not create session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (sh *SessionsHandler) view(w http.ResponseWriter, r *http.Request) {
	session, err := sh.sessionManager.FindSessionByID(chi.URLParam(r, "sessionID"))

	switch err {
	case nil:
		writeJSON(w, summariseSession(session))
	case ErrSessionNotFound:
		writeError(w, http.StatusNotFound, err)
	default:
		logrus.WithError(err).Error("could not load session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (sh *SessionsHandler) active(w http.ResponseWriter, r *http.Request) {
	session, err := sh.sessionManager.ActiveSession()

	switch err {
	case nil:
		writeJSON(w, summariseSession(session))
	case ErrNoActiveSession:
		writeError(w, http.StatusNotFound, err)
	default:
		logrus.WithError(err).Error("could not load active session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (sh *SessionsHandler) update(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := sh.sessionManager.UpdateSessionName(chi.URLParam(r, "sessionID"), body.Name)

	switch err {
	case nil:
		writeJSON(w, summariseSession(session))
	case ErrEmptySessionName:
		writeError(w, http.StatusBadRequest, err)
	case ErrSessionNotFound:
		writeError(w, http.StatusNotFound, err)
	default:
		logrus.WithError(err).Error("could not update session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (sh *SessionsHandler) end(w http.ResponseWriter, r *http.Request) {
	session, err := sh.sessionManager.EndSession(chi.URLParam(r, "sessionID"))

	switch err {
	case nil:
		if err := sh.broadcaster.Send(newSessionEndedMessage(session)); err != nil {
			logrus.WithError(err).Error("could not broadcast session end")
		}

		writeJSON(w, summariseSession(session))
	case ErrSessionNotFound:
		writeError(w, http.StatusNotFound, err)
	default:
		logrus.WithError(err).Error("could not end session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type ScanHandler struct {
	engine         *ScanEngine
	sessionManager *SessionManager
	studentManager *StudentManager
}

func NewScanHandler(engine *ScanEngine, sessionManager *SessionManager, studentManager *StudentManager) *ScanHandler {
	return &ScanHandler{
		engine:         engine,
		sessionManager: sessionManager,
		studentManager: studentManager,
	}
}

type scanResponse struct {
	*ScanResult

	LapTimeText string `json:"lapTimeText,omitempty"`
	Message     string `json:"message"`
}

func (sh *ScanHandler) scan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
		At   int64  `json:"at"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := sh.sessionManager.ActiveSession()

	if err == ErrNoActiveSession {
		writeError(w, http.StatusConflict, err)
		return
	} else if err != nil {
		logrus.WithError(err).Error("could not load active session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roster, err := sh.studentManager.ListStudents()

	if err != nil {
		logrus.WithError(err).Error("could not list students")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	now := body.At

	if now == 0 {
		now = time.Now().UnixNano() / int64(time.Millisecond)
	}

	result, err := sh.engine.RecordScan(session, roster, body.Code, now)

	if err == nil {
		response := &scanResponse{
			ScanResult: result,
			Message:    fmt.Sprintf("%s - Vuelta %d", result.Student.Name, result.LapNumber),
		}

		// the live scanner view uses the coarser clock format
		if result.LapTime != nil {
			response.LapTimeText = FormatClock(*result.LapTime)
			response.Message += " - " + response.LapTimeText
		}

		writeJSON(w, response)
		return
	}

	if cooldown, ok := err.(*CooldownError); ok {
		writeJSONStatus(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":            cooldown.Error(),
			"remainingSeconds": cooldown.RemainingSeconds(),
		})
		return
	}

	switch err {
	case ErrUnknownCode:
		writeError(w, http.StatusNotFound, err)
	case ErrNoActiveSession:
		writeError(w, http.StatusConflict, err)
	default:
		logrus.WithError(err).Error("could not record scan")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type ResultsHandler struct {
	sessionManager *SessionManager
	studentManager *StudentManager
}

func NewResultsHandler(sessionManager *SessionManager, studentManager *StudentManager) *ResultsHandler {
	return &ResultsHandler{
		sessionManager: sessionManager,
		studentManager: studentManager,
	}
}

func (rh *ResultsHandler) loadStats(r *http.Request) (*Session, []*StudentStats, error) {
	session, err := rh.sessionManager.FindSessionByID(chi.URLParam(r, "sessionID"))

	if err != nil {
		return nil, nil, err
	}

	roster, err := rh.studentManager.ListStudents()

	if err != nil {
		return nil, nil, err
	}

	return session, CalculateStats(session, roster), nil
}

type rankedStats struct {
	Position int `json:"position"`

	*StudentStats

	TotalDistanceText  string `json:"totalDistanceText"`
	AverageLapTimeText string `json:"averageLapTimeText"`
	FastestLapText     string `json:"fastestLapText"`
	SlowestLapText     string `json:"slowestLapText"`
}

func (rh *ResultsHandler) view(w http.ResponseWriter, r *http.Request) {
	session, stats, err := rh.loadStats(r)

	if err == ErrSessionNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		logrus.WithError(err).Error("could not compute results")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ranked := make([]*rankedStats, 0, len(stats))

	for i, stat := range stats {
		ranked = append(ranked, &rankedStats{
			Position:           i + 1,
			StudentStats:       stat,
			TotalDistanceText:  FormatDistance(stat.TotalDistance),
			AverageLapTimeText: formatOptionalLapTime(averageAsMillis(stat.AverageLapTime)),
			FastestLapText:     formatOptionalLapTime(stat.FastestLap),
			SlowestLapText:     formatOptionalLapTime(stat.SlowestLap),
		})
	}

	writeJSON(w, map[string]interface{}{
		"session": summariseSession(session),
		"stats":   ranked,
	})
}

func (rh *ResultsHandler) download(w http.ResponseWriter, r *http.Request) {
	session, stats, err := rh.loadStats(r)

	if err == ErrSessionNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		logrus.WithError(err).Error("could not compute results")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "text/csv;charset=utf-8")
	w.Header().Add("Content-Disposition", fmt.Sprintf(`attachment; filename="resultados-%s.csv"`, session.Name))

	if err := WriteResultsCSV(w, stats); err != nil {
		logrus.WithError(err).Error("could not write results csv")
	}
}
