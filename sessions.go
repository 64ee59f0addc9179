package laptracker

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Lap is a single recorded pass of one student. Laps are immutable once
// appended; session.Laps stays in acceptance order across all students.
type Lap struct {
	StudentID string `json:"studentId"`
	Timestamp int64  `json:"timestamp"`
	LapNumber int    `json:"lapNumber"`
	LapTime   *int64 `json:"lapTime"`
}

// Session is one training session. StartTime and lap timestamps are unix
// milliseconds. At most one session is active at a time; the active session
// ID is persisted separately so the tool survives a restart mid-session.
type Session struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DistancePerLap float64   `json:"distancePerLap"`
	StartTime      int64     `json:"startTime"`
	Laps           []*Lap    `json:"laps"`
	IsActive       bool      `json:"isActive"`
	Created        time.Time `json:"created"`
}

// LapsForStudent filters the session's laps for one student, preserving
// acceptance order.
func (s *Session) LapsForStudent(studentID string) []*Lap {
	var laps []*Lap

	for _, lap := range s.Laps {
		if lap.StudentID == studentID {
			laps = append(laps, lap)
		}
	}

	return laps
}

// TotalLaps is the lap count across all students.
func (s *Session) TotalLaps() int {
	return len(s.Laps)
}

// ActiveStudents counts the students who have recorded at least one lap.
func (s *Session) ActiveStudents() int {
	seen := make(map[string]bool)

	for _, lap := range s.Laps {
		seen[lap.StudentID] = true
	}

	return len(seen)
}

var (
	ErrSessionNotFound  = errors.New("laptracker: session not found")
	ErrNoActiveSession  = errors.New("laptracker: no session is currently active")
	ErrInvalidDistance  = errors.New("laptracker: distance per lap must be a positive number")
	ErrEmptySessionName = errors.New("laptracker: session name must not be empty")
)

type SessionManager struct {
	store Store
}

func NewSessionManager(store Store) *SessionManager {
	return &SessionManager{store: store}
}

func (sm *SessionManager) ListSessions() ([]*Session, error) {
	return sm.store.ListSessions()
}

func (sm *SessionManager) FindSessionByID(id string) (*Session, error) {
	return sm.store.FindSessionByID(id)
}

// CreateSession starts a new active session and points the active session
// ID at it. Distance must be positive; sessions are never created inactive.
func (sm *SessionManager) CreateSession(name string, distancePerLap float64) (*Session, error) {
	if name == "" {
		return nil, ErrEmptySessionName
	}

	if distancePerLap <= 0 {
		return nil, ErrInvalidDistance
	}

	session := &Session{
		ID:             uuid.New().String(),
		Name:           name,
		DistancePerLap: distancePerLap,
		StartTime:      time.Now().UnixNano() / int64(time.Millisecond),
		IsActive:       true,
		Created:        time.Now(),
	}

	if err := sm.store.UpsertSession(session); err != nil {
		return nil, err
	}

	if err := sm.store.SetActiveSessionID(session.ID); err != nil {
		return nil, err
	}

	logrus.Infof("started session: %s (%.0fm per lap)", session.Name, session.DistancePerLap)

	return session, nil
}

// ActiveSession resolves the persisted active session pointer. A missing
// pointer or a pointer at a session that no longer exists or was ended both
// report ErrNoActiveSession.
func (sm *SessionManager) ActiveSession() (*Session, error) {
	id, err := sm.store.ActiveSessionID()

	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, ErrNoActiveSession
	}

	session, err := sm.store.FindSessionByID(id)

	if err == ErrSessionNotFound {
		return nil, ErrNoActiveSession
	} else if err != nil {
		return nil, err
	}

	if !session.IsActive {
		return nil, ErrNoActiveSession
	}

	return session, nil
}

// EndSession is terminal: it deactivates the session and clears the active
// session pointer. Further scans must not be routed to the session.
func (sm *SessionManager) EndSession(id string) (*Session, error) {
	session, err := sm.store.FindSessionByID(id)

	if err != nil {
		return nil, err
	}

	session.IsActive = false

	if err := sm.store.UpsertSession(session); err != nil {
		return nil, err
	}

	activeID, err := sm.store.ActiveSessionID()

	if err != nil {
		return nil, err
	}

	if activeID == session.ID {
		if err := sm.store.SetActiveSessionID(""); err != nil {
			return nil, err
		}
	}

	logrus.Infof("ended session: %s (%d laps recorded)", session.Name, session.TotalLaps())

	return session, nil
}

// UpdateSessionName renames a session in place.
func (sm *SessionManager) UpdateSessionName(id, name string) (*Session, error) {
	if name == "" {
		return nil, ErrEmptySessionName
	}

	session, err := sm.store.FindSessionByID(id)

	if err != nil {
		return nil, err
	}

	session.Name = name

	if err := sm.store.UpsertSession(session); err != nil {
		return nil, err
	}

	return session, nil
}
