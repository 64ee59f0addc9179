package laptracker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ScanCooldownMillis is the minimum interval between two accepted scans of
// the same student. It swallows the duplicate reads a camera decoder
// produces while the code is still in frame, and stops a student registering
// two laps on one physical pass.
const ScanCooldownMillis = 15000

var ErrUnknownCode = errors.New("laptracker: scanned code does not match any student")

// CooldownError is returned when a recognised student scans again inside the
// cooldown window. Remaining is in milliseconds, rounded up to a whole second
// for operator display.
type CooldownError struct {
	Student   *Student
	Remaining int64
}

func (c *CooldownError) Error() string {
	return fmt.Sprintf("laptracker: %s must wait %ds before the next scan", c.Student.Name, c.RemainingSeconds())
}

func (c *CooldownError) RemainingSeconds() int64 {
	return c.Remaining / 1000
}

// ScanResult is what an accepted scan reports back to the operator.
type ScanResult struct {
	Student   *Student `json:"student"`
	LapNumber int      `json:"lapNumber"`
	LapTime   *int64   `json:"lapTime"`
}

// ScanEngine turns decoded QR payloads into laps on the active session.
//
// The cooldown map (student ID to last accepted scan time) is in-memory only
// and scoped to one session; switching sessions resets it. All of the
// cooldown check, the lap append and the map update happen under one mutex,
// so two decoder callbacks racing for the same student cannot both succeed.
type ScanEngine struct {
	store       Store
	broadcaster Broadcaster

	mutex     sync.Mutex
	sessionID string
	lastScans map[string]int64
}

func NewScanEngine(store Store, broadcaster Broadcaster) *ScanEngine {
	return &ScanEngine{
		store:       store,
		broadcaster: broadcaster,
		lastScans:   make(map[string]int64),
	}
}

// RecordScan resolves code against the roster, enforces the cooldown and
// appends the resulting lap to session, persisting it. now is unix
// milliseconds. Rejections leave the session and the cooldown map untouched.
func (se *ScanEngine) RecordScan(session *Session, roster []*Student, code string, now int64) (*ScanResult, error) {
	if session == nil || !session.IsActive {
		return nil, ErrNoActiveSession
	}

	var student *Student

	for _, s := range roster {
		if s.QRCode == code {
			student = s
			break
		}
	}

	if student == nil {
		scanCounter.WithLabelValues("unknown").Inc()

		return nil, ErrUnknownCode
	}

	se.mutex.Lock()
	defer se.mutex.Unlock()

	if se.sessionID != session.ID {
		// new session, previous cooldowns no longer apply
		se.sessionID = session.ID
		se.lastScans = make(map[string]int64)
	}

	if lastScan, ok := se.lastScans[student.ID]; ok {
		if elapsed := now - lastScan; elapsed < ScanCooldownMillis {
			scanCounter.WithLabelValues("cooldown").Inc()

			return nil, &CooldownError{
				Student:   student,
				Remaining: ((ScanCooldownMillis - elapsed + 999) / 1000) * 1000,
			}
		}
	}

	studentLaps := session.LapsForStudent(student.ID)

	lap := &Lap{
		StudentID: student.ID,
		Timestamp: now,
		LapNumber: len(studentLaps) + 1,
	}

	if len(studentLaps) > 0 {
		// lap time is measured against this student's previous lap, not
		// the last lap recorded overall
		lapTime := now - studentLaps[len(studentLaps)-1].Timestamp
		lap.LapTime = &lapTime
	}

	session.Laps = append(session.Laps, lap)

	if err := se.store.UpsertSession(session); err != nil {
		return nil, err
	}

	se.lastScans[student.ID] = now
	scanCounter.WithLabelValues("accepted").Inc()

	if lap.LapTime != nil {
		lapDuration.Observe(float64(*lap.LapTime) / 1000)
	}

	result := &ScanResult{
		Student:   student,
		LapNumber: lap.LapNumber,
		LapTime:   lap.LapTime,
	}

	if err := se.broadcaster.Send(newLapMessage(session, result, now)); err != nil {
		logrus.WithError(err).Error("could not broadcast lap")
	}

	logrus.Debugf("recorded lap %d for %s", lap.LapNumber, student.Name)

	return result, nil
}
