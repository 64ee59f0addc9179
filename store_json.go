package laptracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	maxAuditEntries = 1000

	studentsFile      = "students.json"
	sessionsFile      = "sessions.json"
	activeSessionFile = "active_session.json"
	auditFile         = "audit.json"
)

// JSONStore persists each collection as a single JSON file, mirroring the
// key-per-collection layout of the browser original. Collection files are
// whole-file read-modify-write under one lock.
type JSONStore struct {
	base string

	mutex sync.RWMutex
}

func NewJSONStore(dir string) Store {
	return &JSONStore{base: dir}
}

func (js *JSONStore) encodeFile(filename string, data interface{}) error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	filename = filepath.Join(js.base, filename)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	f, err := os.Create(filename)

	if err != nil {
		return errors.Wrapf(err, "couldn't create %s", filename)
	}

	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(data)
}

// decodeFile loads filename into out. A missing or malformed file leaves out
// untouched so callers fall back to an empty collection.
func (js *JSONStore) decodeFile(filename string, out interface{}) error {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	filename = filepath.Join(js.base, filename)

	f, err := os.Open(filename)

	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "couldn't open %s", filename)
	}

	defer f.Close()

	if err := json.NewDecoder(f).Decode(out); err != nil {
		logrus.WithError(err).Warnf("could not decode %s, treating as empty", filename)
	}

	return nil
}

func (js *JSONStore) ListStudents() ([]*Student, error) {
	var students []*Student

	if err := js.decodeFile(studentsFile, &students); err != nil {
		return nil, err
	}

	return students, nil
}

func (js *JSONStore) UpsertStudent(student *Student) error {
	students, err := js.ListStudents()

	if err != nil {
		return err
	}

	updated := false

	for i, other := range students {
		if other.ID == student.ID {
			students[i] = student
			updated = true
			break
		}
	}

	if !updated {
		students = append(students, student)
	}

	return js.encodeFile(studentsFile, students)
}

func (js *JSONStore) FindStudentByID(id string) (*Student, error) {
	students, err := js.ListStudents()

	if err != nil {
		return nil, err
	}

	for _, student := range students {
		if student.ID == id {
			return student, nil
		}
	}

	return nil, ErrStudentNotFound
}

func (js *JSONStore) DeleteStudent(id string) error {
	students, err := js.ListStudents()

	if err != nil {
		return err
	}

	remaining := make([]*Student, 0, len(students))

	for _, student := range students {
		if student.ID != id {
			remaining = append(remaining, student)
		}
	}

	if len(remaining) == len(students) {
		return ErrStudentNotFound
	}

	return js.encodeFile(studentsFile, remaining)
}

func (js *JSONStore) ListSessions() ([]*Session, error) {
	var sessions []*Session

	if err := js.decodeFile(sessionsFile, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (js *JSONStore) UpsertSession(session *Session) error {
	sessions, err := js.ListSessions()

	if err != nil {
		return err
	}

	updated := false

	for i, other := range sessions {
		if other.ID == session.ID {
			sessions[i] = session
			updated = true
			break
		}
	}

	if !updated {
		sessions = append(sessions, session)
	}

	return js.encodeFile(sessionsFile, sessions)
}

func (js *JSONStore) FindSessionByID(id string) (*Session, error) {
	sessions, err := js.ListSessions()

	if err != nil {
		return nil, err
	}

	for _, session := range sessions {
		if session.ID == id {
			return session, nil
		}
	}

	return nil, ErrSessionNotFound
}

func (js *JSONStore) ActiveSessionID() (string, error) {
	var id string

	if err := js.decodeFile(activeSessionFile, &id); err != nil {
		return "", err
	}

	return id, nil
}

func (js *JSONStore) SetActiveSessionID(id string) error {
	if id == "" {
		js.mutex.Lock()
		defer js.mutex.Unlock()

		err := os.Remove(filepath.Join(js.base, activeSessionFile))

		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	return js.encodeFile(activeSessionFile, id)
}

func (js *JSONStore) AddAuditEntry(entry *AuditEntry) error {
	entries, err := js.ListAuditEntries()

	if err != nil {
		return err
	}

	entries = append(entries, entry)

	if len(entries) > maxAuditEntries {
		entries = entries[len(entries)-maxAuditEntries:]
	}

	return js.encodeFile(auditFile, entries)
}

func (js *JSONStore) ListAuditEntries() ([]*AuditEntry, error) {
	var entries []*AuditEntry

	if err := js.decodeFile(auditFile, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}
