package laptracker

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Student is one roster member. The QRCode payload is what the printed
// QR code encodes and what the camera decoder hands back on each pass.
type Student struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	QRCode  string    `json:"qrCode"`
	Created time.Time `json:"created"`
}

var (
	ErrStudentNotFound  = errors.New("laptracker: student not found")
	ErrDuplicateQRCode  = errors.New("laptracker: qr code is already assigned to a student")
	ErrEmptyStudentName = errors.New("laptracker: student name must not be empty")
)

type StudentManager struct {
	store Store
}

func NewStudentManager(store Store) *StudentManager {
	return &StudentManager{store: store}
}

func (sm *StudentManager) ListStudents() ([]*Student, error) {
	return sm.store.ListStudents()
}

// AddStudent creates a roster entry with a generated ID and QR payload.
// QR payloads are unique across the roster so that scan resolution is
// unambiguous.
func (sm *StudentManager) AddStudent(name string) (*Student, error) {
	if name == "" {
		return nil, ErrEmptyStudentName
	}

	id := uuid.New().String()

	student := &Student{
		ID:      id,
		Name:    name,
		QRCode:  "STUDENT-" + id,
		Created: time.Now(),
	}

	students, err := sm.store.ListStudents()

	if err != nil {
		return nil, err
	}

	for _, other := range students {
		if other.QRCode == student.QRCode {
			return nil, ErrDuplicateQRCode
		}
	}

	if err := sm.store.UpsertStudent(student); err != nil {
		return nil, err
	}

	logrus.Infof("added student: %s", student.Name)

	return student, nil
}

func (sm *StudentManager) FindStudentByID(id string) (*Student, error) {
	return sm.store.FindStudentByID(id)
}

// DeleteStudent removes the roster entry. Laps already recorded for the
// student are kept on their sessions and resolve as unknown from then on.
func (sm *StudentManager) DeleteStudent(id string) error {
	return sm.store.DeleteStudent(id)
}
