package laptracker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etcd-io/bbolt"
)

func newTestBoltStore(t *testing.T) Store {
	t.Helper()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "lap-tracker.db"), 0644, nil)

	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewBoltStore(db)
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	return map[string]Store{
		"json":   NewJSONStore(t.TempDir()),
		"boltdb": newTestBoltStore(t),
	}
}

func TestStore_Students(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			students, err := store.ListStudents()

			if err != nil {
				t.Fatal(err)
			}

			if len(students) != 0 {
				t.Fatalf("expected empty roster, got %d students", len(students))
			}

			created := time.Date(2024, 10, 21, 9, 0, 0, 0, time.UTC)

			// keys deliberately in reverse byte order to prove the list
			// comes back in creation order
			for i, id := range []string{"charlie", "bravo", "alpha"} {
				err := store.UpsertStudent(&Student{
					ID:      id,
					Name:    id,
					QRCode:  "STUDENT-" + id,
					Created: created.Add(time.Duration(i) * time.Minute),
				})

				if err != nil {
					t.Fatal(err)
				}
			}

			students, err = store.ListStudents()

			if err != nil {
				t.Fatal(err)
			}

			if len(students) != 3 {
				t.Fatalf("expected 3 students, got %d", len(students))
			}

			for i, expected := range []string{"charlie", "bravo", "alpha"} {
				if students[i].ID != expected {
					t.Errorf("position %d: expected %s, got %s", i, expected, students[i].ID)
				}
			}

			student, err := store.FindStudentByID("bravo")

			if err != nil {
				t.Fatal(err)
			}

			student.Name = "Bravo Renamed"

			if err := store.UpsertStudent(student); err != nil {
				t.Fatal(err)
			}

			student, err = store.FindStudentByID("bravo")

			if err != nil {
				t.Fatal(err)
			}

			if student.Name != "Bravo Renamed" {
				t.Errorf("upsert did not update the student, name is %q", student.Name)
			}

			if err := store.DeleteStudent("bravo"); err != nil {
				t.Fatal(err)
			}

			if _, err := store.FindStudentByID("bravo"); err != ErrStudentNotFound {
				t.Errorf("expected ErrStudentNotFound after delete, got %v", err)
			}

			if err := store.DeleteStudent("bravo"); err != ErrStudentNotFound {
				t.Errorf("expected ErrStudentNotFound deleting twice, got %v", err)
			}

			students, err = store.ListStudents()

			if err != nil {
				t.Fatal(err)
			}

			if len(students) != 2 {
				t.Errorf("expected 2 students after delete, got %d", len(students))
			}
		})
	}
}

func TestStore_Sessions(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			session := &Session{
				ID:             "session-1",
				Name:           "Circuito Pista",
				DistancePerLap: 400,
				StartTime:      baseTime,
				IsActive:       true,
				Created:        time.Now(),
			}

			if err := store.UpsertSession(session); err != nil {
				t.Fatal(err)
			}

			session.Laps = append(session.Laps, &Lap{
				StudentID: "alice",
				Timestamp: baseTime,
				LapNumber: 1,
			})

			if err := store.UpsertSession(session); err != nil {
				t.Fatal(err)
			}

			loaded, err := store.FindSessionByID("session-1")

			if err != nil {
				t.Fatal(err)
			}

			if len(loaded.Laps) != 1 || loaded.Laps[0].StudentID != "alice" {
				t.Errorf("laps did not round trip: %+v", loaded.Laps)
			}

			if loaded.Laps[0].LapTime != nil {
				t.Errorf("nil lap time did not round trip")
			}

			if _, err := store.FindSessionByID("missing"); err != ErrSessionNotFound {
				t.Errorf("expected ErrSessionNotFound, got %v", err)
			}

			sessions, err := store.ListSessions()

			if err != nil {
				t.Fatal(err)
			}

			if len(sessions) != 1 {
				t.Errorf("expected 1 session, got %d", len(sessions))
			}
		})
	}
}

func TestStore_ActiveSessionPointer(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.ActiveSessionID()

			if err != nil {
				t.Fatal(err)
			}

			if id != "" {
				t.Fatalf("expected no active session initially, got %q", id)
			}

			if err := store.SetActiveSessionID("session-1"); err != nil {
				t.Fatal(err)
			}

			id, err = store.ActiveSessionID()

			if err != nil {
				t.Fatal(err)
			}

			if id != "session-1" {
				t.Errorf("expected session-1, got %q", id)
			}

			if err := store.SetActiveSessionID(""); err != nil {
				t.Fatal(err)
			}

			id, err = store.ActiveSessionID()

			if err != nil {
				t.Fatal(err)
			}

			if id != "" {
				t.Errorf("expected cleared pointer, got %q", id)
			}

			// clearing an already clear pointer is fine
			if err := store.SetActiveSessionID(""); err != nil {
				t.Errorf("clearing twice should not fail: %s", err)
			}
		})
	}
}

func TestStore_AuditEntries(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := store.ListAuditEntries()

			if err != nil {
				t.Fatal(err)
			}

			if len(entries) != 0 {
				t.Fatalf("expected no audit entries initially, got %d", len(entries))
			}

			for i := 0; i < 3; i++ {
				err := store.AddAuditEntry(&AuditEntry{
					Method: "POST",
					URL:    "/api/students",
					Time:   time.Now(),
				})

				if err != nil {
					t.Fatal(err)
				}
			}

			entries, err = store.ListAuditEntries()

			if err != nil {
				t.Fatal(err)
			}

			if len(entries) != 3 {
				t.Errorf("expected 3 audit entries, got %d", len(entries))
			}
		})
	}
}

func TestJSONStore_MalformedFileFallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONStore(dir)

	if err := os.WriteFile(filepath.Join(dir, studentsFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	students, err := store.ListStudents()

	if err != nil {
		t.Fatalf("malformed data must read back as empty, got error: %s", err)
	}

	if len(students) != 0 {
		t.Errorf("expected empty roster from malformed file, got %d students", len(students))
	}

	// and the store stays usable
	if err := store.UpsertStudent(testStudent("alice", "Alice")); err != nil {
		t.Fatal(err)
	}

	students, err = store.ListStudents()

	if err != nil {
		t.Fatal(err)
	}

	if len(students) != 1 {
		t.Errorf("expected 1 student after recovery, got %d", len(students))
	}
}
