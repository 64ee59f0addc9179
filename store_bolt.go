package laptracker

import (
	"encoding/json"
	"sort"

	"github.com/etcd-io/bbolt"
	"github.com/sirupsen/logrus"
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(db *bbolt.DB) Store {
	return &BoltStore{db: db}
}

var (
	studentsBucketName = []byte("students")
	sessionsBucketName = []byte("sessions")
	metaBucketName     = []byte("meta")
	auditBucketName    = []byte("audit")

	activeSessionKey = []byte("activeSession")
	auditEntriesKey  = []byte("auditEntries")
)

func (bs *BoltStore) bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	if !tx.Writable() {
		bkt := tx.Bucket(name)

		if bkt == nil {
			return nil, bbolt.ErrBucketNotFound
		}

		return bkt, nil
	}

	return tx.CreateBucketIfNotExists(name)
}

func (bs *BoltStore) encode(data interface{}) ([]byte, error) {
	return json.Marshal(data)
}

func (bs *BoltStore) decode(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

func (bs *BoltStore) UpsertStudent(student *Student) error {
	return bs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, studentsBucketName)

		if err != nil {
			return err
		}

		encoded, err := bs.encode(student)

		if err != nil {
			return err
		}

		return bkt.Put([]byte(student.ID), encoded)
	})
}

func (bs *BoltStore) ListStudents() ([]*Student, error) {
	var students []*Student

	err := bs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, studentsBucketName)

		if err == bbolt.ErrBucketNotFound {
			return nil
		} else if err != nil {
			return err
		}

		return bkt.ForEach(func(k, v []byte) error {
			var student *Student

			if err := bs.decode(v, &student); err != nil {
				logrus.WithError(err).Warnf("could not decode student %s, skipping", string(k))
				return nil
			}

			students = append(students, student)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	// bolt iterates in key order; roster order is creation order
	sort.Slice(students, func(i, j int) bool {
		if students[i].Created.Equal(students[j].Created) {
			return students[i].ID < students[j].ID
		}

		return students[i].Created.Before(students[j].Created)
	})

	return students, nil
}

func (bs *BoltStore) FindStudentByID(id string) (*Student, error) {
	var student *Student

	err := bs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, studentsBucketName)

		if err == bbolt.ErrBucketNotFound {
			return ErrStudentNotFound
		} else if err != nil {
			return err
		}

		data := bkt.Get([]byte(id))

		if data == nil {
			return ErrStudentNotFound
		}

		return bs.decode(data, &student)
	})

	if err != nil {
		return nil, err
	}

	return student, nil
}

func (bs *BoltStore) DeleteStudent(id string) error {
	return bs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, studentsBucketName)

		if err != nil {
			return err
		}

		if bkt.Get([]byte(id)) == nil {
			return ErrStudentNotFound
		}

		return bkt.Delete([]byte(id))
	})
}

func (bs *BoltStore) UpsertSession(session *Session) error {
	return bs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, sessionsBucketName)

		if err != nil {
			return err
		}

		encoded, err := bs.encode(session)

		if err != nil {
			return err
		}

		return bkt.Put([]byte(session.ID), encoded)
	})
}

func (bs *BoltStore) ListSessions() ([]*Session, error) {
	var sessions []*Session

	err := bs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, sessionsBucketName)

		if err == bbolt.ErrBucketNotFound {
			return nil
		} else if err != nil {
			return err
		}

		return bkt.ForEach(func(k, v []byte) error {
			var session *Session

			if err := bs.decode(v, &session); err != nil {
				logrus.WithError(err).Warnf("could not decode session %s, skipping", string(k))
				return nil
			}

			sessions = append(sessions, session)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Created.Equal(sessions[j].Created) {
			return sessions[i].ID < sessions[j].ID
		}

		return sessions[i].Created.Before(sessions[j].Created)
	})

	return sessions, nil
}

func (bs *BoltStore) FindSessionByID(id string) (*Session, error) {
	var session *Session

	err := bs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, sessionsBucketName)

		if err == bbolt.ErrBucketNotFound {
			return ErrSessionNotFound
		} else if err != nil {
			return err
		}

		data := bkt.Get([]byte(id))

		if data == nil {
			return ErrSessionNotFound
		}

		return bs.decode(data, &session)
	})

	if err != nil {
		return nil, err
	}

	return session, nil
}

func (bs *BoltStore) ActiveSessionID() (string, error) {
	var id string

	err := bs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, metaBucketName)

		if err == bbolt.ErrBucketNotFound {
			return nil
		} else if err != nil {
			return err
		}

		data := bkt.Get(activeSessionKey)

		if data == nil {
			return nil
		}

		return bs.decode(data, &id)
	})

	if err != nil {
		return "", err
	}

	return id, nil
}

func (bs *BoltStore) SetActiveSessionID(id string) error {
	return bs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, metaBucketName)

		if err != nil {
			return err
		}

		if id == "" {
			return bkt.Delete(activeSessionKey)
		}

		encoded, err := bs.encode(id)

		if err != nil {
			return err
		}

		return bkt.Put(activeSessionKey, encoded)
	})
}

func (bs *BoltStore) AddAuditEntry(entry *AuditEntry) error {
	entries, err := bs.ListAuditEntries()

	if err != nil {
		return err
	}

	entries = append(entries, entry)

	if len(entries) > maxAuditEntries {
		entries = entries[len(entries)-maxAuditEntries:]
	}

	return bs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, auditBucketName)

		if err != nil {
			return err
		}

		encoded, err := bs.encode(entries)

		if err != nil {
			return err
		}

		return bkt.Put(auditEntriesKey, encoded)
	})
}

func (bs *BoltStore) ListAuditEntries() ([]*AuditEntry, error) {
	var entries []*AuditEntry

	err := bs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bs.bucket(tx, auditBucketName)

		if err == bbolt.ErrBucketNotFound {
			return nil
		} else if err != nil {
			return err
		}

		data := bkt.Get(auditEntriesKey)

		if data == nil {
			return nil
		}

		if err := bs.decode(data, &entries); err != nil {
			logrus.WithError(err).Warn("could not decode audit entries, starting fresh")
			entries = nil
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entries, nil
}
