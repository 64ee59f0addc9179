package laptracker

// Store is the narrow persistence interface the managers and the scan engine
// work through. The tool never touches the underlying storage directly.
//
// List operations return entities in creation order; roster order is what
// breaks leaderboard ties, so implementations must preserve it. An absent or
// malformed stored collection reads back as empty, never as an error.
type Store interface {
	// Students
	ListStudents() ([]*Student, error)
	UpsertStudent(student *Student) error
	FindStudentByID(id string) (*Student, error)
	DeleteStudent(id string) error

	// Sessions
	ListSessions() ([]*Session, error)
	UpsertSession(session *Session) error
	FindSessionByID(id string) (*Session, error)

	// Active session pointer, persisted for restart recovery.
	// An empty ID means no session is active.
	ActiveSessionID() (string, error)
	SetActiveSessionID(id string) error

	// Audit log
	AddAuditEntry(entry *AuditEntry) error
	ListAuditEntries() ([]*AuditEntry, error)
}
