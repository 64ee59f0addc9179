package laptracker

import (
	"reflect"
	"testing"
)

func lapTime(ms int64) *int64 {
	return &ms
}

func TestCalculateStats_IncludesStudentsWithoutLaps(t *testing.T) {
	session := testSession("session-1")
	session.Laps = []*Lap{
		{StudentID: "alice", Timestamp: baseTime, LapNumber: 1},
	}

	roster := []*Student{
		testStudent("alice", "Alice"),
		testStudent("bob", "Bob"),
	}

	stats := CalculateStats(session, roster)

	if len(stats) != 2 {
		t.Fatalf("expected stats for the whole roster, got %d entries", len(stats))
	}

	bob := stats[1]

	if bob.StudentName != "Bob" {
		t.Fatalf("expected Bob last, got %s", bob.StudentName)
	}

	if bob.TotalLaps != 0 || bob.TotalDistance != 0 {
		t.Errorf("expected zeroes for Bob, got %d laps / %v distance", bob.TotalLaps, bob.TotalDistance)
	}

	if bob.AverageLapTime != nil || bob.FastestLap != nil || bob.SlowestLap != nil {
		t.Errorf("expected nil lap time aggregates for Bob")
	}
}

func TestCalculateStats_Aggregates(t *testing.T) {
	session := testSession("session-1")
	session.Laps = []*Lap{
		{StudentID: "alice", Timestamp: baseTime, LapNumber: 1},
		{StudentID: "alice", Timestamp: baseTime + 30000, LapNumber: 2, LapTime: lapTime(30000)},
		{StudentID: "alice", Timestamp: baseTime + 50000, LapNumber: 3, LapTime: lapTime(20000)},
		{StudentID: "alice", Timestamp: baseTime + 90000, LapNumber: 4, LapTime: lapTime(40000)},
	}

	stats := CalculateStats(session, []*Student{testStudent("alice", "Alice")})

	alice := stats[0]

	if alice.TotalLaps != 4 {
		t.Errorf("expected 4 laps, got %d", alice.TotalLaps)
	}

	if alice.TotalDistance != 1600 {
		t.Errorf("expected 1600m, got %v", alice.TotalDistance)
	}

	if alice.AverageLapTime == nil || *alice.AverageLapTime != 30000 {
		t.Errorf("expected average 30000, got %v", alice.AverageLapTime)
	}

	if alice.FastestLap == nil || *alice.FastestLap != 20000 {
		t.Errorf("expected fastest 20000, got %v", alice.FastestLap)
	}

	if alice.SlowestLap == nil || *alice.SlowestLap != 40000 {
		t.Errorf("expected slowest 40000, got %v", alice.SlowestLap)
	}

	if !reflect.DeepEqual(alice.LapTimes, []int64{30000, 20000, 40000}) {
		t.Errorf("unexpected lap times: %v", alice.LapTimes)
	}
}

func TestCalculateStats_RankingAndTies(t *testing.T) {
	session := testSession("session-1")
	session.Laps = []*Lap{
		{StudentID: "carol", Timestamp: baseTime, LapNumber: 1},
		{StudentID: "alice", Timestamp: baseTime + 1000, LapNumber: 1},
		{StudentID: "bob", Timestamp: baseTime + 2000, LapNumber: 1},
		{StudentID: "carol", Timestamp: baseTime + 40000, LapNumber: 2, LapTime: lapTime(40000)},
	}

	roster := []*Student{
		testStudent("alice", "Alice"),
		testStudent("bob", "Bob"),
		testStudent("carol", "Carol"),
	}

	stats := CalculateStats(session, roster)

	// Carol leads on laps; Alice and Bob are tied and must keep roster order
	expectedOrder := []string{"Carol", "Alice", "Bob"}

	for i, name := range expectedOrder {
		if stats[i].StudentName != name {
			t.Errorf("position %d: expected %s, got %s", i+1, name, stats[i].StudentName)
		}
	}

	for i := 1; i < len(stats); i++ {
		if stats[i].TotalLaps > stats[i-1].TotalLaps {
			t.Errorf("ranking must be non-increasing in total laps")
		}
	}
}

func TestCalculateStats_EmptyRoster(t *testing.T) {
	session := testSession("session-1")
	session.Laps = []*Lap{
		{StudentID: "ghost", Timestamp: baseTime, LapNumber: 1},
	}

	stats := CalculateStats(session, nil)

	if len(stats) != 0 {
		t.Errorf("expected no stats for an empty roster, got %d", len(stats))
	}
}

func TestCalculateStats_Idempotent(t *testing.T) {
	session := testSession("session-1")
	session.Laps = []*Lap{
		{StudentID: "alice", Timestamp: baseTime, LapNumber: 1},
		{StudentID: "alice", Timestamp: baseTime + 25000, LapNumber: 2, LapTime: lapTime(25000)},
		{StudentID: "bob", Timestamp: baseTime + 30000, LapNumber: 1},
	}

	roster := []*Student{testStudent("alice", "Alice"), testStudent("bob", "Bob")}

	first := CalculateStats(session, roster)
	second := CalculateStats(session, roster)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical output on repeated calls")
	}

	if len(session.Laps) != 3 {
		t.Errorf("stats computation must not mutate the session")
	}
}

func TestFormatLapTime(t *testing.T) {
	formatTests := []struct {
		ms       int64
		expected string
	}{
		{75034, "1:15.03"},
		{5000, "0:05.00"},
		{125990, "2:05.99"},
		{59999, "0:59.99"},
		{600000, "10:00.00"},
	}

	for _, test := range formatTests {
		if got := FormatLapTime(test.ms); got != test.expected {
			t.Errorf("FormatLapTime(%d): expected %q, got %q", test.ms, test.expected, got)
		}
	}
}

func TestFormatClock(t *testing.T) {
	formatTests := []struct {
		ms       int64
		expected string
	}{
		{75034, "1:15"},
		{5000, "0:05"},
		{3600000, "60:00"},
	}

	for _, test := range formatTests {
		if got := FormatClock(test.ms); got != test.expected {
			t.Errorf("FormatClock(%d): expected %q, got %q", test.ms, test.expected, got)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	formatTests := []struct {
		meters   float64
		expected string
	}{
		{800, "800 m"},
		{400.5, "400.5 m"},
		{1000, "1.00 km"},
		{12345.6, "12.35 km"},
		{0, "0 m"},
	}

	for _, test := range formatTests {
		if got := FormatDistance(test.meters); got != test.expected {
			t.Errorf("FormatDistance(%v): expected %q, got %q", test.meters, test.expected, got)
		}
	}
}
