package laptracker

import (
	"fmt"
	"sort"
	"strconv"
)

// StudentStats is the derived per-student summary of one session. Lap time
// fields are nil when the student has no measured lap times (zero laps, or
// only the first lap which has no reference point).
type StudentStats struct {
	StudentID      string   `json:"studentId"`
	StudentName    string   `json:"studentName"`
	TotalLaps      int      `json:"totalLaps"`
	TotalDistance  float64  `json:"totalDistance"`
	AverageLapTime *float64 `json:"averageLapTime"`
	FastestLap     *int64   `json:"fastestLap"`
	SlowestLap     *int64   `json:"slowestLap"`
	LapTimes       []int64  `json:"lapTimes"`
}

// CalculateStats builds the ranked leaderboard for a session. Every roster
// member appears, including those with zero laps. The sort is stable on
// total laps descending, so students tied on laps keep roster order. The
// computation is pure; neither argument is modified.
func CalculateStats(session *Session, roster []*Student) []*StudentStats {
	stats := make([]*StudentStats, 0, len(roster))

	for _, student := range roster {
		studentLaps := session.LapsForStudent(student.ID)

		var lapTimes []int64

		for _, lap := range studentLaps {
			if lap.LapTime != nil {
				lapTimes = append(lapTimes, *lap.LapTime)
			}
		}

		stat := &StudentStats{
			StudentID:     student.ID,
			StudentName:   student.Name,
			TotalLaps:     len(studentLaps),
			TotalDistance: float64(len(studentLaps)) * session.DistancePerLap,
			LapTimes:      lapTimes,
		}

		if len(lapTimes) > 0 {
			var total, fastest, slowest int64

			fastest = lapTimes[0]
			slowest = lapTimes[0]

			for _, lapTime := range lapTimes {
				total += lapTime

				if lapTime < fastest {
					fastest = lapTime
				}

				if lapTime > slowest {
					slowest = lapTime
				}
			}

			average := float64(total) / float64(len(lapTimes))

			stat.AverageLapTime = &average
			stat.FastestLap = &fastest
			stat.SlowestLap = &slowest
		}

		stats = append(stats, stat)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalLaps > stats[j].TotalLaps
	})

	return stats
}

// FormatLapTime renders milliseconds as M:SS.cc for results displays,
// e.g. 75034 -> "1:15.03".
func FormatLapTime(ms int64) string {
	seconds := ms / 1000

	return fmt.Sprintf("%d:%02d.%02d", seconds/60, seconds%60, (ms%1000)/10)
}

// FormatClock renders milliseconds as M:SS, the coarser form used on the
// live scanner view.
func FormatClock(ms int64) string {
	seconds := ms / 1000

	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatDistance renders metres plainly below a kilometre and as km with two
// decimals from there up.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.2f km", meters/1000)
	}

	return strconv.FormatFloat(meters, 'f', -1, 64) + " m"
}
