package laptracker

import (
	"encoding/csv"
	"io"
	"strconv"
)

var resultsCSVHeader = []string{
	"Posición",
	"Alumno",
	"Vueltas",
	"Distancia Total",
	"Tiempo Medio",
	"Mejor Vuelta",
	"Peor Vuelta",
}

// WriteResultsCSV writes the ranked leaderboard as CSV, one row per student
// in ranking order. Missing lap times render as "-", matching the results
// table.
func WriteResultsCSV(w io.Writer, stats []*StudentStats) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(resultsCSVHeader); err != nil {
		return err
	}

	for i, stat := range stats {
		row := []string{
			strconv.Itoa(i + 1),
			stat.StudentName,
			strconv.Itoa(stat.TotalLaps),
			FormatDistance(stat.TotalDistance),
			formatOptionalLapTime(averageAsMillis(stat.AverageLapTime)),
			formatOptionalLapTime(stat.FastestLap),
			formatOptionalLapTime(stat.SlowestLap),
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

func formatOptionalLapTime(ms *int64) string {
	if ms == nil {
		return "-"
	}

	return FormatLapTime(*ms)
}

func averageAsMillis(average *float64) *int64 {
	if average == nil {
		return nil
	}

	ms := int64(*average)

	return &ms
}
