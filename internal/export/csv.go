// Package export serializes anomaly events for downstream tooling.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/vadiminshakov/volscan/internal/domain"
)

// csvHeader is the fixed field order expected by downstream consumers.
// Changing order or formatting breaks compatibility.
var csvHeader = []string{"timestamp", "symbol", "timeframe", "direction", "severity", "z_score", "open_price", "close_price"}

// WriteCSV writes events as delimited rows. Timestamps are rendered in loc
// (UTC when nil); z-scores keep exactly two decimals.
func WriteCSV(w io.Writer, events []domain.VolumeEvent, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, ev := range events {
		record := []string{
			ev.Time.In(loc).Format(time.RFC3339),
			ev.Symbol,
			ev.Timeframe.String(),
			string(ev.Direction),
			string(ev.Severity),
			strconv.FormatFloat(ev.ZScore, 'f', 2, 64),
			ev.OpenPrice.String(),
			ev.ClosePrice.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
