package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/doorbridge/core/history"
)

// WriteJSON writes the door events to w in JSON format.
func WriteJSON(w io.Writer, events []history.Event) error {
	enc := json.NewEncoder(w)
	return enc.Encode(events)
}

// WriteCSV writes the door events to w in CSV format.
func WriteCSV(w io.Writer, events []history.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "kind", "command", "status", "payload", "cycle_id", "duration_ms", "timestamp"}); err != nil {
		return err
	}
	for _, e := range events {
		rec := []string{
			e.ID,
			string(e.Kind),
			e.Command,
			e.Status,
			e.Payload,
			e.CycleID,
			strconv.FormatInt(e.DurationMS, 10),
			e.Timestamp.Format(time.RFC3339Nano),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
