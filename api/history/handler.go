package history

import (
	"net/http"
	"time"

	"github.com/kilianp07/doorbridge/core/door"
	corehistory "github.com/kilianp07/doorbridge/core/history"
	"github.com/kilianp07/doorbridge/pkg/export"
)

// NewEventHandler returns an HTTP handler exposing door events via
// GET /api/door/events. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty. Supported query parameters:
// start and end (RFC3339), kind, command, and format (json or csv).
func NewEventHandler(store corehistory.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := corehistory.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		if s := r.URL.Query().Get("kind"); s != "" {
			if k, ok := kindFromString(s); ok {
				q.Kind = k
			}
		}
		if s := r.URL.Query().Get("command"); s != "" {
			if cmd, ok := door.ParseCommand(s); ok {
				q.Command = cmd.String()
			}
		}
		events, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			if err := export.WriteCSV(w, events); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, events); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func kindFromString(s string) (corehistory.Kind, bool) {
	switch corehistory.Kind(s) {
	case corehistory.KindCommand, corehistory.KindStatus, corehistory.KindIgnored, corehistory.KindCycle:
		return corehistory.Kind(s), true
	default:
		return "", false
	}
}
