package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solaius/sds-registry/pkg/tenancy"
)

// ListEventsHandler handles GET /events.
// Query params: entityType, entityId, actorId, action, since, until,
// pageSize, pageToken. The tenant comes from the request context.
func ListEventsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{
			TenantID:   tenancy.TenantIDFromContext(r.Context()),
			EntityType: r.URL.Query().Get("entityType"),
			EntityID:   r.URL.Query().Get("entityId"),
			ActorID:    r.URL.Query().Get("actorId"),
			Action:     r.URL.Query().Get("action"),
		}
		if v := r.URL.Query().Get("since"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid since: %v", err))
				return
			}
			filter.Since = &t
		}
		if v := r.URL.Query().Get("until"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid until: %v", err))
				return
			}
			filter.Until = &t
		}

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.List(filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit events: %v", err))
			return
		}

		events := make([]Event, len(records))
		for i, rec := range records {
			events[i] = recordToEvent(rec)
		}

		writeJSON(w, http.StatusOK, EventList{
			Events:        events,
			NextPageToken: nextToken,
			TotalSize:     total,
		})
	}
}

// NewRouter creates a chi router with audit read endpoints.
func NewRouter(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/events", ListEventsHandler(store))
	return r
}

// recordToEvent converts an audit event record to the API type.
func recordToEvent(rec EventRecord) Event {
	return Event{
		ID:          rec.ID,
		TenantID:    rec.TenantID,
		ActorID:     rec.ActorID,
		EntityType:  rec.EntityType,
		EntityID:    rec.EntityID,
		Action:      rec.Action,
		Description: rec.Description,
		OldValue:    map[string]any(rec.OldValue),
		NewValue:    map[string]any(rec.NewValue),
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
