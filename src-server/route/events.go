package route

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"calstore/src-server/service"
	"calstore/src-server/utils"
)

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("can't write response", "where", "route/events.go", "error", err)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Can't read request body"))
		return nil, false
	}
	return body, true
}

func Events(muxer *http.ServeMux, as *utils.AppState) {
	svc := service.New(as)

	// the full collection
	muxer.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		status, body := svc.ListEvents()
		respond(w, status, body)
	})

	// create one event; id is assigned when the body doesn't bring one
	muxer.HandleFunc("POST /api/events", func(w http.ResponseWriter, r *http.Request) {
		reqBody, ok := readBody(w, r)
		if !ok {
			return
		}
		status, body := svc.CreateEvent(reqBody)
		respond(w, status, body)
	})

	// merge partial fields onto an existing event
	muxer.HandleFunc("PUT /api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide an event ID"))
			return
		}
		reqBody, ok := readBody(w, r)
		if !ok {
			return
		}
		status, body := svc.UpdateEvent(id, reqBody)
		respond(w, status, body)
	})

	muxer.HandleFunc("DELETE /api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide an event ID"))
			return
		}
		status, body := svc.DeleteEvent(id)
		respond(w, status, body)
	})

	// drop a whole recurring series; matching nothing still succeeds
	muxer.HandleFunc("DELETE /api/events/group/{groupId}", func(w http.ResponseWriter, r *http.Request) {
		status, body := svc.DeleteEventGroup(r.PathValue("groupId"))
		respond(w, status, body)
	})

	muxer.HandleFunc("POST /api/events/bulk", func(w http.ResponseWriter, r *http.Request) {
		reqBody, ok := readBody(w, r)
		if !ok {
			return
		}
		status, body := svc.BulkCreateEvents(reqBody)
		respond(w, status, body)
	})

	// expand an rrule into a recurring series sharing one group tag
	muxer.HandleFunc("POST /api/events/series", func(w http.ResponseWriter, r *http.Request) {
		reqBody, ok := readBody(w, r)
		if !ok {
			return
		}
		status, body := svc.CreateSeries(reqBody)
		respond(w, status, body)
	})

	// natural-language create, e.g. {"text":"dentist next friday"}
	muxer.HandleFunc("POST /api/events/quick", func(w http.ResponseWriter, r *http.Request) {
		reqBody, ok := readBody(w, r)
		if !ok {
			return
		}
		status, body := svc.QuickAdd(reqBody)
		respond(w, status, body)
	})

	muxer.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status, body := svc.HealthCheck()
		respond(w, status, body)
	})
}
