package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"calstore/src-server/calendar"
	"calstore/src-server/model"
	"calstore/src-server/store"
	"calstore/src-server/utils"
)

// The boundary the transport talks to: decodes operation payloads, runs the
// matching manager operation, and maps the outcome onto the uniform
// {success, ...} contract with a safe message for every failure.
type Service struct {
	as *utils.AppState
}

func New(as *utils.AppState) *Service {
	return &Service{as: as}
}

type errorRespBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type listRespBody struct {
	Success     bool          `json:"success"`
	Events      []model.Event `json:"events"`
	LastUpdated string        `json:"lastUpdated"`
}

type eventRespBody struct {
	Success bool        `json:"success"`
	Event   model.Event `json:"event"`
}

type groupDeleteRespBody struct {
	Success      bool `json:"success"`
	RemovedCount int  `json:"removedCount"`
}

type bulkRespBody struct {
	Success    bool     `json:"success"`
	AddedCount int      `json:"addedCount"`
	IDs        []string `json:"ids"`
}

type seriesRespBody struct {
	Success        bool     `json:"success"`
	AddedCount     int      `json:"addedCount"`
	IDs            []string `json:"ids"`
	RecurringGroup string   `json:"recurringGroup"`
}

type healthRespBody struct {
	OK        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
}

func fail(err error) (int, any) {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		return http.StatusNotFound, errorRespBody{Error: "Event not found"}
	case errors.Is(err, calendar.ErrInvalidInput):
		return http.StatusBadRequest, errorRespBody{Error: "Invalid request"}
	case errors.Is(err, calendar.ErrConflict):
		return http.StatusConflict, errorRespBody{Error: "Conflicting update"}
	case errors.Is(err, store.ErrUnavailable):
		slog.Error("storage failure", "error", err)
		return http.StatusServiceUnavailable, errorRespBody{Error: "Storage unavailable"}
	default:
		slog.Error("unexpected failure", "error", err)
		return http.StatusInternalServerError, errorRespBody{Error: "Internal error"}
	}
}

func (s *Service) ListEvents() (int, any) {
	collection, err := s.as.Manager.ListAll()
	if err != nil {
		return fail(err)
	}
	events := collection.Events
	if events == nil {
		events = []model.Event{}
	}
	return http.StatusOK, listRespBody{
		Success:     true,
		Events:      events,
		LastUpdated: collection.LastUpdated,
	}
}

func (s *Service) CreateEvent(raw json.RawMessage) (int, any) {
	var event model.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return fail(calendar.ErrInvalidInput)
	}
	created, err := s.as.Manager.Insert(event)
	if err != nil {
		return fail(err)
	}
	return http.StatusOK, eventRespBody{Success: true, Event: created}
}

func (s *Service) UpdateEvent(id string, raw json.RawMessage) (int, any) {
	partial, err := decodePartial(raw)
	if err != nil {
		return fail(calendar.ErrInvalidInput)
	}
	merged, err := s.as.Manager.Update(id, partial)
	if err != nil {
		return fail(err)
	}
	return http.StatusOK, eventRespBody{Success: true, Event: merged}
}

func (s *Service) DeleteEvent(id string) (int, any) {
	removed, err := s.as.Manager.DeleteByID(id)
	if err != nil {
		return fail(err)
	}
	return http.StatusOK, eventRespBody{Success: true, Event: removed}
}

func (s *Service) DeleteEventGroup(group string) (int, any) {
	removed, err := s.as.Manager.DeleteByGroup(group)
	if err != nil {
		return fail(err)
	}
	return http.StatusOK, groupDeleteRespBody{Success: true, RemovedCount: removed}
}

func (s *Service) BulkCreateEvents(raw json.RawMessage) (int, any) {
	var events []model.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return fail(calendar.ErrInvalidInput)
	}
	added, ids, err := s.as.Manager.BulkInsert(events)
	if err != nil {
		return fail(err)
	}
	return http.StatusOK, bulkRespBody{Success: true, AddedCount: added, IDs: ids}
}

func (s *Service) CreateSeries(raw json.RawMessage) (int, any) {
	var reqBody struct {
		Event json.RawMessage `json:"event"`
		RRule string          `json:"rrule"`
	}
	if err := json.Unmarshal(raw, &reqBody); err != nil || len(reqBody.Event) == 0 {
		return fail(calendar.ErrInvalidInput)
	}
	var base model.Event
	if err := json.Unmarshal(reqBody.Event, &base); err != nil {
		return fail(calendar.ErrInvalidInput)
	}
	members, group, err := calendar.ExpandSeries(base, reqBody.RRule)
	if err != nil {
		return fail(err)
	}
	added, ids, err := s.as.Manager.BulkInsert(members)
	if err != nil {
		return fail(err)
	}
	return http.StatusOK, seriesRespBody{
		Success:        true,
		AddedCount:     added,
		IDs:            ids,
		RecurringGroup: group,
	}
}

// Turn "lunch with joe tomorrow at noon" into an event: the when parser pulls
// the date out, the rest becomes the title.
func (s *Service) QuickAdd(raw json.RawMessage) (int, any) {
	var reqBody struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &reqBody); err != nil || strings.TrimSpace(reqBody.Text) == "" {
		return fail(calendar.ErrInvalidInput)
	}
	result, err := s.as.When.Parse(reqBody.Text, time.Now())
	if err != nil || result == nil {
		return fail(calendar.ErrInvalidInput)
	}

	title := utils.CleanupString(strings.Replace(reqBody.Text, result.Text, "", 1))
	if title == "" {
		title = utils.CleanupString(reqBody.Text)
	}
	created, err := s.as.Manager.Insert(model.Event{
		Title: title,
		Date:  result.Time.Format("2006-01-02"),
		Type:  "note",
	})
	if err != nil {
		return fail(err)
	}
	return http.StatusOK, eventRespBody{Success: true, Event: created}
}

func (s *Service) HealthCheck() (int, any) {
	return http.StatusOK, healthRespBody{
		OK:        true,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func decodePartial(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	partial := make(map[string]any)
	if err := dec.Decode(&partial); err != nil {
		return nil, err
	}
	return partial, nil
}
