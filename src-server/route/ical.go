package route

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"calstore/src-server/calendar"
	"calstore/src-server/utils"

	ics "github.com/arran4/golang-ical"
)

// Serve the whole collection as an iCalendar feed. Events whose date field
// doesn't parse are skipped rather than failing the export.
func Ical(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /api/events/ical", func(w http.ResponseWriter, r *http.Request) {
		collection, err := as.Manager.ListAll()
		if err != nil {
			http.Error(w, "Can't load events", http.StatusInternalServerError)
			return
		}

		cal := ics.NewCalendar()
		cal.SetMethod(ics.MethodPublish)
		cal.SetProductId("-//calstore//EN")
		for _, event := range collection.Events {
			start, layout, ok := calendar.ParseEventDate(event.Date)
			if !ok {
				continue
			}
			icalEvent := cal.AddEvent(event.ID)
			icalEvent.SetSummary(event.Title)
			if event.Description != "" {
				icalEvent.SetDescription(event.Description)
			}
			icalEvent.SetDtStampTime(time.Now().UTC())
			if layout == "2006-01-02" {
				icalEvent.SetAllDayStartAt(start)
				icalEvent.SetAllDayEndAt(start.AddDate(0, 0, 1))
			} else {
				icalEvent.SetStartAt(start)
				icalEvent.SetEndAt(start.Add(time.Hour))
			}
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, cal.Serialize()); err != nil {
			slog.Warn("can't write to response", "where", "route/ical.go", "error", err)
		}
	})
}
