package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Fields the store understands; everything else a client sends rides along in
// Extra untouched.
type Event struct {
	ID             string
	Title          string
	Date           string
	Type           string
	Description    string
	RecurringGroup string
	Extra          map[string]any
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["id"] = e.ID
	out["title"] = e.Title
	out["date"] = e.Date
	out["type"] = e.Type
	out["description"] = e.Description
	if e.RecurringGroup != "" {
		out["recurringGroup"] = e.RecurringGroup
	}
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	// UseNumber so numeric ids/groups keep their decimal form instead of
	// turning into float64
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	raw := make(map[string]any)
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*e = Event{}
	e.apply(raw, true)
	return nil
}

// Shallow-merge partial onto the event: present keys override, absent keys are
// retained. The id never changes through a merge.
func (e *Event) Merge(partial map[string]any) {
	e.apply(partial, false)
}

func (e *Event) apply(fields map[string]any, allowID bool) {
	for k, v := range fields {
		switch k {
		case "id":
			if allowID {
				e.ID = Scalar(v)
			}
		case "title":
			e.Title = Scalar(v)
		case "date":
			e.Date = Scalar(v)
		case "type":
			e.Type = Scalar(v)
		case "description":
			e.Description = Scalar(v)
		case "recurringGroup":
			e.RecurringGroup = Scalar(v)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]any)
			}
			e.Extra[k] = v
		}
	}
}

func (e Event) Clone() Event {
	out := e
	if e.Extra != nil {
		out.Extra = make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Normalize a scalar JSON value to its string form, so an id sent as 42 and an
// id sent as "42" address the same event.
func Scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}

// The whole persisted document.
type EventCollection struct {
	Events      []Event `json:"events"`
	LastUpdated string  `json:"lastUpdated"`
}

// Index of the event with the given id, or -1
func (c *EventCollection) FindIndex(id string) int {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// Stamp the collection with a timestamp strictly later than the current one,
// even if the wall clock hasn't moved.
func (c *EventCollection) Touch() {
	c.LastUpdated = NextTimestamp(c.LastUpdated)
}

func NextTimestamp(prev string) string {
	now := time.Now().UTC()
	if prevTime, err := time.Parse(time.RFC3339Nano, prev); err == nil && !now.After(prevTime) {
		now = prevTime.Add(time.Nanosecond)
	}
	return now.Format(time.RFC3339Nano)
}
