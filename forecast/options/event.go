package options

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aouyang1/go-demandcast/feature"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/us"
)

const (
	HolidaysUS = "us"
	HolidaysES = "es"

	DefaultEventPrior = 10.0
)

var (
	ErrStartAfterEnd   = errors.New("event start time is after end time")
	ErrUnsetTime       = errors.New("unset event start or end time")
	ErrNoEventName     = errors.New("no event name")
	ErrUnknownCalendar = errors.New("unknown holiday calendar")
)

var calendars = map[string][]*cal.Holiday{
	HolidaysUS: us.Holidays,
	HolidaysES: es.Holidays,
}

// Event represents a time span to model as a separate bias on top of the trend
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// ValidCalendar reports whether the holiday calendar code is known. An empty code disables
// holidays.
func ValidCalendar(country string) error {
	if country == "" {
		return nil
	}
	if _, exists := calendars[strings.ToLower(country)]; !exists {
		return fmt.Errorf("%q, %w", country, ErrUnknownCalendar)
	}
	return nil
}

// Holiday returns one day long events for every observed date of the holiday between start and
// end inclusive. Every occurrence shares the same name so a single weight is fit per holiday.
func Holiday(hol *cal.Holiday, start, end time.Time) []Event {
	loc := start.Location()
	name := strings.ToLower(strings.ReplaceAll(hol.Name, " ", "_"))

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		if observed.IsZero() {
			continue
		}
		day := time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, loc)
		dayEnd := day.Add(24 * time.Hour)
		if dayEnd.After(start) && !day.After(end) {
			events = append(events, NewEvent(name, day, dayEnd))
		}
	}
	return events
}

// Holidays returns the events for every holiday of the calendar between start and end
func Holidays(country string, start, end time.Time) ([]Event, error) {
	if country == "" {
		return nil, nil
	}
	hols, exists := calendars[strings.ToLower(country)]
	if !exists {
		return nil, fmt.Errorf("%q, %w", country, ErrUnknownCalendar)
	}
	var events []Event
	for _, hol := range hols {
		events = append(events, Holiday(hol, start, end)...)
	}
	return events, nil
}

// EventOptions lists the custom events to model and optionally a country holiday calendar whose
// holidays are generated over whatever time range is being modelled. PriorScale plays the same
// role as the changepoint prior scale for the event weights.
type EventOptions struct {
	Events     []Event `json:"events"`
	Holidays   string  `json:"holidays"`
	PriorScale float64 `json:"prior_scale"`
}

// NewDefaultEventOptions returns event options without any events or holidays
func NewDefaultEventOptions() EventOptions {
	return EventOptions{PriorScale: DefaultEventPrior}
}

// Enabled reports whether any event or holiday calendar is configured
func (e EventOptions) Enabled() bool {
	return len(e.Events) > 0 || e.Holidays != ""
}

// GenerateFeatures builds one indicator per event name that is 1 while any event of that name
// is active
func (e EventOptions) GenerateFeatures(t []time.Time) *feature.Set {
	eFeat := feature.NewSet()
	if len(t) == 0 {
		return eFeat
	}

	events := make([]Event, 0, len(e.Events))
	events = append(events, e.Events...)
	start, end := t[0], t[0]
	for _, tPnt := range t {
		if tPnt.Before(start) {
			start = tPnt
		}
		if tPnt.After(end) {
			end = tPnt
		}
	}
	holidays, err := Holidays(e.Holidays, start, end)
	if err != nil {
		slog.Warn("unable to generate holidays", "holidays", e.Holidays, "error", err.Error())
	}
	events = append(events, holidays...)

	masks := make(map[string][]float64)
	names := make([]string, 0, len(events))
	for _, ev := range events {
		if err := ev.Valid(); err != nil {
			slog.Warn("not separately modelling invalid event", "name", ev.Name, "error", err.Error())
			continue
		}
		name := strings.ReplaceAll(ev.Name, " ", "_")
		mask, exists := masks[name]
		if !exists {
			mask = make([]float64, len(t))
			masks[name] = mask
			names = append(names, name)
		}
		for i, tPnt := range t {
			if !tPnt.Before(ev.Start) && tPnt.Before(ev.End) {
				mask[i] = 1.0
			}
		}
	}

	for _, name := range names {
		eFeat.Set(feature.NewEvent(name), masks[name])
	}
	return eFeat
}
