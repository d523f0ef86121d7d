// Package calendar renders persisted sermon events as an iCalendar feed.
package calendar

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// ProductID identifies the feed generator in PRODID.
const ProductID = "-//sermonimport//sermon calendar//NL"

// uidDomain is appended to event ids so UIDs are globally unique.
const uidDomain = "@sermonimport"

// Feed describes a calendar to render.
type Feed struct {
	Name   string
	Events []sermonimport.EventRecord

	// Stamp is written as DTSTAMP on every event. Zero means now.
	Stamp time.Time
}

// Build converts the feed to an iCalendar object with one VEVENT per event.
// Events without a start time are skipped.
func (f Feed) Build() *ical.Calendar {
	stamp := f.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}

	for _, ev := range f.Events {
		if ev.StartTime.IsZero() {
			continue
		}
		vevent := cal.AddEvent(ev.ID + uidDomain)
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(ev.StartTime.UTC())
		vevent.SetEndAt(ev.EndTime.UTC())
		if ev.Title != nil {
			vevent.SetSummary(*ev.Title)
		}

		speakers, collections := describe(ev)
		if len(speakers) > 0 {
			vevent.SetDescription(strings.Join(speakers, "\n"))
		}
		for _, name := range collections {
			vevent.AddCategory(name)
		}
	}
	return cal
}

// Render serializes the feed.
func (f Feed) Render() string {
	return f.Build().Serialize()
}

// describe lists the speakers of an event and the distinct collection names
// across its sermons, in stored order.
func describe(ev sermonimport.EventRecord) (speakers, collections []string) {
	seen := make(map[string]bool)
	for _, s := range ev.Sermons {
		if s.Speaker != nil && strings.TrimSpace(*s.Speaker) != "" {
			speakers = append(speakers, *s.Speaker)
		}
		for _, c := range s.Collections {
			key := strings.ToLower(strings.TrimSpace(c.Name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			collections = append(collections, c.Name)
		}
	}
	return speakers, collections
}
