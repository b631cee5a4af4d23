package exchange

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tartampluch/go-addressbook/internal/book"
	"github.com/tartampluch/go-addressbook/internal/config"
)

// CalendarBuilder renders the book's birthdays as an iCalendar feed, one
// all-day event per birthday at its next occurrence.
type CalendarBuilder struct {
	Clock book.Clock // Interface for time mocking.

	// FormatSummary allows the presentation layer to inject localized
	// event summaries. Nil falls back to a plain English summary.
	FormatSummary func(name string) string
}

// Build encodes the calendar for the given book.
// An empty book yields a minimal but valid VCALENDAR stub so that consumers
// never see an invalid feed.
func (g *CalendarBuilder) Build(b *book.Book) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986: suggest a refresh interval.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Local time drives the date logic; UTC is only used for stamping.
	// A birthday is a local calendar date, not an absolute UTC instant.
	now := g.Clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	count := 0
	for _, r := range b.Records() {
		bd, ok := r.Birthday()
		if !ok {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, g.eventUID(r.Name(), bd.Date()))

		summary := fmt.Sprintf(config.FallbackSummary, r.Name())
		if g.FormatSummary != nil {
			summary = g.FormatSummary(r.Name())
		}
		event.Props.SetText(config.PropSummary, summary)

		next := book.NextOccurrence(now, bd.Date())
		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(next)
		event.Props.Set(dtStartProp)

		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
		count++
	}

	if count == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompExchange,
		config.LogKeyCount, count,
	)
	return buf.Bytes(), nil
}

// eventUID derives a deterministic UID so feed consumers see stable event
// identities across regenerations.
func (g *CalendarBuilder) eventUID(name string, birth time.Time) string {
	input := fmt.Sprintf(config.FormatHashInput, name, birth.Format(time.RFC3339), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	base := fmt.Sprintf("%x", hash[:config.UIDHashLength])
	return fmt.Sprintf(config.FormatUID, base, birth.Year(), config.ICalDomain)
}
