package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-vcard"

	"github.com/tartampluch/go-addressbook/internal/book"
	"github.com/tartampluch/go-addressbook/internal/config"
)

// ExportVCard writes every record of the book as a vCard 4.0 card, in
// insertion order. Phones become TEL fields, the birthday a BDAY field in
// basic ISO format. Returns the number of cards written.
func ExportVCard(w io.Writer, b *book.Book) (int, error) {
	enc := vcard.NewEncoder(w)
	count := 0

	for _, r := range b.Records() {
		card := make(vcard.Card)
		card.SetValue(config.VCardFN, r.Name())
		for _, p := range r.Phones() {
			card.Add(config.VCardTEL, &vcard.Field{Value: p.String()})
		}
		if bd, ok := r.Birthday(); ok {
			card.SetValue(config.VCardBDAY, bd.Date().Format(config.DateFormatFullBasic))
		}
		vcard.ToV4(card)

		if err := enc.Encode(card); err != nil {
			return count, fmt.Errorf("%s: %w", config.ErrVCardEncode, err)
		}
		count++
	}

	slog.Info(config.MsgExportSuccess,
		config.LogKeyComponent, config.CompExchange,
		config.LogKeyCount, count,
	)
	return count, nil
}

// ImportVCard decodes a vCard stream into records. Malformed cards, cards
// without a usable name, unusable phone numbers and unparseable birthdays are
// skipped with a log entry rather than aborting the whole import, to maximize
// data recovery from imperfect sources.
func ImportVCard(r io.Reader) ([]*book.Record, error) {
	decoder := vcard.NewDecoder(r)
	var records []*book.Record

	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompExchange,
				config.LogKeyError, err)
			continue
		}

		// Name strategy: FN (Formatted) > N (Structured) > skip.
		name := ""
		if fn := card.Get(config.VCardFN); fn != nil {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil {
			name = strings.Join(strings.FieldsFunc(n.Value, func(r rune) bool { return r == ';' }), " ")
			name = strings.TrimSpace(name)
		}

		rec, err := book.NewRecord(name)
		if err != nil {
			slog.Warn(config.MsgSkippedName, config.LogKeyComponent, config.CompExchange)
			continue
		}

		for _, tel := range card.Values(config.VCardTEL) {
			if err := rec.AddPhone(normalizePhone(tel)); err != nil {
				slog.Debug(config.MsgSkippedPhone,
					config.LogKeyComponent, config.CompExchange,
					config.LogKeyName, name,
					config.LogKeyValue, tel)
			}
		}

		if bday := card.Get(config.VCardBDAY); bday != nil && bday.Value != "" {
			if t, err := parseBirthdate(bday.Value); err == nil {
				rec.SetBirthdayDate(t)
			} else {
				slog.Debug(config.MsgSkippedDate,
					config.LogKeyComponent, config.CompExchange,
					config.LogKeyName, name,
					config.LogKeyValue, bday.Value)
			}
		}

		records = append(records, rec)
	}

	slog.Info(config.MsgImportSuccess,
		config.LogKeyComponent, config.CompExchange,
		config.LogKeyCount, len(records),
	)
	return records, nil
}

// OpenSource opens a vCard source: an http(s) URL via the fetcher, anything
// else as a local file path. For URLs with a user, the password comes from
// the OS keyring.
func OpenSource(ctx context.Context, source, user string, fetcher VCardFetcher) (io.ReadCloser, error) {
	if strings.HasPrefix(source, config.SchemeHTTP+"://") || strings.HasPrefix(source, config.SchemeHTTPS+"://") {
		if fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		pass := ""
		if user != "" {
			p, err := Password(user)
			if err != nil {
				return nil, err
			}
			pass = p
		}
		return fetcher.Fetch(ctx, source, user, pass)
	}
	return os.Open(source)
}

// normalizePhone strips common formatting characters so numbers like
// "(123) 456-7890" can pass the ten-digit gate. Anything else is left for
// validation to reject.
func normalizePhone(value string) string {
	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c >= '0' && c <= '9' {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// parseBirthdate tries the accepted BDAY layouts in order.
func parseBirthdate(value string) (time.Time, error) {
	layouts := []string{
		config.DateFormatFullBasic,
		config.DateFormatFullDash,
		config.DateLayoutDisplay,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(config.ErrDateParse)
}
