package exchange_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-addressbook/internal/book"
	"github.com/tartampluch/go-addressbook/internal/exchange"
)

// MockFetcher simulates the network layer for unit tests using `testify/mock`.
type MockFetcher struct {
	mock.Mock
}

// Fetch implements the exchange.VCardFetcher interface.
func (m *MockFetcher) Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error) {
	args := m.Called(ctx, url, user, pass)
	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestBook(t *testing.T) *book.Book {
	t.Helper()
	b := book.New(nil)

	john, err := book.NewRecord("John")
	require.NoError(t, err)
	require.NoError(t, john.AddPhone("1234567890"))
	require.NoError(t, john.AddPhone("5555555555"))
	require.NoError(t, john.SetBirthday("15.11.1990"))
	b.AddRecord(john)

	jane, err := book.NewRecord("Jane")
	require.NoError(t, err)
	require.NoError(t, jane.AddPhone("9876543210"))
	b.AddRecord(jane)

	return b
}

func TestExportVCard(t *testing.T) {
	b := newTestBook(t)

	var buf bytes.Buffer
	count, err := exchange.ExportVCard(&buf, b)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	out := buf.String()
	assert.Contains(t, out, "FN:John")
	assert.Contains(t, out, "FN:Jane")
	assert.Contains(t, out, "TEL:1234567890")
	assert.Contains(t, out, "TEL:5555555555")
	assert.Contains(t, out, "BDAY:19901115")
	assert.True(t, strings.Index(out, "FN:John") < strings.Index(out, "FN:Jane"),
		"Cards follow book insertion order")
}

func TestExportVCard_EmptyBook(t *testing.T) {
	var buf bytes.Buffer
	count, err := exchange.ExportVCard(&buf, book.New(nil))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, buf.String())
}

func TestImportVCard(t *testing.T) {
	stream := "BEGIN:VCARD\r\n" +
		"VERSION:4.0\r\n" +
		"FN:John Doe\r\n" +
		"TEL:1234567890\r\n" +
		"TEL:(555) 555-5555\r\n" +
		"BDAY:19901115\r\n" +
		"END:VCARD\r\n" +
		"BEGIN:VCARD\r\n" +
		"VERSION:4.0\r\n" +
		"FN:No Birthday\r\n" +
		"TEL:9876543210\r\n" +
		"END:VCARD\r\n"

	records, err := exchange.ImportVCard(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, records, 2)

	john := records[0]
	assert.Equal(t, "John Doe", john.Name())
	phones := john.Phones()
	require.Len(t, phones, 2)
	assert.Equal(t, "1234567890", phones[0].String())
	assert.Equal(t, "5555555555", phones[1].String(), "Formatting characters are stripped before validation")

	bd, ok := john.Birthday()
	require.True(t, ok)
	assert.Equal(t, "15.11.1990", bd.String())

	_, ok = records[1].Birthday()
	assert.False(t, ok)
}

func TestImportVCard_BirthdayLayouts(t *testing.T) {
	tests := []struct {
		name  string
		bday  string
		want  string
		hasBd bool
	}{
		{"Basic ISO", "19901115", "15.11.1990", true},
		{"Dashed ISO", "1990-11-15", "15.11.1990", true},
		{"Display format", "15.11.1990", "15.11.1990", true},
		{"Unparseable", "sometime in november", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:John\r\nBDAY:" + tt.bday + "\r\nEND:VCARD\r\n"
			records, err := exchange.ImportVCard(strings.NewReader(stream))
			require.NoError(t, err)
			require.Len(t, records, 1)

			bd, ok := records[0].Birthday()
			assert.Equal(t, tt.hasBd, ok)
			if tt.hasBd {
				assert.Equal(t, tt.want, bd.String())
			}
		})
	}
}

func TestImportVCard_SkipsUnusableData(t *testing.T) {
	// Second card has no FN/N and must be skipped; the invalid phone on the
	// first card is dropped while the card itself survives.
	stream := "BEGIN:VCARD\r\n" +
		"VERSION:4.0\r\n" +
		"FN:John\r\n" +
		"TEL:12\r\n" +
		"TEL:1234567890\r\n" +
		"END:VCARD\r\n" +
		"BEGIN:VCARD\r\n" +
		"VERSION:4.0\r\n" +
		"TEL:9876543210\r\n" +
		"END:VCARD\r\n"

	records, err := exchange.ImportVCard(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, records, 1)

	phones := records[0].Phones()
	require.Len(t, phones, 1)
	assert.Equal(t, "1234567890", phones[0].String())
}

func TestImportVCard_StructuredNameFallback(t *testing.T) {
	stream := "BEGIN:VCARD\r\nVERSION:4.0\r\nN:Doe;John;;;\r\nTEL:1234567890\r\nEND:VCARD\r\n"

	records, err := exchange.ImportVCard(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Doe John", records[0].Name())
}

func TestExportImport_RoundTrip(t *testing.T) {
	b := newTestBook(t)

	var buf bytes.Buffer
	_, err := exchange.ExportVCard(&buf, b)
	require.NoError(t, err)

	records, err := exchange.ImportVCard(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "John", records[0].Name())
	assert.Len(t, records[0].Phones(), 2)
	bd, ok := records[0].Birthday()
	require.True(t, ok)
	assert.Equal(t, "15.11.1990", bd.String())
}

func TestOpenSource_RemoteViaFetcher(t *testing.T) {
	body := "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:John\r\nEND:VCARD\r\n"
	mockFetcher := new(MockFetcher)
	mockFetcher.On("Fetch", mock.Anything, "http://example.com/contacts.vcf", "", "").
		Return(io.NopCloser(strings.NewReader(body)), nil)

	rc, err := exchange.OpenSource(context.Background(), "http://example.com/contacts.vcf", "", mockFetcher)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	mockFetcher.AssertExpectations(t)
}

func TestOpenSource_RemoteWithoutFetcher(t *testing.T) {
	_, err := exchange.OpenSource(context.Background(), "https://example.com/contacts.vcf", "", nil)
	assert.Error(t, err)
}

func TestOpenSource_MissingLocalFile(t *testing.T) {
	_, err := exchange.OpenSource(context.Background(), "/does/not/exist.vcf", "", nil)
	assert.Error(t, err)
}
