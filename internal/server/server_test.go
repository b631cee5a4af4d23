package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-addressbook/internal/config"
)

const testCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"

func TestHandleCalendar_BeforeFirstPublish(t *testing.T) {
	s := NewCalendarServer("18080")

	rec := httptest.NewRecorder()
	s.handleCalendar(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, config.RetryAfterSeconds, rec.Header().Get(config.HeaderRetryAfter))
}

func TestHandleCalendar_ServesPublishedSnapshot(t *testing.T) {
	s := NewCalendarServer("18080")
	s.Publish([]byte(testCalendar))

	rec := httptest.NewRecorder()
	s.handleCalendar(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.MimeTextCalendar, rec.Header().Get(config.HeaderContentType))
	assert.Equal(t, testCalendar, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(config.HeaderETag))
	assert.NotEmpty(t, rec.Header().Get(config.HeaderLastModified))
}

func TestHandleCalendar_ETagConditionalRequest(t *testing.T) {
	s := NewCalendarServer("18080")
	s.Publish([]byte(testCalendar))

	first := httptest.NewRecorder()
	s.handleCalendar(first, httptest.NewRequest(http.MethodGet, "/", nil))
	etag := first.Header().Get(config.HeaderETag)
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(config.HeaderIfNoneMatch, etag)
	second := httptest.NewRecorder()
	s.handleCalendar(second, req)

	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())
}

func TestHandleCalendar_PublishChangesETag(t *testing.T) {
	s := NewCalendarServer("18080")
	s.Publish([]byte(testCalendar))

	first := httptest.NewRecorder()
	s.handleCalendar(first, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Publish([]byte(testCalendar + "X-CHANGED:1\r\n"))
	second := httptest.NewRecorder()
	s.handleCalendar(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEqual(t,
		first.Header().Get(config.HeaderETag),
		second.Header().Get(config.HeaderETag),
		"Republishing different content must rotate the ETag")
}

func TestHandleCalendar_MethodNotAllowed(t *testing.T) {
	s := NewCalendarServer("18080")
	s.Publish([]byte(testCalendar))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		s.handleCalendar(rec, httptest.NewRequest(method, "/", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, config.AllowedMethods, rec.Header().Get(config.HeaderAllow))
	}
}

func TestHandleCalendar_HeadOmitsBody(t *testing.T) {
	s := NewCalendarServer("18080")
	s.Publish([]byte(testCalendar))

	rec := httptest.NewRecorder()
	s.handleCalendar(rec, httptest.NewRequest(http.MethodHead, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(config.HeaderETag))
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		wantErr bool
	}{
		{"Typical port", "18080", false},
		{"Minimum", "1", false},
		{"Maximum", "65535", false},
		{"Zero", "0", true},
		{"Too large", "65536", true},
		{"Not a number", "http", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePort(tt.port)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
