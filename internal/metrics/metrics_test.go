package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestNewIsolatedRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration
	a := New()
	b := New()

	a.RecordUpload(true, 2048)
	a.RecordUpload(false, 0)
	b.RecordTranscription(false, 1.5)

	body := scrape(t, a)
	assert.Contains(t, body, `cortex_audio_uploads_total{result="success"} 1`)
	assert.Contains(t, body, `cortex_audio_uploads_total{result="failure"} 1`)
	assert.NotContains(t, body, `cortex_transcription_requests_total{result="failure"}`)

	body = scrape(t, b)
	assert.Contains(t, body, `cortex_transcription_requests_total{result="failure"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("GET", "GET /api/notes", "200", 0.01)

	assert.Contains(t, scrape(t, m), `cortex_http_requests_total{method="GET",route="GET /api/notes",status_code="200"} 1`)
}
