package notestore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/cortex/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", 5*time.Second)
	c.SetToken("tok")
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/notes", r.URL.Path)
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "n2", "title": "second", "audio_url": "u/2.webm", "duration": 4},
			{"id": "n1", "title": "first", "audio_url": "u/1.webm", "duration": 2},
		})
	})

	notes, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n2", notes[0].ID)
	assert.Equal(t, 4, notes[0].Duration)
}

func TestUpdateSendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/notes/n1", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"completed": true}, body)

		writeJSON(w, http.StatusOK, map[string]any{"id": "n1", "completed": true})
	})

	done := true
	note, err := c.Update(context.Background(), "n1", model.VoiceNoteUpdate{Completed: &done})
	require.NoError(t, err)
	assert.True(t, note.Completed)
}

func TestUploadBlob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/storage/u1/1700000000000.webm", r.URL.Path)
		assert.Equal(t, "audio/webm", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "audio", string(data))
		writeJSON(w, http.StatusCreated, map[string]string{"path": "u1/1700000000000.webm"})
	})

	path, err := c.UploadBlob(context.Background(), "u1/1700000000000.webm", []byte("audio"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "u1/1700000000000.webm", path)
}

func TestSignURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Path      string `json:"path"`
			ExpiresIn int    `json:"expires_in"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1/a.webm", body.Path)
		assert.Equal(t, 3600, body.ExpiresIn)
		writeJSON(w, http.StatusOK, map[string]string{"signed_url": "https://s3/u1/a.webm?sig"})
	})

	url, err := c.SignURL(context.Background(), "u1/a.webm", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/u1/a.webm?sig", url)
}

func TestErrorsCarryServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Voice note not found"})
	})

	err := c.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	assert.NotErrorIs(t, err, ErrAuth)
	assert.NotErrorIs(t, err, ErrTranscription)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, http.StatusNotFound, storeErr.Status)
	assert.Equal(t, "Voice note not found", storeErr.Message)
	assert.Contains(t, err.Error(), "delete note")
}

func TestUnauthorizedMatchesErrAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization required"})
	})

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
	assert.ErrorIs(t, err, ErrStore)
}

func TestTranscribeErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1/a.webm", body["filePath"])
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "No transcript generated. The audio might be too short or unclear."})
	})

	_, err := c.Transcribe(context.Background(), "u1/a.webm")
	assert.ErrorIs(t, err, ErrTranscription)
	assert.NotErrorIs(t, err, ErrStore)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Contains(t, storeErr.Message, "No transcript generated")
}

func TestTransportErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.List(context.Background())
	require.Error(t, err)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Zero(t, storeErr.Status)
	assert.ErrorIs(t, err, ErrStore)
	assert.NotErrorIs(t, err, ErrAuth)
}

func TestVerifyAcceptsCallbackURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/verify", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc123", body["token_hash"])
		assert.Equal(t, "signup", body["type"])
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "jwt",
			"token_type":   "bearer",
			"user":         map[string]string{"id": "u1", "email": "a@example.com"},
		})
	})

	session, err := c.Verify(context.Background(), "https://cortex.example.com/auth/callback?token_hash=abc123&type=signup", "magiclink")
	require.NoError(t, err)
	assert.Equal(t, "jwt", session.AccessToken)
	assert.Equal(t, "u1", session.User.ID)
}

func TestVerifyAcceptsBareToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc123", body["token_hash"])
		assert.Equal(t, "magiclink", body["type"])
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "jwt"})
	})

	session, err := c.Verify(context.Background(), "abc123", "magiclink")
	require.NoError(t, err)
	assert.Equal(t, "jwt", session.AccessToken)
}
