package notestore

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/templui/cortex/internal/model"
)

// Session is a signed-in session as returned by the server.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *model.User `json:"user"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the cortex server over HTTP with a bearer token.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})
	return &Client{http: c}
}

// SetToken sets the bearer credential used for every request.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

func (c *Client) List(ctx context.Context) ([]*model.VoiceNote, error) {
	var notes []*model.VoiceNote
	resp, err := c.http.R().SetContext(ctx).SetResult(&notes).Get("/api/notes")
	if err := check("list notes", resp, err, ErrStore); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) Create(ctx context.Context, note model.NewVoiceNote) (*model.VoiceNote, error) {
	var created model.VoiceNote
	resp, err := c.http.R().SetContext(ctx).SetBody(note).SetResult(&created).Post("/api/notes")
	if err := check("create note", resp, err, ErrStore); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Update(ctx context.Context, id string, update model.VoiceNoteUpdate) (*model.VoiceNote, error) {
	var updated model.VoiceNote
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(update).
		SetResult(&updated).
		Patch("/api/notes/{id}")
	if err := check("update note", resp, err, ErrStore); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.http.R().SetContext(ctx).SetPathParam("id", id).Delete("/api/notes/{id}")
	return check("delete note", resp, err, ErrStore)
}

func (c *Client) UploadBlob(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	var out struct {
		Path string `json:"path"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		SetResult(&out).
		Put("/api/storage/" + escapePath(path))
	if err := check("upload audio", resp, err, ErrStore); err != nil {
		return "", err
	}
	return out.Path, nil
}

func (c *Client) DeleteBlob(ctx context.Context, path string) error {
	resp, err := c.http.R().SetContext(ctx).Delete("/api/storage/" + escapePath(path))
	return check("delete audio", resp, err, ErrStore)
}

func (c *Client) SignURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	var out struct {
		SignedURL string `json:"signed_url"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"path": path, "expires_in": int(ttl / time.Second)}).
		SetResult(&out).
		Post("/api/storage/sign")
	if err := check("sign url", resp, err, ErrStore); err != nil {
		return "", err
	}
	return out.SignedURL, nil
}

// Transcribe asks the server to transcribe the audio stored at path.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	var out struct {
		Transcript string `json:"transcript"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"filePath": path}).
		SetResult(&out).
		Post("/api/transcribe")
	if err := check("transcribe", resp, err, ErrTranscription); err != nil {
		return "", err
	}
	return out.Transcript, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&session).
		Post("/auth/signin")
	if err := check("sign in", resp, err, ErrStore); err != nil {
		return nil, err
	}
	return &session, nil
}

// SendMagicLink emails a one-time sign-in link.
func (c *Client) SendMagicLink(ctx context.Context, email string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email}).
		Post("/auth/magic-link")
	return check("magic link", resp, err, ErrStore)
}

// Verify exchanges an emailed link for a session. link may be the full
// callback URL or just its token_hash.
func (c *Client) Verify(ctx context.Context, link, tokenType string) (*Session, error) {
	tokenHash := link
	if u, err := url.Parse(link); err == nil && u.Query().Get("token_hash") != "" {
		tokenHash = u.Query().Get("token_hash")
		if t := u.Query().Get("type"); t != "" {
			tokenType = t
		}
	}

	var session Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"token_hash": tokenHash, "type": tokenType}).
		SetResult(&session).
		Post("/auth/verify")
	if err := check("verify", resp, err, ErrStore); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/auth/logout")
	return check("sign out", resp, err, ErrStore)
}

func check(op string, resp *resty.Response, err error, kind error) error {
	if err != nil {
		return &StoreError{Op: op, Err: err, Kind: kind}
	}
	if resp.IsSuccess() {
		return nil
	}

	message := http.StatusText(resp.StatusCode())
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
		message = apiErr.Error
	}
	return &StoreError{Op: op, Status: resp.StatusCode(), Message: message, Kind: kind}
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
