package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// Object is a stored blob held by Memory.
type Object struct {
	Data        []byte
	ContentType string
}

// Memory is a process-local Storage used for development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
	BaseURL string
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]Object),
		BaseURL: "memory://voice-notes",
	}
}

func (m *Memory) Save(_ context.Context, path string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = Object{Data: data, ContentType: contentType}
	return nil
}

func (m *Memory) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[path]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *Memory) PresignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}

	q := url.Values{}
	q.Set("expires", fmt.Sprintf("%d", int(expiry.Seconds())))
	return m.BaseURL + "/" + path + "?" + q.Encode(), nil
}

// Get returns a stored object, for inspection in tests.
func (m *Memory) Get(path string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	return obj, ok
}
