package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/cortex/internal/db"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/repository"
)

type sentLink struct {
	Email string
	Type  string
	Link  string
}

type fakeMailer struct {
	mu      sync.Mutex
	links   []sentLink
	deleted []string
	err     error
}

func (m *fakeMailer) SendAuthLink(_ context.Context, email, tokenType, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, sentLink{Email: email, Type: tokenType, Link: link})
	return nil
}

func (m *fakeMailer) SendAccountDeleted(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, email)
	return nil
}

func (m *fakeMailer) last() sentLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[len(m.links)-1]
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.Init(ctx, "sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })

	require.NoError(t, db.RunMigrations(ctx, database.DB, "sqlite"))
	return database
}

func seedUser(t *testing.T, database *sqlx.DB) *model.User {
	t.Helper()
	now := time.Now().UTC()
	user := &model.User{
		ID:              uuid.New().String(),
		Email:           uuid.New().String() + "@example.com",
		EmailVerifiedAt: &now,
		CreatedAt:       now,
	}
	require.NoError(t, repository.NewUserRepository(database).Create(context.Background(), user))
	return user
}
