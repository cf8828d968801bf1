package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/database"
	"tempspec/internal/docgen"
	"tempspec/internal/model"
	"tempspec/internal/repository"
	"tempspec/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	mu     sync.Mutex
	err    error
	values []map[string]any
}

func (g *fakeGenerator) Generate(_ context.Context, values map[string]any) (*docgen.Artifacts, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	g.values = append(g.values, copied)
	if g.err != nil {
		return nil, g.err
	}
	code, _ := values["serial_number"].(string)
	return &docgen.Artifacts{Docx: []byte("docx " + code), PDF: []byte("%PDF " + code)}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []SpecEvent
}

func (n *recordingNotifier) Publish(event any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := event.(SpecEvent); ok {
		n.events = append(n.events, e)
	}
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type testEnv struct {
	db        *gorm.DB
	specs     SpecService
	history   HistoryService
	users     repository.UserRepository
	generator *fakeGenerator
	notifier  *recordingNotifier
	clock     *testClock
	generated *storage.LocalStore
	files     *storage.LocalStore
	images    *storage.LocalStore
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "tempspec.db")
	db, err := database.NewConnection(database.DriverSQLite, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newLocalStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	s, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	return s
}

func newTestEnv(t *testing.T, opts ...func(*SpecDeps)) *testEnv {
	t.Helper()
	db := openTestDB(t)
	env := &testEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		generator: &fakeGenerator{},
		notifier:  &recordingNotifier{},
		clock:     &testClock{t: time.Date(2025, time.March, 5, 9, 30, 0, 0, time.UTC)},
		generated: newLocalStore(t),
		files:     newLocalStore(t),
		images:    newLocalStore(t),
	}
	specRepo := repository.NewSpecRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	deps := SpecDeps{
		TxManager: repository.NewTransactionManager(db),
		Specs:     specRepo,
		Uploads:   repository.NewUploadRepository(db),
		History:   historyRepo,
		Generator: env.generator,
		Generated: env.generated,
		Files:     env.files,
		Images:    env.images,
		Notifier:  env.notifier,
		Logger:    zap.NewNop(),
		Now:       env.clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.specs = NewSpecService(deps)
	env.history = NewHistoryService(specRepo, historyRepo)

	// history rows reference users, so the shared actors need rows too
	for _, a := range []authz.Actor{editor, admin, viewer} {
		u := &model.User{ID: a.UserID, Username: a.Role + "-actor", PasswordHash: "x", Role: a.Role}
		if err := env.users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed %s: %v", u.Username, err)
		}
	}
	return env
}

func (e *testEnv) createUser(t *testing.T, username, role string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "x", Role: role}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func (e *testEnv) create(t *testing.T, actor authz.Actor, req CreateSpecRequest) *SpecResponse {
	t.Helper()
	res, err := e.specs.Create(context.Background(), actor, req)
	if err != nil {
		t.Fatalf("create spec: %v", err)
	}
	return res
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
