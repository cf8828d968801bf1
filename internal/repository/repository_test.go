package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tempspec/internal/database"
	"tempspec/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "repo.db")
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

func newSpec(code string, createdAt time.Time) *model.TempSpec {
	return &model.TempSpec{
		SpecCode:  code,
		Title:     "theme " + code,
		StartDate: model.DateOf(createdAt),
		EndDate:   model.DateOf(createdAt).AddDate(0, 0, 30),
		Status:    model.SpecPendingApproval,
		CreatedAt: createdAt,
	}
}

func TestHistoryRepository_ListBySpecNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, time.March, 5, 9, 30, 5, 0, time.UTC)

	spec := newSpec("PE1140301", base)
	if err := NewSpecRepository(db).Create(ctx, spec); err != nil {
		t.Fatalf("create spec: %v", err)
	}

	// sub-second steps whose decimal forms differ in length
	steps := []struct {
		action string
		at     time.Time
	}{
		{model.ActionCreateSpec, base.Add(100 * time.Millisecond)},
		{model.ActionActivateSpec, base.Add(120 * time.Millisecond)},
		{model.ActionExtendSpec, base.Add(120*time.Millisecond + 5*time.Microsecond)},
		{model.ActionTerminateSpec, base.Add(900 * time.Millisecond)},
	}

	repo := NewHistoryRepository(db)
	defer func(orig func() time.Time) { nowFunc = orig }(nowFunc)
	for _, step := range steps {
		at := step.at
		nowFunc = func() time.Time { return at }
		if err := repo.Append(ctx, &model.SpecHistory{SpecID: spec.ID, Action: step.action}); err != nil {
			t.Fatalf("append %s: %v", step.action, err)
		}
	}

	entries, err := repo.ListBySpec(ctx, spec.ID)
	if err != nil {
		t.Fatalf("ListBySpec() error = %v", err)
	}
	if len(entries) != len(steps) {
		t.Fatalf("got %d entries, want %d", len(entries), len(steps))
	}
	for i, e := range entries {
		want := steps[len(steps)-1-i]
		if e.Action != want.action {
			t.Errorf("entry %d action = %s, want %s", i, e.Action, want.action)
		}
		if !e.CreatedAt.Equal(want.at) {
			t.Errorf("entry %d created_at = %v, want %v", i, e.CreatedAt, want.at)
		}
	}
}

func TestSpecRepository_ListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSpecRepository(db)
	base := time.Date(2025, time.March, 5, 9, 30, 5, 0, time.UTC)

	specs := []*model.TempSpec{
		newSpec("PE1140301", base.Add(100*time.Millisecond)),
		newSpec("PE1140302", base.Add(120*time.Millisecond)),
		// non-UTC zone, still the newest instant
		newSpec("PE1140303", base.Add(500*time.Millisecond).In(time.FixedZone("CST", 8*3600))),
	}
	for _, s := range specs {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.SpecCode, err)
		}
	}

	got, total, err := repo.List(ctx, SpecFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	want := []string{"PE1140303", "PE1140302", "PE1140301"}
	for i, code := range want {
		if got[i].SpecCode != code {
			t.Errorf("position %d = %s, want %s", i, got[i].SpecCode, code)
		}
	}
}

func TestSpecRepository_LatestCode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSpecRepository(db)
	now := time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		seed   []string
		prefix string
		want   string
	}{
		{name: "empty bucket", prefix: "PE11403", want: ""},
		{name: "highest in bucket", seed: []string{"PE1140301", "PE1140303", "PE1140302"}, prefix: "PE11403", want: "PE1140303"},
		{name: "other month ignored", seed: []string{"PE1140407"}, prefix: "PE11403", want: "PE1140303"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, code := range tt.seed {
				if err := repo.Create(ctx, newSpec(code, now)); err != nil {
					t.Fatalf("create %s: %v", code, err)
				}
			}
			got, err := repo.LatestCode(ctx, tt.prefix)
			if err != nil {
				t.Fatalf("LatestCode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LatestCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpecRepository_ListExpiredComparesDates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSpecRepository(db)
	today := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)

	due := newSpec("PE1140301", today.AddDate(0, 0, -40))
	due.EndDate = today.AddDate(0, 0, -1)
	due.Status = model.SpecActive
	lastDay := newSpec("PE1140302", today.AddDate(0, 0, -30))
	lastDay.EndDate = today
	lastDay.Status = model.SpecActive
	for _, s := range []*model.TempSpec{due, lastDay} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.SpecCode, err)
		}
	}

	got, err := repo.ListExpired(ctx, today)
	if err != nil {
		t.Fatalf("ListExpired() error = %v", err)
	}
	if len(got) != 1 || got[0].SpecCode != due.SpecCode {
		t.Fatalf("ListExpired() = %v, want only %s", got, due.SpecCode)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data/tempspec.db", "file:data/tempspec.db?_timefmt=unixepoch_nano"},
		{"file:x.db", "file:x.db?_timefmt=unixepoch_nano"},
		{"file:x.db?_pragma=busy_timeout(5000)", "file:x.db?_pragma=busy_timeout(5000)&_timefmt=unixepoch_nano"},
		{"file:x.db?_timefmt=sqlite", "file:x.db?_timefmt=sqlite"},
	}
	for _, tt := range tests {
		if got := database.SQLiteDSN(tt.in); got != tt.want {
			t.Errorf("SQLiteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewConnection_GormLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dsn := "file:" + filepath.Join(t.TempDir(), "log.db")
	db, err := database.NewConnection(database.DriverSQLite, dsn, zap.New(core))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	logs.TakeAll()

	ctx := context.Background()
	repo := NewSpecRepository(db)
	if code, err := repo.LatestCode(ctx, "PE11403"); err != nil || code != "" {
		t.Fatalf("LatestCode() = %q, %v; want empty bucket", code, err)
	}
	if _, err := repo.FindByID(ctx, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("FindByID() error = %v, want ErrRecordNotFound", err)
	}
	if n := logs.FilterMessageSnippet("record not found").Len(); n != 0 {
		t.Errorf("record-not-found logged %d times", n)
	}

	if err := db.Exec("SELECT * FROM no_such_table").Error; err == nil {
		t.Fatal("expected query error")
	}
	if logs.FilterMessageSnippet("no_such_table").Len() == 0 {
		t.Error("gorm error not written to the zap logger")
	}
}
