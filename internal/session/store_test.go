package session_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robloxmcp/studio-assist/internal/session"
	"github.com/robloxmcp/studio-assist/internal/wizard"
)

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	s, err := session.New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_InMemory(t *testing.T) {
	s, err := session.New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	id, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, err := s.Exists(ctx, id); err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s, err := session.New(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = session.New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if ok, _ := s.Exists(ctx, id); !ok {
		t.Error("session lost after reopen")
	}
}

func TestNew_UnreadableSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE schema_migrations (version TEXT, applied_at TIMESTAMP, description TEXT NOT NULL)`,
		`INSERT INTO schema_migrations (version, description) VALUES ('v-one', 'hand edited')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	db.Close()

	s, err := session.New(path)
	if err == nil {
		s.Close()
		t.Fatal("expected an error for an unreadable schema version")
	}
	if !strings.Contains(err.Error(), "schema version") {
		t.Errorf("err = %v, want a schema version error", err)
	}
}

func TestCommands(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentCommands(ctx, id, 5)
	if err != nil {
		t.Fatalf("RecentCommands: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("empty history = %#v", got)
	}

	for i := 1; i <= 4; i++ {
		if err := s.AppendCommand(ctx, id, fmt.Sprintf("cmd %d", i)); err != nil {
			t.Fatalf("AppendCommand: %v", err)
		}
	}
	got, err = s.RecentCommands(ctx, id, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"cmd 2", "cmd 3", "cmd 4"}, got); diff != "" {
		t.Errorf("recent (-want +got):\n%s", diff)
	}

	got, err = s.RecentCommands(ctx, id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("default limit returned %d commands", len(got))
	}
}

func TestCommands_IsolatedPerSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Create(ctx)
	b, _ := s.Create(ctx)

	if err := s.AppendCommand(ctx, a, "only in a"); err != nil {
		t.Fatal(err)
	}
	got, err := s.RecentCommands(ctx, b, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("session b sees %v", got)
	}
}

func TestUnknownSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendCommand(ctx, "missing", "x"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("AppendCommand: err = %v", err)
	}
	if _, err := s.RecentCommands(ctx, "missing", 1); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("RecentCommands: err = %v", err)
	}
	if err := s.SaveWizard(ctx, "missing", wizard.StepStart, nil); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("SaveWizard: err = %v", err)
	}
	if _, _, err := s.LoadWizard(ctx, "missing"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("LoadWizard: err = %v", err)
	}
}

func TestWizardProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.Create(ctx)

	_, found, err := s.LoadWizard(ctx, id)
	if err != nil || found {
		t.Fatalf("LoadWizard before save: found=%v err=%v", found, err)
	}

	if err := s.SaveWizard(ctx, id, wizard.StepGenre, map[string]any{"genre": "obby"}); err != nil {
		t.Fatalf("SaveWizard: %v", err)
	}
	if err := s.SaveWizard(ctx, id, wizard.StepFeatures, map[string]any{"genre": "obby", "players": float64(8)}); err != nil {
		t.Fatalf("SaveWizard overwrite: %v", err)
	}

	p, found, err := s.LoadWizard(ctx, id)
	if err != nil || !found {
		t.Fatalf("LoadWizard: found=%v err=%v", found, err)
	}
	if p.Step != wizard.StepFeatures {
		t.Errorf("step = %q", p.Step)
	}
	if diff := cmp.Diff(map[string]any{"genre": "obby", "players": float64(8)}, p.Choices); diff != "" {
		t.Errorf("choices (-want +got):\n%s", diff)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestAppendCommand_ConcurrentWriters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	const writers = 16
	errs := make(chan error, writers)
	for i := range writers {
		go func() { errs <- s.AppendCommand(ctx, id, fmt.Sprintf("command %d", i)) }()
	}
	for range writers {
		if err := <-errs; err != nil {
			t.Errorf("AppendCommand: %v", err)
		}
	}

	got, err := s.RecentCommands(ctx, id, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != writers {
		t.Errorf("got %d commands, want %d", len(got), writers)
	}
}
