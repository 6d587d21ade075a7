package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/JonMunkholm/emailpreview/internal/config"
	"github.com/JonMunkholm/emailpreview/internal/core"
)

func confirmed(session, source string, col int, at time.Time, emails ...string) core.ConfirmedMapping {
	return core.ConfirmedMapping{
		SessionID:   session,
		Source:      source,
		ConfirmedAt: at,
		Result: core.MappingResult{
			ColumnIndex:   col,
			Header:        "Email",
			PreviewEmails: emails,
		},
	}
}

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	empty, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List on empty store: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List on empty store = %#v, want empty slice", empty)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inputs := []core.ConfirmedMapping{
		confirmed("s1", "a.csv", 1, base, "a@x.io", "b@x.io"),
		confirmed("s2", "b.csv", 0, base.Add(time.Second)),
		confirmed("s1", "c.csv", 2, base.Add(2*time.Second), "c@x.io"),
	}
	inputs[0].ClientIP = "10.0.0.1"
	inputs[0].UserAgent = "curl/8"
	for _, m := range inputs {
		if err := s.DeliverMapping(ctx, m); err != nil {
			t.Fatalf("DeliverMapping(%s): %v", m.Source, err)
		}
	}

	got, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d mappings, want 3", len(got))
	}

	var sources []string
	for _, m := range got {
		sources = append(sources, m.Source)
		if m.ID == "" {
			t.Errorf("mapping %s has no id", m.Source)
		}
	}
	if !reflect.DeepEqual(sources, []string{"c.csv", "b.csv", "a.csv"}) {
		t.Errorf("order = %v, want newest first", sources)
	}

	newest := got[0]
	if newest.SessionID != "s1" || newest.ColumnIndex != 2 || newest.Header != "Email" {
		t.Errorf("newest = %+v", newest)
	}
	if !reflect.DeepEqual(newest.PreviewEmails, []string{"c@x.io"}) {
		t.Errorf("PreviewEmails = %v", newest.PreviewEmails)
	}
	if !newest.ConfirmedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("ConfirmedAt = %v", newest.ConfirmedAt)
	}
	if got[1].PreviewEmails == nil || len(got[1].PreviewEmails) != 0 {
		t.Errorf("mapping without samples = %#v, want empty slice", got[1].PreviewEmails)
	}

	if oldest := got[2]; oldest.ClientIP != "10.0.0.1" || oldest.UserAgent != "curl/8" {
		t.Errorf("client details = %q/%q", oldest.ClientIP, oldest.UserAgent)
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(limited) != 2 || limited[0].Source != "c.csv" {
		t.Errorf("List(2) = %+v", limited)
	}
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemory_ListReturnsCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	_ = s.DeliverMapping(ctx, confirmed("s", "a.csv", 0, time.Now(), "a@x.io"))

	got, _ := s.List(ctx, 1)
	got[0].PreviewEmails[0] = "changed"

	again, _ := s.List(ctx, 1)
	if again[0].PreviewEmails[0] != "a@x.io" {
		t.Error("List exposes internal storage")
	}
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemory().DeliverMapping(ctx, confirmed("s", "a.csv", 0, time.Now())); err == nil {
		t.Error("DeliverMapping with canceled context succeeded")
	}
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.db")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mappings.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeliverMapping(ctx, confirmed("s", "a.csv", 3, time.Now(), "a@x.io")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ColumnIndex != 3 {
		t.Errorf("after reopen List = %+v", got)
	}
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := OpenPostgres(context.Background(), config.StoreConfig{
		DatabaseURL: url,
		MaxConns:    2,
		MinConns:    0,
	})
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer s.Close()

	if _, err := s.pool.Exec(context.Background(), "TRUNCATE column_mappings"); err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(memory) = %T", s)
	}

	s, err = Open(ctx, config.StoreConfig{Driver: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "m.db")})
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	if _, ok := s.(*SQLite); !ok {
		t.Errorf("Open(sqlite) = %T", s)
	}
	s.Close()

	if _, err := Open(ctx, config.StoreConfig{Driver: "mongo"}); err == nil {
		t.Error("Open(mongo) succeeded")
	}
}

func TestStoresAreSinks(t *testing.T) {
	var _ core.MappingSink = NewMemory()
	var _ core.MappingSink = (*SQLite)(nil)
	var _ core.MappingSink = (*Postgres)(nil)
}
