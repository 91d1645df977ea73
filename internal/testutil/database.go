// Package testutil provides test utilities for the pattern store and the
// classification pipeline.
package testutil

import (
	"context"
	"testing"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/storage"
)

// TestStore is a migrated in-memory pattern store scoped to one test.
type TestStore struct {
	Store *storage.SQLiteStorage
	t     *testing.T
}

// SetupTestStore creates a new in-memory SQLite pattern store, runs the
// migrations, seeds the given patterns and registers cleanup.
//
// Example:
//
//	db := testutil.SetupTestStore(t,
//		testutil.NewPattern("KB국민카드 승인 {AMOUNT}").WithEmbedding(1, 0).Build(),
//	)
func SetupTestStore(t *testing.T, seed ...*model.Pattern) *TestStore {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestStore{Store: store, t: t}
	for _, p := range seed {
		db.MustInsert(p)
	}
	return db
}

// MustInsert stores p or fails the test, returning the new ID.
func (db *TestStore) MustInsert(p *model.Pattern) int64 {
	db.t.Helper()
	id, err := db.Store.Insert(context.Background(), p)
	if err != nil {
		db.t.Fatalf("failed to seed pattern %q: %v", p.Template, err)
	}
	return id
}

// MustGet loads a pattern by ID or fails the test.
func (db *TestStore) MustGet(id int64) *model.Pattern {
	db.t.Helper()
	p, err := db.Store.GetPattern(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load pattern %d: %v", id, err)
	}
	return p
}

// Counts returns the number of stored payment and non-payment patterns.
func (db *TestStore) Counts() storage.PatternCounts {
	db.t.Helper()
	counts, err := db.Store.CountPatterns(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count patterns: %v", err)
	}
	return counts
}
