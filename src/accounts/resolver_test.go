package accounts

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	db.SetMaxOpenConns(1)
	if err := database.CreateTables(db); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertAccount(t *testing.T, db *sql.DB, userID, name, platform string, createdAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO accounts (id, user_id, name, platform, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, name, platform, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("insert account: %v", err)
	}
	return id
}

func TestResolveOrCreateCreatesMissingAccount(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	id, err := r.ResolveOrCreate("user-1", "Tradovate")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty account id")
	}

	var name, platform string
	if err := db.QueryRow(`SELECT name, platform FROM accounts WHERE id = ?`, id).Scan(&name, &platform); err != nil {
		t.Fatalf("read back account: %v", err)
	}
	if name != "Tradovate Account" {
		t.Errorf("name = %q, want %q", name, "Tradovate Account")
	}
	if platform != "tradovate" {
		t.Errorf("platform = %q, want %q", platform, "tradovate")
	}
}

func TestResolveOrCreateFindsExactPlatformMatch(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	existing := insertAccount(t, db, "user-1", "Main", "tradovate", time.Now())
	insertAccount(t, db, "user-2", "Other user", "tradovate", time.Now())

	id, err := r.ResolveOrCreate("user-1", "TRADOVATE")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if id != existing {
		t.Errorf("resolved %q, want existing account %q", id, existing)
	}
}

func TestResolveOrCreateMostRecentMatchWins(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	// Two accounts whose names both mention the platform; unique constraint
	// does not apply because the platform tags differ.
	insertAccount(t, db, "user-1", "Old topstepx account", "legacy", base)
	newer := insertAccount(t, db, "user-1", "New topstepx account", "eval", base.Add(24*time.Hour))

	id, err := r.ResolveOrCreate("user-1", "topstepx")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if id != newer {
		t.Errorf("resolved %q, want most recently created %q", id, newer)
	}
}

func TestResolveOrCreateNameSubstringFallback(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	renamed := insertAccount(t, db, "user-1", "My NinjaTrader Live", "imported", time.Now())

	id, err := r.ResolveOrCreate("user-1", "ninjatrader")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if id != renamed {
		t.Errorf("resolved %q, want renamed account %q", id, renamed)
	}
}

func TestResolveOrCreateConcurrentCallsConverge(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = r.ResolveOrCreate("user-1", "tradovate")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("worker %d resolved %q, want %q", i, ids[i], ids[0])
		}
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(1) FROM accounts WHERE user_id = ? AND platform = ?`, "user-1", "tradovate").Scan(&n); err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if n != 1 {
		t.Errorf("account rows = %d, want exactly 1", n)
	}
}

func TestResolveOrCreateEmptyHintUsesDefaultPlatform(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	id, err := r.ResolveOrCreate("user-1", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	var platform string
	if err := db.QueryRow(`SELECT platform FROM accounts WHERE id = ?`, id).Scan(&platform); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if platform != DefaultPlatform {
		t.Errorf("platform = %q, want %q", platform, DefaultPlatform)
	}
}

func TestBelongsToUser(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db)

	mine := insertAccount(t, db, "user-1", "Mine", "tradovate", time.Now())

	ok, err := r.BelongsToUser(mine, "user-1")
	if err != nil || !ok {
		t.Errorf("BelongsToUser(own account) = %v, %v; want true", ok, err)
	}
	ok, err = r.BelongsToUser(mine, "user-2")
	if err != nil || ok {
		t.Errorf("BelongsToUser(other user) = %v, %v; want false", ok, err)
	}
	ok, err = r.BelongsToUser("missing-id", "user-1")
	if err != nil || ok {
		t.Errorf("BelongsToUser(missing) = %v, %v; want false", ok, err)
	}
}
