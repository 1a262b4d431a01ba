// Package accounts finds or creates the trading account that owns imported
// trades for a given user and platform.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
)

// ErrResolution marks failures to find or create an owning account. The
// batch importer aborts on it: no trade can be persisted without an account.
var ErrResolution = errors.New("account resolution failure")

// DefaultPlatform is used when no row in a batch declares its source.
const DefaultPlatform = "manual"

type Resolver struct {
	db *sql.DB
}

func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveOrCreate returns the id of the user's account for the given
// platform, creating it if necessary.
//
// Lookup prefers an exact case-insensitive platform match, then a substring
// match on the account name; when several match, the most recently created
// wins. The create path is conflict-safe: a unique (user_id, platform)
// constraint plus insert-or-ignore semantics means two concurrent imports
// for a brand-new combination converge on a single row.
func (r *Resolver) ResolveOrCreate(userID, platformHint string) (string, error) {
	platform := strings.ToLower(strings.TrimSpace(platformHint))
	if platform == "" {
		platform = DefaultPlatform
	}

	if id, err := r.findExisting(userID, platform); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolution, err)
	} else if id != "" {
		return id, nil
	}

	id := uuid.NewString()
	name := displayName(platform) + " Account"
	_, err := r.db.Exec(`
		INSERT INTO accounts (id, user_id, name, platform, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, platform) DO NOTHING`,
		id, userID, name, platform, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("%w: insert: %v", ErrResolution, err)
	}

	// Re-select rather than trusting the generated id: on conflict a
	// concurrent writer's row won.
	winner, err := r.findExisting(userID, platform)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if winner == "" {
		return "", fmt.Errorf("%w: account for user %s platform %s not visible after insert", ErrResolution, userID, platform)
	}
	if winner != id && logger.L != nil {
		logger.L.Debug("Concurrent account creation detected, using existing row", "userID", userID, "platform", platform, "accountID", winner)
	}
	return winner, nil
}

func (r *Resolver) findExisting(userID, platform string) (string, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT id FROM accounts
		WHERE user_id = ? AND LOWER(platform) = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID, platform).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	// Fallback: substring match on the account name, so e.g. a manually
	// renamed "My Tradovate Account" still claims tradovate imports.
	err = r.db.QueryRow(`
		SELECT id FROM accounts
		WHERE user_id = ? AND INSTR(LOWER(name), ?) > 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID, platform).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// BelongsToUser reports whether the account exists and is owned by the user.
// Used to verify caller-supplied account overrides before trusting them.
func (r *Resolver) BelongsToUser(accountID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(1) FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: ownership check: %v", ErrResolution, err)
	}
	return n > 0, nil
}

func displayName(platform string) string {
	if platform == "" {
		return "Imported"
	}
	return strings.ToUpper(platform[:1]) + platform[1:]
}
