package database

import (
	"database/sql"
	stdlog "log"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	if err := CreateTables(db); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// CreateTables ensures the full schema exists. It is also used by tests to
// set up in-memory databases.
func CreateTables(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		platform TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, platform)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL CHECK (side IN ('long', 'short')),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		entry_time TEXT NOT NULL,
		exit_time TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		net_pnl REAL NOT NULL,
		fees REAL NOT NULL DEFAULT 0,
		source_platform TEXT,
		raw_payload TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY(account_id) REFERENCES accounts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_date ON trades(user_id, trade_date);

	CREATE TABLE IF NOT EXISTS metric_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		metric_name TEXT NOT NULL,
		total_trades INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		total_pnl REAL NOT NULL DEFAULT 0,
		average_pnl REAL NOT NULL DEFAULT 0,
		win_rate REAL NOT NULL DEFAULT 0,
		largest_win REAL NOT NULL DEFAULT 0,
		largest_loss REAL NOT NULL DEFAULT 0,
		daily_pnl TEXT NOT NULL DEFAULT '{}',
		weekly_pnl TEXT NOT NULL DEFAULT '{}',
		monthly_pnl TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, metric_name)
	);
	`

	_, err := db.Exec(createTableStatement)
	return err
}
