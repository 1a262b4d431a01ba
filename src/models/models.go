package models

import (
	"database/sql"
	"time"
)

const (
	SideLong  = "long"
	SideShort = "short"
)

// Trade is the canonical, platform-independent representation of one closed
// position. It is created once by the batch importer and never mutated or
// deleted by this subsystem afterwards.
type Trade struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	AccountID      string    `json:"account_id"`
	Symbol         string    `json:"symbol"`
	Side           string    `json:"side"` // "long" or "short"
	Quantity       int       `json:"quantity"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      float64   `json:"exit_price"`
	EntryTime      time.Time `json:"entry_time"`
	ExitTime       time.Time `json:"exit_time"`
	TradeDate      string    `json:"trade_date"` // YYYY-MM-DD, derived from entry time
	NetPnL         float64   `json:"net_pnl"`
	Fees           float64   `json:"fees"`
	SourcePlatform string    `json:"source_platform"`
	RawPayload     string    `json:"raw_payload"` // original row, retained for audit
	CreatedAt      time.Time `json:"created_at"`
}

// Account is a named trading account owned by a user, tagged with the
// platform its trades were imported from.
type Account struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// MetricSnapshot is the single per-user analytics row, recomputed in full
// after every import. Unique on (user_id, metric_name).
type MetricSnapshot struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	MetricName  string             `json:"metric_name"`
	TotalTrades int                `json:"total_trades"`
	Wins        int                `json:"wins"`
	Losses      int                `json:"losses"`
	TotalPnL    float64            `json:"total_pnl"`
	AveragePnL  float64            `json:"average_pnl"`
	WinRate     float64            `json:"win_rate"` // percent
	LargestWin  float64            `json:"largest_win"`
	LargestLoss float64            `json:"largest_loss"`
	DailyPnL    map[string]float64 `json:"daily_pnl"`   // YYYY-MM-DD -> summed pnl
	WeeklyPnL   map[string]float64 `json:"weekly_pnl"`  // ISO week start -> summed pnl
	MonthlyPnL  map[string]float64 `json:"monthly_pnl"` // YYYY-MM -> summed pnl
	UpdatedAt   time.Time          `json:"updated_at"`
}

// InsertTrade persists a single canonical trade.
func InsertTrade(db *sql.DB, t *Trade) error {
	query := `
		INSERT INTO trades (id, user_id, account_id, symbol, side, quantity,
			entry_price, exit_price, entry_time, exit_time, trade_date,
			net_pnl, fees, source_platform, raw_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.Exec(query,
		t.ID, t.UserID, t.AccountID, t.Symbol, t.Side, t.Quantity,
		t.EntryPrice, t.ExitPrice,
		t.EntryTime.UTC().Format(time.RFC3339),
		t.ExitTime.UTC().Format(time.RFC3339),
		t.TradeDate, t.NetPnL, t.Fees, t.SourcePlatform, t.RawPayload,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListTradesByUser returns all of a user's trades, newest first.
func ListTradesByUser(db *sql.DB, userID string) ([]Trade, error) {
	rows, err := db.Query(`
		SELECT id, user_id, account_id, symbol, side, quantity,
			entry_price, exit_price, entry_time, exit_time, trade_date,
			net_pnl, fees, source_platform, raw_payload, created_at
		FROM trades
		WHERE user_id = ?
		ORDER BY entry_time DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		var entryTime, exitTime, createdAt string
		var sourcePlatform, rawPayload sql.NullString
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.AccountID, &t.Symbol, &t.Side, &t.Quantity,
			&t.EntryPrice, &t.ExitPrice, &entryTime, &exitTime, &t.TradeDate,
			&t.NetPnL, &t.Fees, &sourcePlatform, &rawPayload, &createdAt,
		); err != nil {
			return nil, err
		}
		t.EntryTime, _ = time.Parse(time.RFC3339, entryTime)
		t.ExitTime, _ = time.Parse(time.RFC3339, exitTime)
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.SourcePlatform = sourcePlatform.String
		t.RawPayload = rawPayload.String
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// DeleteTradesByUser removes every trade owned by the user and reports how
// many rows were deleted.
func DeleteTradesByUser(db *sql.DB, userID string) (int64, error) {
	res, err := db.Exec(`DELETE FROM trades WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
