// Package analytics maintains the per-user aggregate metric snapshot. The
// snapshot is always recomputed in full from the current trade set and
// written through an atomic upsert, never patched incrementally, so repeated
// refreshes cannot drift.
package analytics

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/models"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/utils"
)

// MetricName keys the single rolled-up analytics row per user.
const MetricName = "overall_stats"

const (
	dailyWindowDays = 90
	weeklyWindow    = 12
	monthlyWindow   = 12
	ckSummary       = "analytics_summary_user_%s"
	summaryCacheTTL = 15 * time.Minute
)

// ErrAggregation marks snapshot refresh failures. The batch importer logs
// and swallows it so a dashboard-refresh failure never fails an otherwise
// successful import.
var ErrAggregation = errors.New("aggregation failure")

type Aggregator struct {
	db           *sql.DB
	summaryCache *cache.Cache
}

func NewAggregator(db *sql.DB, summaryCache *cache.Cache) *Aggregator {
	return &Aggregator{db: db, summaryCache: summaryCache}
}

// Refresh recomputes the user's snapshot from scratch over the full current
// trade set and upserts it. Idempotent: with no intervening trade changes,
// two calls produce identical metric values.
func (a *Aggregator) Refresh(userID string) error {
	trades, err := models.ListTradesByUser(a.db, userID)
	if err != nil {
		return fmt.Errorf("%w: loading trades: %v", ErrAggregation, err)
	}

	snapshot := computeSnapshot(trades, time.Now().UTC())
	snapshot.UserID = userID

	if err := a.upsert(&snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrAggregation, err)
	}

	if a.summaryCache != nil {
		a.summaryCache.Delete(fmt.Sprintf(ckSummary, userID))
	}
	if logger.L != nil {
		logger.L.Debug("Analytics snapshot refreshed", "userID", userID, "totalTrades", snapshot.TotalTrades)
	}
	return nil
}

// Summary returns the user's current snapshot, serving repeated dashboard
// reads from cache. A user with no snapshot row yet gets an empty snapshot
// rather than an error.
func (a *Aggregator) Summary(userID string) (*models.MetricSnapshot, error) {
	cacheKey := fmt.Sprintf(ckSummary, userID)
	if a.summaryCache != nil {
		if cached, found := a.summaryCache.Get(cacheKey); found {
			return cached.(*models.MetricSnapshot), nil
		}
	}

	snapshot, err := a.load(userID)
	if err != nil {
		return nil, err
	}
	if a.summaryCache != nil {
		a.summaryCache.Set(cacheKey, snapshot, summaryCacheTTL)
	}
	return snapshot, nil
}

func (a *Aggregator) upsert(s *models.MetricSnapshot) error {
	dailyJSON, err := json.Marshal(s.DailyPnL)
	if err != nil {
		return err
	}
	weeklyJSON, err := json.Marshal(s.WeeklyPnL)
	if err != nil {
		return err
	}
	monthlyJSON, err := json.Marshal(s.MonthlyPnL)
	if err != nil {
		return err
	}

	_, err = a.db.Exec(`
		INSERT INTO metric_snapshots (id, user_id, metric_name, total_trades,
			wins, losses, total_pnl, average_pnl, win_rate, largest_win,
			largest_loss, daily_pnl, weekly_pnl, monthly_pnl, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, metric_name) DO UPDATE SET
			total_trades = excluded.total_trades,
			wins = excluded.wins,
			losses = excluded.losses,
			total_pnl = excluded.total_pnl,
			average_pnl = excluded.average_pnl,
			win_rate = excluded.win_rate,
			largest_win = excluded.largest_win,
			largest_loss = excluded.largest_loss,
			daily_pnl = excluded.daily_pnl,
			weekly_pnl = excluded.weekly_pnl,
			monthly_pnl = excluded.monthly_pnl,
			updated_at = excluded.updated_at`,
		uuid.NewString(), s.UserID, MetricName, s.TotalTrades,
		s.Wins, s.Losses, s.TotalPnL, s.AveragePnL, s.WinRate, s.LargestWin,
		s.LargestLoss, string(dailyJSON), string(weeklyJSON), string(monthlyJSON),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (a *Aggregator) load(userID string) (*models.MetricSnapshot, error) {
	var (
		s                                  models.MetricSnapshot
		dailyJSON, weeklyJSON, monthlyJSON string
		updatedAt                          string
	)
	err := a.db.QueryRow(`
		SELECT id, user_id, metric_name, total_trades, wins, losses,
			total_pnl, average_pnl, win_rate, largest_win, largest_loss,
			daily_pnl, weekly_pnl, monthly_pnl, updated_at
		FROM metric_snapshots
		WHERE user_id = ? AND metric_name = ?`, userID, MetricName).Scan(
		&s.ID, &s.UserID, &s.MetricName, &s.TotalTrades, &s.Wins, &s.Losses,
		&s.TotalPnL, &s.AveragePnL, &s.WinRate, &s.LargestWin, &s.LargestLoss,
		&dailyJSON, &weeklyJSON, &monthlyJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return &models.MetricSnapshot{
			UserID:     userID,
			MetricName: MetricName,
			DailyPnL:   map[string]float64{},
			WeeklyPnL:  map[string]float64{},
			MonthlyPnL: map[string]float64{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading snapshot: %v", ErrAggregation, err)
	}

	if err := json.Unmarshal([]byte(dailyJSON), &s.DailyPnL); err != nil {
		return nil, fmt.Errorf("%w: daily_pnl payload: %v", ErrAggregation, err)
	}
	if err := json.Unmarshal([]byte(weeklyJSON), &s.WeeklyPnL); err != nil {
		return nil, fmt.Errorf("%w: weekly_pnl payload: %v", ErrAggregation, err)
	}
	if err := json.Unmarshal([]byte(monthlyJSON), &s.MonthlyPnL); err != nil {
		return nil, fmt.Errorf("%w: monthly_pnl payload: %v", ErrAggregation, err)
	}
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}

// computeSnapshot is the pure rollup over a trade set; now anchors the
// daily/weekly/monthly windows.
func computeSnapshot(trades []models.Trade, now time.Time) models.MetricSnapshot {
	s := models.MetricSnapshot{
		MetricName: MetricName,
		DailyPnL:   map[string]float64{},
		WeeklyPnL:  map[string]float64{},
		MonthlyPnL: map[string]float64{},
	}

	dailyCutoff := now.AddDate(0, 0, -dailyWindowDays)
	weeklyCutoff := weekStart(now).AddDate(0, 0, -7*(weeklyWindow-1))
	monthlyCutoff := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthlyWindow - 1), 0)

	for _, t := range trades {
		s.TotalTrades++
		s.TotalPnL += t.NetPnL
		switch {
		case t.NetPnL > 0:
			s.Wins++
			if t.NetPnL > s.LargestWin {
				s.LargestWin = t.NetPnL
			}
		case t.NetPnL < 0:
			s.Losses++
			if t.NetPnL < s.LargestLoss {
				s.LargestLoss = t.NetPnL
			}
		}

		day, err := time.Parse("2006-01-02", t.TradeDate)
		if err != nil {
			continue // bucketing skipped for unparseable dates, totals still count
		}
		if !day.Before(dailyCutoff) {
			s.DailyPnL[t.TradeDate] += t.NetPnL
		}
		if ws := weekStart(day); !ws.Before(weeklyCutoff) {
			s.WeeklyPnL[ws.Format("2006-01-02")] += t.NetPnL
		}
		if ms := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC); !ms.Before(monthlyCutoff) {
			s.MonthlyPnL[day.Format("2006-01")] += t.NetPnL
		}
	}

	s.TotalPnL = utils.RoundFloat(s.TotalPnL, 2)
	if s.TotalTrades > 0 {
		s.AveragePnL = utils.RoundFloat(s.TotalPnL/float64(s.TotalTrades), 2)
		s.WinRate = utils.RoundFloat(float64(s.Wins)/float64(s.TotalTrades)*100, 2)
	}
	for k, v := range s.DailyPnL {
		s.DailyPnL[k] = utils.RoundFloat(v, 2)
	}
	for k, v := range s.WeeklyPnL {
		s.WeeklyPnL[k] = utils.RoundFloat(v, 2)
	}
	for k, v := range s.MonthlyPnL {
		s.MonthlyPnL[k] = utils.RoundFloat(v, 2)
	}
	return s
}

// weekStart returns the ISO week start (Monday, UTC midnight) of t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}
