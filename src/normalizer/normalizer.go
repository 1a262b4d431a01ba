// Package normalizer maps arbitrarily-keyed broker export rows onto the
// canonical trade fields. Each canonical field has an ordered list of
// accepted source keys, tried in priority order, so every supported platform
// is described by data here instead of per-platform fallback chains.
package normalizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode selects how unparseable required fields are handled.
type Mode int

const (
	// ModeStrict rejects the row when a required field cannot be parsed.
	ModeStrict Mode = iota
	// ModeLenient applies documented fallbacks (price 0, entry time now,
	// quantity 1) and reports what happened as warnings.
	ModeLenient
)

// ParseMode maps a config/request string onto a Mode. Anything that is not
// "lenient" resolves to strict.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "lenient") {
		return ModeLenient
	}
	return ModeStrict
}

func (m Mode) String() string {
	if m == ModeLenient {
		return "lenient"
	}
	return "strict"
}

// ErrFieldParse marks rows whose required fields could not be normalized.
var ErrFieldParse = errors.New("field parse failure")

// CanonicalFields is the normalized view of one raw row.
type CanonicalFields struct {
	Symbol         string
	Side           string // "long" or "short"
	Quantity       int
	EntryPrice     float64
	ExitPrice      float64
	EntryTime      time.Time
	ExitTime       time.Time
	TradeDate      string // YYYY-MM-DD
	Fees           float64
	ReportedPnL    float64 // platform-reported pnl, informational only
	HasReportedPnL bool
	Platform       string
}

// FieldWarning records a single field that needed a fallback or could not be
// parsed. Whether it fails the row depends on the Mode.
type FieldWarning struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Accepted source keys per canonical field, in priority order. These cover
// the column vocabularies of the supported platforms (tradovate, topstepx,
// tradingview exports, generic journal CSVs).
var (
	symbolKeys   = []string{"symbol", "Symbol", "contract_name", "ContractName", "contract", "Contract", "instrument", "Instrument", "ticker", "Ticker"}
	sideKeys     = []string{"side", "Side", "direction", "Direction", "action", "Action", "buy_sell", "BuySell", "trade_type", "type"}
	qtyKeys      = []string{"quantity", "Quantity", "qty", "Qty", "size", "Size", "contracts", "Contracts", "volume", "Volume"}
	entryKeys    = []string{"entry_price", "entryPrice", "EntryPrice", "buy_price", "buyPrice", "BuyPrice", "open_price", "price_in", "entry", "Entry"}
	exitKeys     = []string{"exit_price", "exitPrice", "ExitPrice", "sell_price", "sellPrice", "SellPrice", "close_price", "price_out", "exit", "Exit"}
	entryTsKeys  = []string{"entry_time", "entryTime", "EntryTime", "open_time", "opened_at", "openedAt", "bought_timestamp", "boughtTimestamp", "entry_date", "open_date"}
	exitTsKeys   = []string{"exit_time", "exitTime", "ExitTime", "close_time", "closed_at", "closedAt", "sold_timestamp", "soldTimestamp", "exit_date", "close_date"}
	dateKeys     = []string{"trade_date", "tradeDate", "TradeDate", "trade_day", "date", "Date"}
	feesKeys     = []string{"fees", "Fees", "commission", "Commission", "commissions", "Commissions", "total_fees", "totalFees"}
	pnlKeys      = []string{"pnl", "PnL", "Pnl", "net_pnl", "netPnL", "profit_loss", "profitLoss", "ProfitLoss", "realized_pnl", "realizedPnL", "gain_loss"}
	platformKeys = []string{"platform", "Platform", "source", "Source", "source_platform", "broker", "Broker", "exchange"}
)

// Accepted timestamp layouts, in priority order; the first successful parse
// wins.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Normalize maps a raw row to canonical fields. The returned warnings list
// every fallback taken; err is non-nil only when the mode requires the row to
// be rejected.
func Normalize(raw map[string]any, mode Mode) (CanonicalFields, []FieldWarning, error) {
	var (
		fields   CanonicalFields
		warnings []FieldWarning
		failed   []string
	)

	warn := func(field, value, message string) {
		warnings = append(warnings, FieldWarning{Field: field, Value: value, Message: message})
	}

	// Symbol is required in both modes; a trade without an instrument is not
	// recoverable by any documented fallback.
	if v, _, ok := firstPresent(raw, symbolKeys); ok {
		fields.Symbol = strings.ToUpper(strings.TrimSpace(stringValue(v)))
	}
	if fields.Symbol == "" {
		warn("symbol", "", "no recognized symbol key present")
		failed = append(failed, "symbol")
	}

	// Side defaults to long when absent or unrecognized.
	if v, _, ok := firstPresent(raw, sideKeys); ok {
		fields.Side = NormalizeSide(stringValue(v))
	} else {
		fields.Side = "long"
	}

	// Quantity.
	if v, key, ok := firstPresent(raw, qtyKeys); ok {
		q, err := parseNumeric(v)
		switch {
		case err != nil:
			warn(key, stringValue(v), "unparseable quantity")
			if mode == ModeStrict {
				failed = append(failed, "quantity")
			} else {
				fields.Quantity = 1
			}
		case q <= 0:
			// A nonpositive quantity is never defaulted: it describes a
			// trade that cannot exist rather than a missing value.
			warn(key, stringValue(v), "quantity must be positive")
			failed = append(failed, "quantity")
		default:
			fields.Quantity = int(q + 0.5)
		}
	} else {
		warn("quantity", "", "no recognized quantity key present")
		if mode == ModeStrict {
			failed = append(failed, "quantity")
		} else {
			fields.Quantity = 1
		}
	}

	fields.EntryPrice = normalizePrice(raw, entryKeys, "entry_price", mode, warn, &failed)
	fields.ExitPrice = normalizePrice(raw, exitKeys, "exit_price", mode, warn, &failed)

	// Entry time.
	if v, key, ok := firstPresent(raw, entryTsKeys); ok {
		t, err := parseTimeValue(v)
		if err != nil {
			warn(key, stringValue(v), "unparseable entry time")
			if mode == ModeStrict {
				failed = append(failed, "entry_time")
			} else {
				fields.EntryTime = time.Now().UTC()
			}
		} else {
			fields.EntryTime = t
		}
	} else {
		warn("entry_time", "", "no recognized entry time key present")
		if mode == ModeStrict {
			failed = append(failed, "entry_time")
		} else {
			fields.EntryTime = time.Now().UTC()
		}
	}

	// Exit time falls back to the entry time.
	if v, key, ok := firstPresent(raw, exitTsKeys); ok {
		t, err := parseTimeValue(v)
		if err != nil {
			warn(key, stringValue(v), "unparseable exit time")
			if mode == ModeStrict {
				failed = append(failed, "exit_time")
			} else {
				fields.ExitTime = fields.EntryTime
			}
		} else {
			fields.ExitTime = t
		}
	} else {
		fields.ExitTime = fields.EntryTime
	}

	// Fees are optional in both modes; an unparseable value degrades to 0.
	if v, key, ok := firstPresent(raw, feesKeys); ok {
		f, err := parseNumeric(v)
		if err != nil {
			warn(key, stringValue(v), "unparseable fees, using 0")
		} else {
			fields.Fees = f
		}
	}

	// Platform-reported pnl is retained for reconciliation logging only; the
	// importer always computes its own.
	if v, key, ok := firstPresent(raw, pnlKeys); ok {
		p, err := parseNumeric(v)
		if err != nil {
			warn(key, stringValue(v), "unparseable reported pnl")
		} else {
			fields.ReportedPnL = p
			fields.HasReportedPnL = true
		}
	}

	fields.Platform = ExtractPlatform(raw)

	// Trade date: explicit date key wins, otherwise derived from entry time.
	if v, key, ok := firstPresent(raw, dateKeys); ok {
		if t, err := parseTimeValue(v); err == nil {
			fields.TradeDate = t.Format("2006-01-02")
		} else {
			warn(key, stringValue(v), "unparseable trade date, deriving from entry time")
		}
	}
	if fields.TradeDate == "" && !fields.EntryTime.IsZero() {
		fields.TradeDate = fields.EntryTime.Format("2006-01-02")
	}

	if len(failed) > 0 {
		return fields, warnings, fmt.Errorf("%w: %s", ErrFieldParse, strings.Join(failed, ", "))
	}
	return fields, warnings, nil
}

func normalizePrice(raw map[string]any, keys []string, canonical string, mode Mode, warn func(field, value, message string), failed *[]string) float64 {
	v, key, ok := firstPresent(raw, keys)
	if !ok {
		warn(canonical, "", "no recognized key present")
		if mode == ModeStrict {
			*failed = append(*failed, canonical)
		}
		return 0
	}
	p, err := parseNumeric(v)
	if err != nil {
		warn(key, stringValue(v), "unparseable price")
		if mode == ModeStrict {
			*failed = append(*failed, canonical)
		}
		return 0
	}
	return p
}

// ExtractPlatform returns the lowercased source platform of a row, or ""
// when none of the platform keys are present. The batch importer uses it to
// resolve the owning account before any row is normalized.
func ExtractPlatform(raw map[string]any) string {
	if v, _, ok := firstPresent(raw, platformKeys); ok {
		return strings.ToLower(strings.TrimSpace(stringValue(v)))
	}
	return ""
}

// NormalizeSide maps free-form side tokens onto long/short. Tokens carrying
// "buy" or "long" are long, "sell" or "short" are short, anything else
// defaults to long.
func NormalizeSide(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "sell"), strings.Contains(lower, "short"):
		return "short"
	case strings.Contains(lower, "buy"), strings.Contains(lower, "long"):
		return "long"
	default:
		return "long"
	}
}

// firstPresent walks the key priority list and returns the first value that
// is present and non-empty, along with the key that matched.
func firstPresent(raw map[string]any, keys []string) (any, string, bool) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, key, true
	}
	return nil, "", false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// parseNumeric accepts native JSON numbers and the messy string variants
// brokers export: currency symbols, thousands separators, and accounting
// style parenthesized negatives.
func parseNumeric(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		cleaned := CleanNumericString(t)
		if cleaned == "" {
			return 0, fmt.Errorf("empty numeric string %q", t)
		}
		return strconv.ParseFloat(cleaned, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// CleanNumericString strips currency symbols, thousands separators and
// whitespace, and converts "(123.45)" into "-123.45".
func CleanNumericString(s string) string {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	replacer := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "", "+", "")
	s = replacer.Replace(s)
	s = strings.TrimSpace(s)
	if negative && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s
}

// parseTimeValue tries the layout priority list for strings and accepts
// numeric epochs (seconds or milliseconds) that some platforms export.
func parseTimeValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		trimmed := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("no layout matched %q", t)
	case float64:
		return epochToTime(int64(t)), nil
	case int64:
		return epochToTime(t), nil
	case int:
		return epochToTime(int64(t)), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time type %T", v)
	}
}

func epochToTime(n int64) time.Time {
	// Values past the year 5000 in seconds are treated as milliseconds.
	if n > 1e11 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
