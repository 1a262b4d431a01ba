package normalizer

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeFieldPriority(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want CanonicalFields
	}{
		{
			name: "tradovate style keys",
			raw: map[string]any{
				"symbol":     "NQZ5",
				"side":       "Buy",
				"qty":        "10",
				"buyPrice":   "24970.75",
				"sellPrice":  "24971.25",
				"boughtTimestamp": "2025-08-01T09:30:00Z",
				"soldTimestamp":   "2025-08-01T09:45:00Z",
				"platform":   "Tradovate",
			},
			want: CanonicalFields{
				Symbol:     "NQZ5",
				Side:       "long",
				Quantity:   10,
				EntryPrice: 24970.75,
				ExitPrice:  24971.25,
				EntryTime:  time.Date(2025, 8, 1, 9, 30, 0, 0, time.UTC),
				ExitTime:   time.Date(2025, 8, 1, 9, 45, 0, 0, time.UTC),
				TradeDate:  "2025-08-01",
				Platform:   "tradovate",
			},
		},
		{
			name: "topstepx style keys",
			raw: map[string]any{
				"ContractName": "ESZ5",
				"Direction":    "SELL",
				"Size":         float64(2),
				"EntryPrice":   float64(6512.25),
				"ExitPrice":    float64(6510.00),
				"EntryTime":    "2025-08-04 10:15:00",
				"ExitTime":     "2025-08-04 11:02:30",
				"Source":       "TopstepX",
			},
			want: CanonicalFields{
				Symbol:     "ESZ5",
				Side:       "short",
				Quantity:   2,
				EntryPrice: 6512.25,
				ExitPrice:  6510.00,
				EntryTime:  time.Date(2025, 8, 4, 10, 15, 0, 0, time.UTC),
				ExitTime:   time.Date(2025, 8, 4, 11, 2, 30, 0, time.UTC),
				TradeDate:  "2025-08-04",
				Platform:   "topstepx",
			},
		},
		{
			name: "US date format with explicit trade date",
			raw: map[string]any{
				"contract":   "GCZ5",
				"action":     "long",
				"contracts":  "1",
				"open_price": "$3,350.10",
				"close_price": "$3,351.20",
				"open_time":  "08/05/2025 14:30",
				"trade_date": "08/05/2025",
			},
			want: CanonicalFields{
				Symbol:     "GCZ5",
				Side:       "long",
				Quantity:   1,
				EntryPrice: 3350.10,
				ExitPrice:  3351.20,
				EntryTime:  time.Date(2025, 8, 5, 14, 30, 0, 0, time.UTC),
				ExitTime:   time.Date(2025, 8, 5, 14, 30, 0, 0, time.UTC),
				TradeDate:  "2025-08-05",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings, err := Normalize(tt.raw, ModeStrict)
			if err != nil {
				t.Fatalf("Normalize returned error: %v (warnings %v)", err, warnings)
			}
			if got.Symbol != tt.want.Symbol || got.Side != tt.want.Side || got.Quantity != tt.want.Quantity {
				t.Errorf("identity fields = %q/%q/%d, want %q/%q/%d",
					got.Symbol, got.Side, got.Quantity, tt.want.Symbol, tt.want.Side, tt.want.Quantity)
			}
			if got.EntryPrice != tt.want.EntryPrice || got.ExitPrice != tt.want.ExitPrice {
				t.Errorf("prices = %v/%v, want %v/%v", got.EntryPrice, got.ExitPrice, tt.want.EntryPrice, tt.want.ExitPrice)
			}
			if !got.EntryTime.Equal(tt.want.EntryTime) || !got.ExitTime.Equal(tt.want.ExitTime) {
				t.Errorf("times = %v/%v, want %v/%v", got.EntryTime, got.ExitTime, tt.want.EntryTime, tt.want.ExitTime)
			}
			if got.TradeDate != tt.want.TradeDate {
				t.Errorf("trade date = %q, want %q", got.TradeDate, tt.want.TradeDate)
			}
			if got.Platform != tt.want.Platform {
				t.Errorf("platform = %q, want %q", got.Platform, tt.want.Platform)
			}
		})
	}
}

func TestNormalizeSide(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"buy", "long"},
		{"BUY", "long"},
		{"Bought", "long"},
		{"long", "long"},
		{"Long Entry", "long"},
		{"sell", "short"},
		{"SELL", "short"},
		{"Sold", "short"},
		{"short", "short"},
		{"Short Entry", "short"},
		{"hold", "long"},
		{"", "long"},
	}
	for _, tt := range tests {
		if got := NormalizeSide(tt.in); got != tt.want {
			t.Errorf("NormalizeSide(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanNumericString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.5", "1234.5"},
		{"$1,234.50", "1234.50"},
		{"€2,500.10", "2500.10"},
		{"(123.45)", "-123.45"},
		{"($1,000.00)", "-1000.00"},
		{"-42", "-42"},
		{"+42", "42"},
		{"  $5.25  ", "5.25"},
	}
	for _, tt := range tests {
		if got := CleanNumericString(tt.in); got != tt.want {
			t.Errorf("CleanNumericString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeParenthesizedNegatives(t *testing.T) {
	raw := map[string]any{
		"symbol":      "NQZ5",
		"qty":         1,
		"entry_price": "24970.75",
		"exit_price":  "24960.75",
		"entry_time":  "2025-08-01T09:30:00Z",
		"pnl":         "($70.00)",
	}
	got, _, err := Normalize(raw, ModeStrict)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !got.HasReportedPnL || got.ReportedPnL != -70.00 {
		t.Errorf("reported pnl = %v (has=%v), want -70.00", got.ReportedPnL, got.HasReportedPnL)
	}
}

func TestNormalizeStrictRejectsUnparseableRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing symbol", map[string]any{"qty": 1, "entry_price": 1.0, "exit_price": 2.0, "entry_time": "2025-08-01"}},
		{"missing quantity", map[string]any{"symbol": "NQ", "entry_price": 1.0, "exit_price": 2.0, "entry_time": "2025-08-01"}},
		{"garbage entry price", map[string]any{"symbol": "NQ", "qty": 1, "entry_price": "n/a", "exit_price": 2.0, "entry_time": "2025-08-01"}},
		{"garbage entry time", map[string]any{"symbol": "NQ", "qty": 1, "entry_price": 1.0, "exit_price": 2.0, "entry_time": "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, warnings, err := Normalize(tt.raw, ModeStrict)
			if !errors.Is(err, ErrFieldParse) {
				t.Fatalf("err = %v, want ErrFieldParse", err)
			}
			if len(warnings) == 0 {
				t.Error("expected at least one field warning")
			}
		})
	}
}

func TestNormalizeLenientAppliesFallbacks(t *testing.T) {
	before := time.Now().UTC()
	raw := map[string]any{
		"symbol":      "NQ",
		"entry_price": "n/a",
		"exit_price":  "2.0",
		"entry_time":  "not a date",
	}
	got, warnings, err := Normalize(raw, ModeLenient)
	if err != nil {
		t.Fatalf("lenient mode must not reject the row: %v", err)
	}
	if got.Quantity != 1 {
		t.Errorf("quantity fallback = %d, want 1", got.Quantity)
	}
	if got.EntryPrice != 0 {
		t.Errorf("entry price fallback = %v, want 0", got.EntryPrice)
	}
	if got.EntryTime.Before(before) {
		t.Errorf("entry time fallback %v predates test start %v", got.EntryTime, before)
	}
	if len(warnings) < 3 {
		t.Errorf("warnings = %v, want one per fallback", warnings)
	}
}

func TestNormalizeNonpositiveQuantityRejectedInBothModes(t *testing.T) {
	raw := map[string]any{
		"symbol":      "NQ",
		"qty":         float64(0),
		"entry_price": 1.0,
		"exit_price":  2.0,
		"entry_time":  "2025-08-01",
	}
	for _, mode := range []Mode{ModeStrict, ModeLenient} {
		if _, _, err := Normalize(raw, mode); !errors.Is(err, ErrFieldParse) {
			t.Errorf("mode %v: err = %v, want ErrFieldParse", mode, err)
		}
	}
}

func TestNormalizeEpochTimestamps(t *testing.T) {
	want := time.Date(2025, 8, 1, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		v    any
	}{
		{"epoch seconds", float64(want.Unix())},
		{"epoch milliseconds", float64(want.UnixMilli())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{
				"symbol":      "NQ",
				"qty":         1,
				"entry_price": 1.0,
				"exit_price":  2.0,
				"entry_time":  tt.v,
			}
			got, _, err := Normalize(raw, ModeStrict)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !got.EntryTime.Equal(want) {
				t.Errorf("entry time = %v, want %v", got.EntryTime, want)
			}
		})
	}
}

func TestExtractPlatform(t *testing.T) {
	tests := []struct {
		raw  map[string]any
		want string
	}{
		{map[string]any{"platform": "Tradovate"}, "tradovate"},
		{map[string]any{"Source": "TopstepX"}, "topstepx"},
		{map[string]any{"broker": " NinjaTrader "}, "ninjatrader"},
		{map[string]any{"symbol": "NQ"}, ""},
	}
	for _, tt := range tests {
		if got := ExtractPlatform(tt.raw); got != tt.want {
			t.Errorf("ExtractPlatform(%v) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
