// Package pricing holds the static tick-economics reference table. Every
// computed trade depends on these values, so the table is exhaustively
// covered by table-driven tests.
package pricing

import (
	"sort"
	"strings"
	"sync"
)

// InstrumentSpec describes the tick economics of one instrument family.
type InstrumentSpec struct {
	TickSize   float64 // smallest price increment
	TickValue  float64 // currency value of one tick for one contract
	Commission float64 // round-trip fee per contract
}

// specsByPrefix maps a futures root prefix to its spec. Matching against a
// full contract symbol (e.g. "NQZ5") is prefix-based and case-insensitive.
var specsByPrefix = map[string]InstrumentSpec{
	// E-mini index futures
	"ES":  {TickSize: 0.25, TickValue: 12.50, Commission: 4.00},
	"NQ":  {TickSize: 0.25, TickValue: 5.00, Commission: 3.00},
	"YM":  {TickSize: 1.00, TickValue: 5.00, Commission: 4.00},
	"RTY": {TickSize: 0.10, TickValue: 5.00, Commission: 4.00},

	// Micro E-mini index futures
	"MES": {TickSize: 0.25, TickValue: 1.25, Commission: 1.00},
	"MNQ": {TickSize: 0.25, TickValue: 0.50, Commission: 1.00},
	"MYM": {TickSize: 1.00, TickValue: 0.50, Commission: 1.00},
	"M2K": {TickSize: 0.10, TickValue: 0.50, Commission: 1.00},

	// Metals
	"GC":  {TickSize: 0.10, TickValue: 10.00, Commission: 4.50},
	"MGC": {TickSize: 0.10, TickValue: 1.00, Commission: 1.50},
	"SI":  {TickSize: 0.005, TickValue: 25.00, Commission: 4.50},
	"SIL": {TickSize: 0.005, TickValue: 5.00, Commission: 1.50},
	"HG":  {TickSize: 0.0005, TickValue: 12.50, Commission: 4.50},

	// Energies
	"CL":  {TickSize: 0.01, TickValue: 10.00, Commission: 4.50},
	"MCL": {TickSize: 0.01, TickValue: 1.00, Commission: 1.50},
	"NG":  {TickSize: 0.001, TickValue: 10.00, Commission: 4.50},
	"QM":  {TickSize: 0.025, TickValue: 12.50, Commission: 4.00},

	// Currency futures
	"6E":  {TickSize: 0.00005, TickValue: 6.25, Commission: 4.00},
	"6B":  {TickSize: 0.0001, TickValue: 6.25, Commission: 4.00},
	"6J":  {TickSize: 0.0000005, TickValue: 6.25, Commission: 4.00},
	"6A":  {TickSize: 0.0001, TickValue: 10.00, Commission: 4.00},
	"M6E": {TickSize: 0.0001, TickValue: 1.25, Commission: 1.50},
}

// prefixesByLength is built once so that lookups prefer the longest
// registered prefix ("SIL" before "SI", "M6E" before "6E").
var prefixesByLength = func() []string {
	prefixes := make([]string, 0, len(specsByPrefix))
	for p := range specsByPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return prefixes
}()

var (
	defaultCommissionMu sync.RWMutex
	defaultCommission   = 4.00
)

// SetDefaultCommission overrides the per-contract round-trip fee applied to
// instruments missing from the table. Called once at startup from config.
func SetDefaultCommission(c float64) {
	defaultCommissionMu.Lock()
	defer defaultCommissionMu.Unlock()
	if c >= 0 {
		defaultCommission = c
	}
}

// DefaultSpec is what unknown symbols resolve to: a 1:1 point-to-currency
// multiplier, so gross PnL degrades to priceDiff * quantity, plus the flat
// default commission.
func DefaultSpec() InstrumentSpec {
	defaultCommissionMu.RLock()
	defer defaultCommissionMu.RUnlock()
	return InstrumentSpec{TickSize: 1.00, TickValue: 1.00, Commission: defaultCommission}
}

// Lookup resolves a contract symbol to its instrument spec. Matching is
// case-insensitive and prefix-based; unknown symbols get DefaultSpec.
func Lookup(symbol string) InstrumentSpec {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	for _, prefix := range prefixesByLength {
		if strings.HasPrefix(sym, prefix) {
			return specsByPrefix[prefix]
		}
	}
	return DefaultSpec()
}
