package pricing

import "testing"

func TestLookupKnownFamilies(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		want   InstrumentSpec
	}{
		// E-mini
		{"ES front month", "ESZ5", InstrumentSpec{0.25, 12.50, 4.00}},
		{"ES bare root", "ES", InstrumentSpec{0.25, 12.50, 4.00}},
		{"NQ contract", "NQZ5", InstrumentSpec{0.25, 5.00, 3.00}},
		{"NQ lowercase", "nqh6", InstrumentSpec{0.25, 5.00, 3.00}},
		{"YM contract", "YMM5", InstrumentSpec{1.00, 5.00, 4.00}},
		{"RTY contract", "RTYU5", InstrumentSpec{0.10, 5.00, 4.00}},

		// Micro E-mini must not fall through to the full-size root
		{"MES not ES", "MESZ5", InstrumentSpec{0.25, 1.25, 1.00}},
		{"MNQ not NQ", "MNQZ5", InstrumentSpec{0.25, 0.50, 1.00}},
		{"MYM not YM", "MYMH6", InstrumentSpec{1.00, 0.50, 1.00}},
		{"M2K contract", "M2KZ5", InstrumentSpec{0.10, 0.50, 1.00}},

		// Metals; SIL must win over the shorter SI prefix
		{"gold", "GCZ5", InstrumentSpec{0.10, 10.00, 4.50}},
		{"micro gold", "MGCZ5", InstrumentSpec{0.10, 1.00, 1.50}},
		{"silver", "SIZ5", InstrumentSpec{0.005, 25.00, 4.50}},
		{"micro silver", "SILZ5", InstrumentSpec{0.005, 5.00, 1.50}},
		{"copper", "HGZ5", InstrumentSpec{0.0005, 12.50, 4.50}},

		// Energies
		{"crude", "CLF6", InstrumentSpec{0.01, 10.00, 4.50}},
		{"micro crude", "MCLF6", InstrumentSpec{0.01, 1.00, 1.50}},
		{"natgas", "NGF6", InstrumentSpec{0.001, 10.00, 4.50}},
		{"e-mini crude", "QMF6", InstrumentSpec{0.025, 12.50, 4.00}},

		// Currencies; M6E must win over 6E
		{"euro", "6EZ5", InstrumentSpec{0.00005, 6.25, 4.00}},
		{"pound", "6BZ5", InstrumentSpec{0.0001, 6.25, 4.00}},
		{"yen", "6JZ5", InstrumentSpec{0.0000005, 6.25, 4.00}},
		{"aussie", "6AZ5", InstrumentSpec{0.0001, 10.00, 4.00}},
		{"micro euro", "M6EZ5", InstrumentSpec{0.0001, 1.25, 1.50}},

		// Whitespace tolerated
		{"padded symbol", "  NQZ5  ", InstrumentSpec{0.25, 5.00, 3.00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lookup(tt.symbol)
			if got != tt.want {
				t.Errorf("Lookup(%q) = %+v, want %+v", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestLookupUnknownSymbolGetsDefault(t *testing.T) {
	for _, sym := range []string{"XYZ123", "", "ZB", "BTC-PERP"} {
		got := Lookup(sym)
		if got != DefaultSpec() {
			t.Errorf("Lookup(%q) = %+v, want default %+v", sym, got, DefaultSpec())
		}
	}
	// The default must be a 1:1 point multiplier so unknown instruments
	// degrade to priceDiff * quantity.
	def := DefaultSpec()
	if def.TickSize != def.TickValue {
		t.Errorf("default spec multiplier = %v/%v, want 1:1", def.TickValue, def.TickSize)
	}
	if def.TickSize == 0 {
		t.Error("default spec must have a non-zero tick size")
	}
}

func TestSetDefaultCommission(t *testing.T) {
	orig := DefaultSpec().Commission
	defer SetDefaultCommission(orig)

	SetDefaultCommission(2.50)
	if got := DefaultSpec().Commission; got != 2.50 {
		t.Errorf("DefaultSpec().Commission = %v, want 2.50", got)
	}

	// Negative values are ignored.
	SetDefaultCommission(-1)
	if got := DefaultSpec().Commission; got != 2.50 {
		t.Errorf("DefaultSpec().Commission after negative set = %v, want 2.50", got)
	}
}
