package models

import "testing"

func TestApplyPrice_ShiftsCurrentIntoLast(t *testing.T) {
	e := CurrencyEntry{Code: "usd", Name: "US Dollar", LastPrice: Float(27.0), CurrentPrice: Float(27.0)}
	e.ApplyPrice(27.5)

	if *e.LastPrice != 27.0 {
		t.Fatalf("last: got %f", *e.LastPrice)
	}
	if *e.CurrentPrice != 27.5 {
		t.Fatalf("current: got %f", *e.CurrentPrice)
	}

	fresh := CurrencyEntry{Code: "eur"}
	fresh.ApplyPrice(44.1)
	if fresh.LastPrice != nil {
		t.Fatal("first observation should leave last price unset")
	}
}

func TestClone_DoesNotShareMemory(t *testing.T) {
	e := CurrencyEntry{Code: "usd", CurrentPrice: Float(41.2)}
	c := e.Clone()
	*c.CurrentPrice = 1

	if *e.CurrentPrice != 41.2 {
		t.Fatal("clone mutated the original")
	}
	if !e.Equal(e.Clone()) {
		t.Fatal("clone should be equal to original")
	}
}

func TestChange(t *testing.T) {
	tests := []struct {
		name    string
		last    *float64
		current *float64
		ok      bool
		dir     Direction
		pct     float64
	}{
		{"up", Float(40), Float(41), true, DirectionUp, 2.5},
		{"down", Float(40), Float(39), true, DirectionDown, -2.5},
		{"flat", Float(40), Float(40), true, DirectionFlat, 0},
		{"no last", nil, Float(40), false, "", 0},
		{"zero last", Float(0), Float(40), false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := CurrencyEntry{Code: "usd", LastPrice: tt.last, CurrentPrice: tt.current}
			ch, ok := e.Change()
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ch.Direction != tt.dir {
				t.Fatalf("direction: got %s, want %s", ch.Direction, tt.dir)
			}
			if ch.Percent != tt.pct {
				t.Fatalf("percent: got %f, want %f", ch.Percent, tt.pct)
			}
		})
	}
}
