package epoch

import "testing"

func TestIndex(t *testing.T) {
	cfg := Config{Length: 100_000}
	cases := []struct {
		height uint64
		want   uint64
	}{
		{0, 0},
		{99_999, 0},
		{100_000, 1},
		{1_000_000, 10},
		{1_099_999, 10},
		{1_100_000, 11},
	}
	for _, tc := range cases {
		if got := cfg.Index(tc.height); got != tc.want {
			t.Fatalf("Index(%d) = %d, want %d", tc.height, got, tc.want)
		}
	}
	if cfg.StartHeight(11) != 1_100_000 {
		t.Fatalf("unexpected start height %d", cfg.StartHeight(11))
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected zero length to be rejected")
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
