package rundown

import "testing"

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"2:00", 120000},
		{"0:45", 45000},
		{"1:02:03", 3723000},
		{"90", 90000},
		{" 3:30 ", 210000},
		{"", 0},
		{"abc", 0},
		{"2:xx", 0},
		{"1:2:3:4", 0},
		{"-1:00", 0},
		{"9223372036854775807", 0},
		{"153722867280912930:0", 0},
		{"9223372036854775:0:0", 0},
		{"9223372036854775", 9223372036854775000},
	}
	for _, tc := range cases {
		if got := ParseDuration(tc.in); got != tc.want {
			t.Errorf("ParseDuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(125000); got != "2:05" {
		t.Errorf("got %q, want %q", got, "2:05")
	}
	if got := FormatDuration(3723000); got != "1:02:03" {
		t.Errorf("got %q, want %q", got, "1:02:03")
	}
}

func TestSplitEvenly(t *testing.T) {
	parts := splitEvenly(10000, 3)
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	var sum int64
	for _, p := range parts {
		sum += p
		if p < 3333 || p > 3334 {
			t.Errorf("uneven part %d", p)
		}
	}
	if sum != 10000 {
		t.Errorf("parts sum to %d, want 10000", sum)
	}
	if splitEvenly(100, 0) != nil {
		t.Error("expected nil for zero parts")
	}
}
