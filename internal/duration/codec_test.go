package duration

import (
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   time.Duration
		wantOK bool
	}{
		{name: "minutes short", input: "30m", want: 30 * time.Minute, wantOK: true},
		{name: "minutes long", input: "5minutes", want: 5 * time.Minute, wantOK: true},
		{name: "hours", input: "2h", want: 2 * time.Hour, wantOK: true},
		{name: "hours upper", input: "2H", want: 2 * time.Hour, wantOK: true},
		{name: "hours word", input: "3hour", want: 3 * time.Hour, wantOK: true},
		{name: "days", input: "1d", want: Day, wantOK: true},
		{name: "weeks", input: "2week", want: 2 * Week, wantOK: true},
		{name: "surrounding whitespace", input: "  12h  ", want: 12 * time.Hour, wantOK: true},
		{name: "only first token", input: "1d spam", want: Day, wantOK: true},
		{name: "zero is parseable", input: "0m", want: 0, wantOK: true},
		{name: "permanent", input: "permanent", want: Forever, wantOK: true},
		{name: "forever", input: "FOREVER", want: Forever, wantOK: true},
		{name: "perm", input: "perm", want: Forever, wantOK: true},
		{name: "localized forever", input: "Навсегда", want: Forever, wantOK: true},
		{name: "compound", input: "1d2h"},
		{name: "negative", input: "-1h"},
		{name: "missing unit", input: "10"},
		{name: "missing number", input: "h"},
		{name: "space before unit", input: "10 m"},
		{name: "unknown unit", input: "10y"},
		{name: "empty", input: "   "},
		{name: "overflow", input: "99999999999999999999w"},
		{name: "unit overflow", input: "9223372036854775807w"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok=%v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q)=%v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input time.Duration
		lang  string
		want  string
	}{
		{input: 30 * time.Minute, lang: "en", want: "30 minutes"},
		{input: time.Minute, lang: "en", want: "1 minute"},
		{input: 90 * time.Minute, lang: "en", want: "1 hour"},
		{input: 47 * time.Hour, lang: "en", want: "1 day"},
		{input: 2 * Week, lang: "en", want: "14 days"},
		{input: 59 * time.Second, lang: "en", want: "59 seconds"},
		{input: 0, lang: "en", want: "0 seconds"},
		{input: Forever, lang: "en", want: "permanently"},
		{input: Forever + Week, lang: "en", want: "permanently"},
		{input: Forever, lang: "ru", want: "навсегда"},
		{input: 2 * time.Hour, lang: "ru", want: "2 ч."},
		{input: Day, lang: "uk", want: "1 день"},
	}

	for _, tt := range tests {
		if got := Format(tt.input, tt.lang); got != tt.want {
			t.Fatalf("Format(%v, %s)=%q, want %q", tt.input, tt.lang, got, tt.want)
		}
	}
}

func TestFormatParseKeepsUnitAndValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		value string
		unit  string
	}{
		{token: "30m", value: "30", unit: "minute"},
		{token: "45min", value: "45", unit: "minute"},
		{token: "2h", value: "2", unit: "hour"},
		{token: "23hours", value: "23", unit: "hour"},
		{token: "3d", value: "3", unit: "day"},
	}

	for _, tt := range tests {
		d, ok := Parse(tt.token)
		if !ok {
			t.Fatalf("Parse(%q) not recognized", tt.token)
		}
		got := Format(d, "en")
		parts := strings.SplitN(got, " ", 2)
		if len(parts) != 2 || parts[0] != tt.value || !strings.HasPrefix(parts[1], tt.unit) {
			t.Fatalf("Format(Parse(%q))=%q, want %s %s(s)", tt.token, got, tt.value, tt.unit)
		}
	}
}

func TestParseOrAndUntil(t *testing.T) {
	t.Parallel()

	if got := ParseOr("garbage", time.Hour); got != time.Hour {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := ParseOr("15m", time.Hour); got != 15*time.Minute {
		t.Fatalf("expected parsed value, got %v", got)
	}

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	if until := Until(now, Forever); until != nil {
		t.Fatalf("forever must resolve to no expiry, got %v", until)
	}
	until := Until(now, 30*time.Minute)
	if until == nil || !until.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("unexpected expiry: %v", until)
	}
}
