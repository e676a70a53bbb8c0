// Package duration parses moderation duration tokens such as "30m", "2h", "1d", "permanent"
// and renders durations back as the largest whole unit.
package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iamwavecut/ngmod/internal/i18n"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day

	// Forever is the sentinel for permanent restrictions. Anything at or above it is permanent.
	Forever = 3650 * Day
)

type rule struct {
	pattern *regexp.Regexp
	unit    time.Duration
}

// Evaluated top to bottom; the first full-token match wins.
var rules = []rule{
	{regexp.MustCompile(`^(\d+)(?:w|wk|wks|week|weeks)$`), Week},
	{regexp.MustCompile(`^(\d+)(?:d|day|days)$`), Day},
	{regexp.MustCompile(`^(\d+)(?:h|hr|hrs|hour|hours)$`), time.Hour},
	{regexp.MustCompile(`^(\d+)(?:m|min|mins|minute|minutes)$`), time.Minute},
}

var permanentKeywords = []string{"permanent", "perm", "forever", "навсегда", "назавжди"}

type label struct {
	size      time.Duration
	one, many string
}

var labels = []label{
	{Day, "%d day", "%d days"},
	{time.Hour, "%d hour", "%d hours"},
	{time.Minute, "%d minute", "%d minutes"},
}

// Parse reads the first whitespace separated token of text. Compound tokens like "1d2h" are not recognized.
func Parse(text string) (time.Duration, bool) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return 0, false
	}
	token := fields[0]

	for _, keyword := range permanentKeywords {
		if token == keyword {
			return Forever, true
		}
	}

	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > math.MaxInt64/int64(r.unit) {
			return 0, false
		}
		return time.Duration(n) * r.unit, true
	}
	return 0, false
}

// ParseOr returns fallback when text is not recognized.
func ParseOr(text string, fallback time.Duration) time.Duration {
	if d, ok := Parse(text); ok {
		return d
	}
	return fallback
}

func IsForever(d time.Duration) bool {
	return d >= Forever
}

// Until resolves d against now; nil means the restriction never expires.
func Until(now time.Time, d time.Duration) *time.Time {
	if IsForever(d) {
		return nil
	}
	until := now.Add(d)
	return &until
}

// Format renders the biggest whole unit that fits, truncating. Permanent durations get a fixed label.
func Format(d time.Duration, lang string) string {
	if IsForever(d) {
		return i18n.Get("permanently", lang)
	}
	for _, l := range labels {
		if d >= l.size {
			return plural(int64(d/l.size), l.one, l.many, lang)
		}
	}
	return plural(int64(d/time.Second), "%d second", "%d seconds", lang)
}

func plural(n int64, one, many, lang string) string {
	if n == 1 {
		return i18n.Getf(one, lang, n)
	}
	return i18n.Getf(many, lang, n)
}
