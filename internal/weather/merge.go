package weather

import (
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// MaxRangeDays is the widest window the dashboard shows.
	MaxRangeDays = 7
	// DefaultRangeDays applies when no range was requested.
	DefaultRangeDays = 7

	hourlyTimeLayout = "2006-01-02T15:04"
	dateLayout       = "2006-01-02"
)

// SampleHours are the hours of day sampled for the hourly chart.
var SampleHours = [...]int{0, 6, 12, 18}

// ParseRange reads a range query value the way a browser parseInt does: the
// leading optionally signed integer counts and the rest is ignored, so "3days"
// is 3 and "2.5" is 2. Empty means the default; a value with no leading digits
// yields 0, which merges to empty series. Values above MaxRangeDays are
// clamped.
func ParseRange(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRangeDays
	}

	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Only overflow gets here; the sign decides which way to clamp.
		if s[0] == '-' {
			return 0
		}
		return MaxRangeDays
	}
	return ClampRange(n)
}

// ClampRange limits n to MaxRangeDays. Non-positive values are returned as-is
// so callers can tell "empty" apart.
func ClampRange(n int) int {
	if n > MaxRangeDays {
		return MaxRangeDays
	}
	return n
}

// Merger shapes raw series into the fixed daily/hourly arrays. "Today" is
// read from the clock in the payload's time zone, so output is stable within
// a calendar day.
type Merger struct {
	clock    clockwork.Clock
	fallback *time.Location
}

// NewMerger creates a Merger. fallback is the zone used when a payload does
// not name one; nil means time.Local.
func NewMerger(clock clockwork.Clock, fallback *time.Location) *Merger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if fallback == nil {
		fallback = time.Local
	}
	return &Merger{clock: clock, fallback: fallback}
}

// Merge builds the last rangeDays daily summaries and 4*rangeDays hourly
// samples ending today. A nil raw payload or missing blocks are treated as
// empty.
func (m *Merger) Merge(raw *Payload, rangeDays int) Merged {
	if rangeDays <= 0 {
		return Merged{Daily: []DailySummaryPoint{}, Hourly: []HourlySamplePoint{}}
	}
	rangeDays = ClampRange(rangeDays)

	var (
		hourly *RawHourlySeries
		daily  *RawDailySeries
	)
	if raw != nil {
		hourly, daily = raw.Hourly, raw.Daily
	}

	loc := raw.Location(m.fallback)
	return Merged{
		Daily:  summarizeDaily(daily, rangeDays),
		Hourly: m.sampleHourly(hourly, rangeDays, loc),
	}
}

func summarizeDaily(daily *RawDailySeries, rangeDays int) []DailySummaryPoint {
	if daily == nil {
		return []DailySummaryPoint{}
	}

	start := len(daily.Time) - rangeDays
	if start < 0 {
		start = 0
	}

	out := make([]DailySummaryPoint, 0, len(daily.Time)-start)
	for i := start; i < len(daily.Time); i++ {
		out = append(out, DailySummaryPoint{
			Date:      daily.Time[i],
			TempMax:   valueAt(daily.Temperature2mMax, i),
			TempMin:   valueAt(daily.Temperature2mMin, i),
			RainTotal: valueAt(daily.PrecipitationSum, i),
		})
	}
	return out
}

func (m *Merger) sampleHourly(hourly *RawHourlySeries, rangeDays int, loc *time.Location) []HourlySamplePoint {
	index, parsed := indexHourly(hourly, loc)

	now := m.clock.Now().In(loc)
	out := make([]HourlySamplePoint, 0, rangeDays*len(SampleHours))

	for offset := rangeDays - 1; offset >= 0; offset-- {
		// time.Date normalizes day underflow across month boundaries.
		y, mo, d := now.Year(), now.Month(), now.Day()-offset
		for _, h := range SampleHours {
			slot := time.Date(y, mo, d, h, 0, 0, 0, loc)
			i, ok := index[slotKey(slot)]
			if !ok {
				out = append(out, HourlySamplePoint{Time: slot})
				continue
			}
			out = append(out, HourlySamplePoint{
				Time:        parsed[i],
				Temperature: valueAt(hourly.Temperature2m, i),
			})
		}
	}
	return out
}

// indexHourly maps each (date, hour) to the first source index carrying it.
// Unparseable timestamps are skipped.
func indexHourly(hourly *RawHourlySeries, loc *time.Location) (map[string]int, []time.Time) {
	if hourly == nil {
		return map[string]int{}, nil
	}

	index := make(map[string]int, len(hourly.Time))
	parsed := make([]time.Time, len(hourly.Time))
	for i, raw := range hourly.Time {
		ts, err := parseLocal(raw, loc)
		if err != nil {
			continue
		}
		parsed[i] = ts
		k := slotKey(ts)
		if _, seen := index[k]; !seen {
			index[k] = i
		}
	}
	return index, parsed
}

func parseLocal(raw string, loc *time.Location) (time.Time, error) {
	if ts, err := time.ParseInLocation(hourlyTimeLayout, raw, loc); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.In(loc), nil
}

func slotKey(t time.Time) string {
	return t.Format("2006-01-02T15")
}

func valueAt[T any](xs []*T, i int) *T {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}
