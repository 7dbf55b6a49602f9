package normalize

import (
	"errors"
	"testing"
	"time"
)

// refNow is a Wednesday: 2024-05-15 14:30 local.
var refNow = time.Date(2024, 5, 15, 14, 30, 0, 0, time.Local)

func TestResolvePeriodEveryCanonicalToken(t *testing.T) {
	tokens := []string{
		PeriodToday, PeriodYesterday, PeriodThisWeek,
		PeriodLastWeek, PeriodThisMonth, PeriodLastMonth,
	}
	for _, tok := range tokens {
		w, err := ResolvePeriod(tok, refNow)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tok, err)
		}
		if !w.End.After(w.Start) {
			t.Errorf("%s: end %v not after start %v", tok, w.End, w.Start)
		}
	}
}

func TestResolvePeriodWindows(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	}
	cases := []struct {
		token      string
		start, end time.Time
	}{
		{PeriodToday, day(2024, 5, 15), day(2024, 5, 16)},
		{PeriodYesterday, day(2024, 5, 14), day(2024, 5, 15)},
		// 2024-05-13 is the Monday of refNow's week.
		{PeriodThisWeek, day(2024, 5, 13), day(2024, 5, 20)},
		{PeriodLastWeek, day(2024, 5, 6), day(2024, 5, 13)},
		{PeriodThisMonth, day(2024, 5, 1), day(2024, 6, 1)},
		{PeriodLastMonth, day(2024, 4, 1), day(2024, 5, 1)},
	}
	for _, c := range cases {
		w, err := ResolvePeriod(c.token, refNow)
		if err != nil {
			t.Fatalf("%s: %v", c.token, err)
		}
		if !w.Start.Equal(c.start) || !w.End.Equal(c.end) {
			t.Errorf("%s: got [%v, %v), want [%v, %v)", c.token, w.Start, w.End, c.start, c.end)
		}
	}
}

func TestAdjacentPeriodsDisjointAndContiguous(t *testing.T) {
	pairs := [][2]string{
		{PeriodLastMonth, PeriodThisMonth},
		{PeriodLastWeek, PeriodThisWeek},
		{PeriodYesterday, PeriodToday},
	}
	for _, p := range pairs {
		prev, err := ResolvePeriod(p[0], refNow)
		if err != nil {
			t.Fatalf("%s: %v", p[0], err)
		}
		cur, err := ResolvePeriod(p[1], refNow)
		if err != nil {
			t.Fatalf("%s: %v", p[1], err)
		}
		if !prev.End.Equal(cur.Start) {
			t.Errorf("%s/%s: windows not contiguous: %v vs %v", p[0], p[1], prev.End, cur.Start)
		}
		if prev.Contains(cur.Start) {
			t.Errorf("%s/%s: windows overlap at boundary", p[0], p[1])
		}
	}
}

func TestResolvePeriodRejects(t *testing.T) {
	for _, tok := range []string{"", "   ", "always", "sempre", "ALL", "fortnight", "q3"} {
		if _, err := ResolvePeriod(tok, refNow); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("%q: want ErrInvalidPeriod, got %v", tok, err)
		}
	}
}

func TestResolvePeriodSynonyms(t *testing.T) {
	cases := map[string]string{
		"hoje":           PeriodToday,
		"Este Mes":       PeriodThisMonth,
		"mes-passado":    PeriodLastMonth,
		"ultimo_mes":     PeriodLastMonth,
		"THIS MONTH":     PeriodThisMonth,
		"previous week":  PeriodLastWeek,
		"semana_passada": PeriodLastWeek,
		// accented Portuguese forms arrive verbatim from users
		"mês passado": PeriodLastMonth,
		"mês_passado": PeriodLastMonth,
		"este mês":    PeriodThisMonth,
		"Último Mês":  PeriodLastMonth,
	}
	for in, canon := range cases {
		want, _ := ResolvePeriod(canon, refNow)
		got, err := ResolvePeriod(in, refNow)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
			t.Errorf("%q: resolved to [%v, %v), want same as %s", in, got.Start, got.End, canon)
		}
	}
}

func TestCanonicalizeStripsAccents(t *testing.T) {
	cases := map[string]string{
		"Mês Passado": PeriodLastMonth,
		"este mês":    PeriodThisMonth,
		"aniversário": "aniversario", // unknown tokens still get folded
	}
	for in, want := range cases {
		if got := Canonicalize(in); got != want {
			t.Errorf("Canonicalize(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMondayAnchorAcrossWeekdays(t *testing.T) {
	// Sweep one full week; this_week must always start on Monday.
	for d := 13; d <= 19; d++ {
		now := time.Date(2024, 5, d, 10, 0, 0, 0, time.Local)
		w, err := ResolvePeriod(PeriodThisWeek, now)
		if err != nil {
			t.Fatalf("day %d: %v", d, err)
		}
		if w.Start.Weekday() != time.Monday {
			t.Errorf("day %d: week starts on %v", d, w.Start.Weekday())
		}
		if !w.Contains(now) {
			t.Errorf("day %d: now not inside its own week", d)
		}
	}
}
