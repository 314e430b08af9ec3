// Package dateparse normalizes the heterogeneous date text found in vendor
// lifecycle bulletins into canonical calendar dates.
package dateparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/lifecycle-cli/internal/model"
)

// Exact layouts tried by Normalize, in order. The vendor abbreviated form
// (31-Jan-2015) must come before the generic forms: fed to a generic parser
// first it reads as year-month-day-like garbage.
var layouts = []string{
	"2-Jan-2006",
	"2006-01-02",
	"1/2/2006",
	"2.1.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
}

// Month-only layouts resolve to the last day of the month.
var monthLayouts = []string{
	"January 2006",
	"Jan 2006",
}

// Fiscal quarters map to the last day of the calendar-aligned quarter:
// Q1 -> Mar 31, Q2 -> Jun 30, Q3 -> Sep 30, Q4 -> Dec 31.
var quarterEndMonth = map[int]time.Month{
	1: time.March,
	2: time.June,
	3: time.September,
	4: time.December,
}

// Matches Q3FY15, Q3 FY2015, Q3 2015.
var quarterRe = regexp.MustCompile(`(?i)\bQ([1-4])\s*(?:FY\s*)?(\d{2}|\d{4})\b`)

// Normalize parses date text into a canonical calendar date. It returns
// false for unparseable input and never panics.
func Normalize(text string) (model.Date, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return model.Date{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), true
		}
	}

	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return lastDayOfMonth(t.Year(), t.Month()), true
		}
	}

	if m := quarterRe.FindStringSubmatch(s); m != nil && len(m[0]) == len(s) {
		return quarterEnd(m[1], m[2]), true
	}

	return model.Date{}, false
}

func lastDayOfMonth(year int, month time.Month) model.Date {
	// Day zero of the following month.
	return model.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
}

func quarterEnd(quarterDigit, yearDigits string) model.Date {
	q, _ := strconv.Atoi(quarterDigit)
	year, _ := strconv.Atoi(yearDigits)
	if year < 100 {
		year += 2000
	}
	return lastDayOfMonth(year, quarterEndMonth[q])
}

// Match is one date occurrence located inside a larger text.
type Match struct {
	Date   model.Date
	Offset int // byte offset of the match start
	Text   string
}

type pattern struct {
	re    *regexp.Regexp
	parse func(s string) (model.Date, bool)
}

func exact(layout string) func(string) (model.Date, bool) {
	return func(s string) (model.Date, bool) {
		t, err := time.Parse(layout, s)
		if err != nil {
			return model.Date{}, false
		}
		return model.DateOf(t), true
	}
}

// Scan patterns in priority order; spans claimed by an earlier pattern are
// not re-matched by a later one (keeps "31-Jan-2015" from also matching as
// the month-only "Jan 2015").
var patterns = []pattern{
	{regexp.MustCompile(`\b\d{1,2}-[A-Za-z]{3}-\d{4}\b`), exact("2-Jan-2006")},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), exact("2006-01-02")},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), exact("1/2/2006")},
	{regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`), exact("2.1.2006")},
	{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4}\b`), exact("January 2, 2006")},
	{regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) \d{1,2}, \d{4}\b`), exact("Jan 2, 2006")},
	{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{4}\b`), func(s string) (model.Date, bool) {
		t, err := time.Parse("January 2006", s)
		if err != nil {
			return model.Date{}, false
		}
		return lastDayOfMonth(t.Year(), t.Month()), true
	}},
	{quarterRe, func(s string) (model.Date, bool) {
		m := quarterRe.FindStringSubmatch(s)
		if m == nil {
			return model.Date{}, false
		}
		return quarterEnd(m[1], m[2]), true
	}},
}

// FindAll locates every parseable date occurrence in text, in position order.
func FindAll(text string) []Match {
	var matches []Match
	var claimed [][2]int

	overlaps := func(start, end int) bool {
		for _, c := range claimed {
			if start < c[1] && end > c[0] {
				return true
			}
		}
		return false
	}

	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			d, ok := p.parse(text[loc[0]:loc[1]])
			if !ok {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			matches = append(matches, Match{Date: d, Offset: loc[0], Text: text[loc[0]:loc[1]]})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Offset < matches[j].Offset })
	return matches
}
