package booking

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var monthNames = map[string]time.Month{
	"ocak": time.January, "şubat": time.February, "subat": time.February,
	"mart": time.March, "nisan": time.April, "mayıs": time.May, "mayis": time.May,
	"haziran": time.June, "temmuz": time.July, "ağustos": time.August, "agustos": time.August,
	"eylül": time.September, "eylul": time.September, "ekim": time.October,
	"kasım": time.November, "kasim": time.November, "aralık": time.December, "aralik": time.December,

	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dmyDateRe  = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})[/.](\d{4})\b`)
	textDateRe = buildTextDateRe()
)

// buildTextDateRe matches "15 Ocak 2025" style dates. Longer names come
// first so "mayıs" is never shadowed by "may".
func buildTextDateRe() *regexp.Regexp {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, regexp.QuoteMeta(name))
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return regexp.MustCompile(`(?i)\b(\d{1,2})\.?\s+(` + strings.Join(names, "|") + `)[a-zçğıöşü']*\s*,?\s+(\d{4})\b`)
}

// dateSpan is one date-shaped substring. ok is false when the text looked
// like a date but does not name a real calendar day.
type dateSpan struct {
	start, end int
	iso        string
	ok         bool
}

// findDates returns every date-shaped span in text, ordered by position,
// with overlapping matches removed.
func findDates(text string) []dateSpan {
	var spans []dateSpan

	for _, m := range isoDateRe.FindAllStringSubmatchIndex(text, -1) {
		y, mo, d := atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), atoi(text[m[6]:m[7]])
		iso, ok := toISO(y, mo, d)
		spans = append(spans, dateSpan{start: m[0], end: m[1], iso: iso, ok: ok})
	}
	for _, m := range dmyDateRe.FindAllStringSubmatchIndex(text, -1) {
		d, mo, y := atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), atoi(text[m[6]:m[7]])
		iso, ok := toISO(y, mo, d)
		spans = append(spans, dateSpan{start: m[0], end: m[1], iso: iso, ok: ok})
	}
	for _, m := range textDateRe.FindAllStringSubmatchIndex(text, -1) {
		month, found := lookupMonth(text[m[4]:m[5]])
		d, y := atoi(text[m[2]:m[3]]), atoi(text[m[6]:m[7]])
		iso, ok := toISO(y, int(month), d)
		spans = append(spans, dateSpan{start: m[0], end: m[1], iso: iso, ok: ok && found})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	out := spans[:0]
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		out = append(out, s)
		lastEnd = s.end
	}
	return out
}

// ParseDate normalizes the first date found in s to YYYY-MM-DD.
func ParseDate(s string) (string, bool) {
	spans := findDates(s)
	if len(spans) == 0 || !spans[0].ok {
		return "", false
	}
	return spans[0].iso, true
}

func lookupMonth(name string) (time.Month, bool) {
	if m, ok := monthNames[strings.ToLower(name)]; ok {
		return m, true
	}
	m, ok := monthNames[strings.ToLowerSpecial(unicode.TurkishCase, name)]
	return m, ok
}

func toISO(y, m, d int) (string, bool) {
	if y < 2000 || y > 2100 || m < 1 || m > 12 || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(isoLayout), true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

var intRe = regexp.MustCompile(`\d+`)

func intsIn(s string) []int {
	var out []int
	for _, m := range intRe.FindAllString(s, -1) {
		if n := atoi(m); n >= 0 {
			out = append(out, n)
		}
	}
	return out
}
