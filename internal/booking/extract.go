package booking

import (
	"regexp"
	"sort"
	"strings"
)

var (
	checkOutRe = regexp.MustCompile(`(?i)(çıkış|çikiş|cikis|check[- ]?out|ayrılış|ayrilis|dönüş|donus|departure|kadar|until)`)
	checkInRe  = regexp.MustCompile(`(?i)(giriş|giris|check[- ]?in|varış|varis|arrival|itibaren)`)

	roomsRe    = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:adet\s+)?(?:oda|rooms?)`)
	adultsRe   = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:yetişkin|yetiskin|kişi|kisi|büyük|buyuk|adults?|persons?|people|guests?)`)
	childrenRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:çocuk|cocuk|children|child|kids?)`)

	noChildrenRe = regexp.MustCompile(`(?i)(?:çocuk|cocuk)(?:umuz|um|lar)?\s+yok|çocuksuz|cocuksuz|\bno\s+(?:kids|children|child)\b|\bwithout\s+(?:kids|children|child)\b`)

	ageListRe   = regexp.MustCompile(`(?i)\b\d{1,2}(?:\s*,\s*\d{1,2}|\s+(?:ve|and)\s+\d{1,2})+\b`)
	ageSuffixRe = regexp.MustCompile(`(?i)^\s*(?:yaş|yas|years?|y/o)`)
	ageSingleRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:yaş|yas|years?\s+old|y/o)`)
)

// Extract runs the deterministic pass over message and returns the updated
// state. The input state is never mutated and only empty slots are filled.
// Dates are handled first, then keyword-anchored counts, then child ages,
// and finally bare numbers fill the remaining counts in room, adult, child
// order.
func Extract(state State, message string) State {
	s := state.Clone()
	text := message

	text = extractDates(&s, text)
	text = extractAnchoredCounts(&s, text)

	ages, text := findAgeCandidates(&s, text)

	leftover := fillBareCounts(&s, text)

	if ages == nil && s.needsChildAges() && !s.Has(SlotChildAges) && len(leftover) == *s.Children {
		ages = leftover
	}
	if ages != nil {
		s.SetChildAges(ages)
	}
	return s
}

type dateKeyword struct {
	start, end int
	slot       Slot
}

// extractDates places each date by the check-in or check-out keyword that
// belongs to it. A message either puts keywords before its dates
// ("giriş 15 Ocak, çıkış 20 Ocak") or after them ("15 Ocak giriş 20 Ocak
// çıkış"); the first keyword decides which, and a keyword is only looked
// for between a date and its neighbouring dates, within the same clause.
func extractDates(s *State, text string) string {
	spans := findDates(text)
	keywords := findDateKeywords(text)
	before := len(keywords) > 0 && len(spans) > 0 && keywords[0].start < spans[0].start

	original := text
	for i, span := range spans {
		text = blank(text, span.start, span.end)
		if !span.ok {
			continue
		}

		target, found := keywordSlot(original, spans, i, keywords, before)
		if !found {
			if s.Has(SlotCheckIn) {
				target = SlotCheckOut
			} else {
				target = SlotCheckIn
			}
		}
		s.SetDate(target, span.iso)
	}
	return text
}

func findDateKeywords(text string) []dateKeyword {
	var out []dateKeyword
	for _, m := range checkOutRe.FindAllStringIndex(text, -1) {
		out = append(out, dateKeyword{start: m[0], end: m[1], slot: SlotCheckOut})
	}
	for _, m := range checkInRe.FindAllStringIndex(text, -1) {
		out = append(out, dateKeyword{start: m[0], end: m[1], slot: SlotCheckIn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// keywordSlot finds the keyword owned by spans[i]: the nearest one on the
// message's keyword side, else the nearest one on the other side.
func keywordSlot(text string, spans []dateSpan, i int, keywords []dateKeyword, before bool) (Slot, bool) {
	span := spans[i]
	lo, hi := clauseBounds(text, span.start, span.end)
	if i > 0 && spans[i-1].end > lo {
		lo = spans[i-1].end
	}
	if i+1 < len(spans) && spans[i+1].start < hi {
		hi = spans[i+1].start
	}

	var prev, next *dateKeyword
	for k := range keywords {
		kw := &keywords[k]
		if kw.start >= lo && kw.end <= span.start {
			prev = kw
		}
		if next == nil && kw.start >= span.end && kw.end <= hi {
			next = kw
		}
	}

	first, second := next, prev
	if before {
		first, second = prev, next
	}
	if first != nil {
		return first.slot, true
	}
	if second != nil {
		return second.slot, true
	}
	return "", false
}

func extractAnchoredCounts(s *State, text string) string {
	anchored := []struct {
		slot Slot
		re   *regexp.Regexp
	}{
		{SlotRooms, roomsRe},
		{SlotAdults, adultsRe},
		{SlotChildren, childrenRe},
	}
	for _, a := range anchored {
		for _, m := range a.re.FindAllStringSubmatchIndex(text, -1) {
			if !s.Has(a.slot) {
				s.SetCount(a.slot, atoi(text[m[2]:m[3]]))
			}
			text = blank(text, m[0], m[1])
		}
	}
	if noChildrenRe.MatchString(text) && !s.Has(SlotChildren) {
		s.SetCount(SlotChildren, 0)
	}
	return text
}

// findAgeCandidates looks for a list of small numbers or numbers followed by
// "yaş". Spans anchored by "yaş" are always consumed. A plain list only
// counts as ages while ages are wanted and rooms and adults are known,
// otherwise it is left in place for the bare-number pass.
func findAgeCandidates(s *State, text string) ([]int, string) {
	wantAges := !s.Has(SlotChildAges) && !(s.Children != nil && *s.Children == 0)

	var listAges, singleAges []int
	for _, m := range ageListRe.FindAllStringIndex(text, -1) {
		anchored := ageSuffixRe.MatchString(text[m[1]:])
		if !anchored && !(wantAges && s.Has(SlotRooms) && s.Has(SlotAdults)) {
			continue
		}
		if listAges == nil {
			listAges = intsIn(text[m[0]:m[1]])
		}
		text = blank(text, m[0], m[1])
	}
	for _, m := range ageSingleRe.FindAllStringSubmatchIndex(text, -1) {
		singleAges = append(singleAges, atoi(text[m[2]:m[3]]))
		text = blank(text, m[0], m[1])
	}

	if !wantAges {
		return nil, text
	}
	if listAges != nil {
		return listAges, text
	}
	return singleAges, text
}

// fillBareCounts assigns unanchored integers to missing count slots and
// returns the numbers it did not consume.
func fillBareCounts(s *State, text string) []int {
	numbers := intsIn(text)
	var leftover []int
	for _, n := range numbers {
		placed := false
		for _, slot := range []Slot{SlotRooms, SlotAdults, SlotChildren} {
			if s.Has(slot) {
				continue
			}
			placed = s.SetCount(slot, n)
			break
		}
		if !placed {
			leftover = append(leftover, n)
		}
	}
	return leftover
}

// clauseBounds returns the byte range of the comma, semicolon or newline
// delimited clause containing text[start:end].
func clauseBounds(text string, start, end int) (int, int) {
	from := strings.LastIndexAny(text[:start], ",;\n")
	if from < 0 {
		from = 0
	} else {
		from++
	}
	to := strings.IndexAny(text[end:], ",;\n")
	if to < 0 {
		to = len(text)
	} else {
		to += end
	}
	return from, to
}

// blank overwrites text[start:end] with spaces, keeping byte offsets stable.
func blank(text string, start, end int) string {
	return text[:start] + strings.Repeat(" ", end-start) + text[end:]
}
