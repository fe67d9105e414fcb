package booking

import (
	"sort"
	"strings"
)

// slotAliases maps every key the hosted model may emit to its slot.
var slotAliases = map[string]Slot{
	"check_in_date":  SlotCheckIn,
	"check_in":       SlotCheckIn,
	"checkin":        SlotCheckIn,
	"giris_tarihi":   SlotCheckIn,
	"giriş_tarihi":   SlotCheckIn,
	"check_out_date": SlotCheckOut,
	"check_out":      SlotCheckOut,
	"checkout":       SlotCheckOut,
	"cikis_tarihi":   SlotCheckOut,
	"çıkış_tarihi":   SlotCheckOut,

	"room_count":      SlotRooms,
	"rooms":           SlotRooms,
	"oda_sayisi":      SlotRooms,
	"oda_sayısı":      SlotRooms,
	"adult_count":     SlotAdults,
	"adults":          SlotAdults,
	"yetiskin_sayisi": SlotAdults,
	"yetişkin_sayısı": SlotAdults,
	"child_count":     SlotChildren,
	"children":        SlotChildren,
	"cocuk_sayisi":    SlotChildren,
	"çocuk_sayısı":    SlotChildren,
	"child_ages":      SlotChildAges,
	"childage":        SlotChildAges,
	"cocuk_yaslari":   SlotChildAges,
	"çocuk_yaşları":   SlotChildAges,
}

// Field is one recognized key=value pair from model output.
type Field struct {
	Slot  Slot
	Value string
}

// ModelOutput splits hosted-model output into the text shown to the user
// and the slot assignments it proposed.
type ModelOutput struct {
	Reply  string
	Fields []Field
}

// ParseModelOutput never fails. Lines containing "=" are treated as
// assignments and unknown keys are dropped; every other non-empty line
// belongs to the reply.
func ParseModelOutput(raw string) ModelOutput {
	var out ModelOutput
	var visible []string

	for _, line := range strings.Split(cleanCodeFences(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, isAssignment := strings.Cut(line, "=")
		if !isAssignment {
			visible = append(visible, line)
			continue
		}
		slot, ok := slotAliases[normalizeKey(key)]
		if !ok {
			continue
		}
		out.Fields = append(out.Fields, Field{Slot: slot, Value: strings.TrimSpace(value)})
	}

	out.Reply = strings.Join(visible, "\n")
	return out
}

// Merge applies fields to a copy of s, dates first, and reports which
// slots were accepted.
func Merge(s State, fields []Field) (State, []Slot) {
	next := s.Clone()
	ordered := append([]Field{}, fields...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return slotRank(ordered[i].Slot) < slotRank(ordered[j].Slot)
	})

	var accepted []Slot
	for _, f := range ordered {
		if next.Has(f.Slot) {
			continue
		}
		if next.Assign(f.Slot, f.Value) {
			accepted = append(accepted, f.Slot)
		}
	}
	return next, accepted
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.TrimLeft(key, "-*•> \t")
	key = strings.Trim(key, "`\"' ")
	return strings.ToLower(key)
}

func cleanCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	var kept []string
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
