package booking

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Slot names a single piece of reservation information.
type Slot string

const (
	SlotCheckIn   Slot = "check_in_date"
	SlotCheckOut  Slot = "check_out_date"
	SlotRooms     Slot = "room_count"
	SlotAdults    Slot = "adult_count"
	SlotChildren  Slot = "child_count"
	SlotChildAges Slot = "child_ages"
)

// RequiredSlots lists every slot in the order the dialog asks for them.
// SlotChildAges is only required once child_count > 0.
var RequiredSlots = []Slot{
	SlotCheckIn,
	SlotCheckOut,
	SlotRooms,
	SlotAdults,
	SlotChildren,
	SlotChildAges,
}

const (
	isoLayout = "2006-01-02"

	maxRooms    = 10
	maxAdults   = 20
	maxChildren = 10
	maxChildAge = 17
)

// State is the booking information collected so far. Unset fields are
// zero/nil; every set field has passed validation.
type State struct {
	CheckIn   string `json:"check_in_date,omitempty"`
	CheckOut  string `json:"check_out_date,omitempty"`
	Rooms     *int   `json:"room_count,omitempty"`
	Adults    *int   `json:"adult_count,omitempty"`
	Children  *int   `json:"child_count,omitempty"`
	ChildAges []int  `json:"child_ages,omitempty"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s State) Clone() State {
	out := State{CheckIn: s.CheckIn, CheckOut: s.CheckOut}
	out.Rooms = cloneInt(s.Rooms)
	out.Adults = cloneInt(s.Adults)
	out.Children = cloneInt(s.Children)
	if s.ChildAges != nil {
		out.ChildAges = append([]int{}, s.ChildAges...)
	}
	return out
}

// Has reports whether slot holds a value.
func (s State) Has(slot Slot) bool {
	switch slot {
	case SlotCheckIn:
		return s.CheckIn != ""
	case SlotCheckOut:
		return s.CheckOut != ""
	case SlotRooms:
		return s.Rooms != nil
	case SlotAdults:
		return s.Adults != nil
	case SlotChildren:
		return s.Children != nil
	case SlotChildAges:
		return s.ChildAges != nil
	}
	return false
}

// needsChildAges is true once a positive child count is known.
func (s State) needsChildAges() bool {
	return s.Children != nil && *s.Children > 0
}

// Missing returns the required slots that are still empty, in ask order.
func (s State) Missing() []Slot {
	var missing []Slot
	for _, slot := range RequiredSlots {
		if slot == SlotChildAges && !s.needsChildAges() {
			continue
		}
		if !s.Has(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Complete reports whether nothing is missing.
func (s State) Complete() bool {
	return len(s.Missing()) == 0
}

// IsEmpty reports whether no slot has been filled yet.
func (s State) IsEmpty() bool {
	for _, slot := range RequiredSlots {
		if s.Has(slot) {
			return false
		}
	}
	return true
}

// String renders the state as compact JSON for prompts and logs.
func (s State) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// SetDate stores a canonical ISO date in a date slot. Check-out must fall
// after check-in; a date equal to the one already stored is ignored.
func (s *State) SetDate(slot Slot, iso string) bool {
	if slot != SlotCheckIn && slot != SlotCheckOut {
		return false
	}
	if _, err := time.Parse(isoLayout, iso); err != nil {
		return false
	}
	if s.Has(slot) {
		return false
	}
	switch slot {
	case SlotCheckIn:
		if s.CheckOut != "" && iso >= s.CheckOut {
			return false
		}
		s.CheckIn = iso
	case SlotCheckOut:
		if s.CheckIn != "" && iso <= s.CheckIn {
			return false
		}
		s.CheckOut = iso
	}
	return true
}

// SetCount stores a validated count in an empty count slot.
func (s *State) SetCount(slot Slot, n int) bool {
	if s.Has(slot) {
		return false
	}
	switch slot {
	case SlotRooms:
		if n < 1 || n > maxRooms {
			return false
		}
		s.Rooms = &n
	case SlotAdults:
		if n < 1 || n > maxAdults {
			return false
		}
		s.Adults = &n
	case SlotChildren:
		if n < 0 || n > maxChildren {
			return false
		}
		if s.ChildAges != nil && len(s.ChildAges) != n {
			return false
		}
		s.Children = &n
	default:
		return false
	}
	return true
}

// SetChildAges stores the children's ages. An unknown child count is
// inferred from the number of ages; a known one must match it.
func (s *State) SetChildAges(ages []int) bool {
	if s.Has(SlotChildAges) || len(ages) == 0 || len(ages) > maxChildren {
		return false
	}
	for _, a := range ages {
		if a < 0 || a > maxChildAge {
			return false
		}
	}
	if s.Children != nil && *s.Children != len(ages) {
		return false
	}
	if s.Children == nil {
		n := len(ages)
		s.Children = &n
	}
	s.ChildAges = append([]int{}, ages...)
	return true
}

// Assign coerces a raw textual value into slot. Values that do not parse or
// validate are dropped and Assign returns false.
func (s *State) Assign(slot Slot, raw string) bool {
	raw = strings.Trim(strings.TrimSpace(raw), "`\"'[]().")
	if raw == "" {
		return false
	}
	switch slot {
	case SlotCheckIn, SlotCheckOut:
		iso, ok := ParseDate(raw)
		if !ok {
			return false
		}
		return s.SetDate(slot, iso)
	case SlotRooms, SlotAdults, SlotChildren:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return false
		}
		return s.SetCount(slot, n)
	case SlotChildAges:
		ages := intsIn(raw)
		if len(ages) == 0 {
			return false
		}
		return s.SetChildAges(ages)
	}
	return false
}

// slotRank orders slots so dates merge before counts and counts before ages.
func slotRank(slot Slot) int {
	for i, s := range RequiredSlots {
		if s == slot {
			return i
		}
	}
	return len(RequiredSlots)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intPtr(v int) *int {
	return &v
}
