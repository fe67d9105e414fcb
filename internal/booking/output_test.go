package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelOutput(t *testing.T) {
	raw := "Harika! Kaç gece kalacaksınız?\n" +
		"check_in_date=2025-01-15\n" +
		"- oda_sayisi = 2\n" +
		"`yetiskin_sayisi`=3\n" +
		"favorite_color=blue\n"

	out := ParseModelOutput(raw)

	assert.Equal(t, "Harika! Kaç gece kalacaksınız?", out.Reply)
	assert.Equal(t, []Field{
		{Slot: SlotCheckIn, Value: "2025-01-15"},
		{Slot: SlotRooms, Value: "2"},
		{Slot: SlotAdults, Value: "3"},
	}, out.Fields)
}

func TestParseModelOutputCodeFence(t *testing.T) {
	raw := "```\nTeşekkürler!\ncocuk_yaslari=8,5\n```"

	out := ParseModelOutput(raw)

	assert.Equal(t, "Teşekkürler!", out.Reply)
	require.Len(t, out.Fields, 1)
	assert.Equal(t, SlotChildAges, out.Fields[0].Slot)
}

func TestParseModelOutputMalformed(t *testing.T) {
	for _, raw := range []string{"", "   \n\n", "=", "===\n=x"} {
		out := ParseModelOutput(raw)
		assert.Empty(t, out.Fields, raw)
	}
}

func TestMergeValidatesAndOrders(t *testing.T) {
	fields := []Field{
		{Slot: SlotChildAges, Value: "8,5"},
		{Slot: SlotChildren, Value: "2"},
		{Slot: SlotCheckOut, Value: "2025-01-10"},
		{Slot: SlotCheckIn, Value: "2025-01-15"},
		{Slot: SlotAdults, Value: "iki"},
		{Slot: SlotRooms, Value: "1"},
	}

	merged, accepted := Merge(State{}, fields)

	assert.Equal(t, "2025-01-15", merged.CheckIn)
	assert.Empty(t, merged.CheckOut, "check-out before check-in is dropped")
	assert.Nil(t, merged.Adults)
	assert.Equal(t, intPtr(1), merged.Rooms)
	assert.Equal(t, intPtr(2), merged.Children)
	assert.Equal(t, []int{8, 5}, merged.ChildAges)
	assert.Equal(t, []Slot{SlotCheckIn, SlotRooms, SlotChildren, SlotChildAges}, accepted)
}

func TestMergeNeverOverwrites(t *testing.T) {
	in := State{Rooms: intPtr(2)}

	merged, accepted := Merge(in, []Field{{Slot: SlotRooms, Value: "5"}})

	assert.Equal(t, intPtr(2), merged.Rooms)
	assert.Empty(t, accepted)
	assert.Equal(t, intPtr(2), in.Rooms)
}
