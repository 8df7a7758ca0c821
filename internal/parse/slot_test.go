package parse

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDay(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  string
		expectErr bool
	}{
		{name: "Canonical", raw: "2025-03-10", expected: "2025-03-10"},
		{name: "Padded", raw: "  2025-03-10 ", expected: "2025-03-10"},
		{name: "RFC3339", raw: "2025-03-10T00:00:00Z", expected: "2025-03-10"},
		{name: "RFC3339 with offset", raw: "2025-03-10T23:00:00+05:30", expected: "2025-03-10"},
		{name: "Local timestamp", raw: "2025-03-10T10:00", expected: "2025-03-10"},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Garbage", raw: "tomorrow", expectErr: true},
		{name: "Impossible day", raw: "2025-02-30", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			day, err := Day(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, day)
		})
	}
}

func TestSlot(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  string
		expectErr bool
	}{
		{name: "Canonical", raw: "10:00", expected: "10:00"},
		{name: "Single digit hour", raw: "9:00", expected: "09:00"},
		{name: "Afternoon 12h", raw: "2:00 PM", expected: "14:00"},
		{name: "Noon", raw: "12:00 pm", expected: "12:00"},
		{name: "Midnight 12h", raw: "12:00 AM", expected: "00:00"},
		{name: "Not on the hour", raw: "10:30", expectErr: true},
		{name: "Hour out of range", raw: "24:00", expectErr: true},
		{name: "12h hour out of range", raw: "13:00 PM", expectErr: true},
		{name: "Garbage", raw: "ten", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := Slot(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, slot)
		})
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)

	assert.Equal(t, "2025-03-10", Today(now, nil))
	assert.Equal(t, "2025-03-11", Today(now, tokyo))
}

func TestID(t *testing.T) {
	id := uuid.New()
	parsed, err := ID(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ID("64f1c2d3e4")
	assert.Error(t, err)
}
