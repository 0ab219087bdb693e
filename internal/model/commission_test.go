package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommissionSplitSumsToGross(t *testing.T) {
	cs := CommissionSettings{AdminPct: 10, OrganizerPct: 90}

	admin, organizer := cs.Split(100000)
	assert.Equal(t, int64(10000), admin)
	assert.Equal(t, int64(90000), organizer)

	// Rounding never loses a cent: the organizer share absorbs the
	// remainder.
	admin, organizer = cs.Split(99999)
	assert.Equal(t, int64(9999), admin)
	assert.Equal(t, int64(90000), organizer)
	assert.Equal(t, int64(99999), admin+organizer)
}

func TestCommissionSplitEdges(t *testing.T) {
	admin, organizer := CommissionSettings{AdminPct: 0, OrganizerPct: 100}.Split(5000)
	assert.Equal(t, int64(0), admin)
	assert.Equal(t, int64(5000), organizer)

	admin, organizer = CommissionSettings{AdminPct: 100, OrganizerPct: 0}.Split(5000)
	assert.Equal(t, int64(5000), admin)
	assert.Equal(t, int64(0), organizer)

	admin, organizer = CommissionSettings{AdminPct: 25, OrganizerPct: 75}.Split(0)
	assert.Equal(t, int64(0), admin)
	assert.Equal(t, int64(0), organizer)
}
