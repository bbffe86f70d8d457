package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusApproved))
	assert.True(t, CanTransition(StatusPending, StatusRejected))
	assert.True(t, CanTransition(StatusApproved, StatusSynced))

	// pending cannot jump straight to synced
	assert.False(t, CanTransition(StatusPending, StatusSynced))
	// rejected and synced are terminal
	assert.False(t, CanTransition(StatusRejected, StatusApproved))
	assert.False(t, CanTransition(StatusRejected, StatusPending))
	assert.False(t, CanTransition(StatusSynced, StatusApproved))
	assert.False(t, CanTransition(StatusSynced, StatusPending))
	// approved cannot fall back
	assert.False(t, CanTransition(StatusApproved, StatusPending))
	assert.False(t, CanTransition(StatusApproved, StatusRejected))
}

func TestNeedsAttention(t *testing.T) {
	score := 12.5
	assert.True(t, (&ScoreImportRow{Status: StatusPending, ConvertedScore: nil}).NeedsAttention())
	assert.False(t, (&ScoreImportRow{Status: StatusPending, ConvertedScore: &score}).NeedsAttention())
	assert.False(t, (&ScoreImportRow{Status: StatusRejected, ConvertedScore: nil}).NeedsAttention())
}
