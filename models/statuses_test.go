package models_test

import (
	"testing"

	"agentcrm/models"

	"github.com/stretchr/testify/require"
)

func TestTransitionAllowed(t *testing.T) {
	require.True(t, models.TransitionAllowed(models.StatusDraft, models.StatusPending))
	require.True(t, models.TransitionAllowed(models.StatusInReview, models.StatusInfoRequested))
	require.True(t, models.TransitionAllowed(models.StatusInfoRequested, models.StatusInReview))
	require.True(t, models.TransitionAllowed(models.StatusApproved, models.StatusWon))
	require.True(t, models.TransitionAllowed(models.StatusApproved, models.StatusLost))
	// Отклоненную заявку можно вернуть в работу
	require.True(t, models.TransitionAllowed(models.StatusRejected, models.StatusPending))

	require.False(t, models.TransitionAllowed(models.StatusDraft, models.StatusWon))
	require.False(t, models.TransitionAllowed(models.StatusDraft, models.StatusApproved))
	require.False(t, models.TransitionAllowed(models.StatusInReview, models.StatusDraft))

	// Терминальные статусы не имеют исходящих переходов
	require.False(t, models.TransitionAllowed(models.StatusWon, models.StatusPending))
	require.False(t, models.TransitionAllowed(models.StatusLost, models.StatusPending))

	require.False(t, models.TransitionAllowed("nonexistent", models.StatusPending))
}

func TestIsTerminalStatus(t *testing.T) {
	require.True(t, models.IsTerminalStatus(models.StatusWon))
	require.True(t, models.IsTerminalStatus(models.StatusLost))
	require.False(t, models.IsTerminalStatus(models.StatusApproved))
	require.False(t, models.IsTerminalStatus(models.StatusRejected))
	require.False(t, models.IsTerminalStatus(models.StatusDraft))
}
