package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateLifecycle(t *testing.T) {
	t.Parallel()

	s, err := Idle().Start(1)
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, s.Phase)
	assert.Equal(t, 1, s.Page)

	s = s.WithTotalPages(3)

	s, err = s.PageDone(18, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Page)
	assert.Equal(t, 1, s.LastPage)
	assert.Equal(t, 18, s.Inserted)
	assert.Equal(t, 2, s.Errored)

	s, err = s.PageDone(20, 0)
	require.NoError(t, err)
	assert.Equal(t, 38, s.Inserted)

	s, err = s.PageDone(5, 0)
	require.NoError(t, err)

	s, err = s.Complete()
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, s.Phase)
	assert.True(t, s.Done())
}

func TestStateStartWhileRunning(t *testing.T) {
	t.Parallel()

	s, err := Idle().Start(1)
	require.NoError(t, err)

	_, err = s.Start(2)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStateStartInvalidPage(t *testing.T) {
	t.Parallel()

	_, err := Idle().Start(0)
	assert.Error(t, err)
}

func TestStateFailKeepsResumePoint(t *testing.T) {
	t.Parallel()

	s, err := Idle().Start(4)
	require.NoError(t, err)

	s, err = s.Fail(errors.New("source down"))
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, 4, s.LastPage)
	assert.Equal(t, "source down", s.Error)
}

func TestStateRestartAfterFailure(t *testing.T) {
	t.Parallel()

	s, err := Idle().Start(2)
	require.NoError(t, err)
	s, err = s.Fail(errors.New("boom"))
	require.NoError(t, err)

	// Resuming from the recorded page starts a clean run.
	s, err = s.Start(s.LastPage)
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, s.Phase)
	assert.Equal(t, 2, s.Page)
	assert.Zero(t, s.Inserted)
	assert.Empty(t, s.Error)
}

func TestStateInvalidTransitions(t *testing.T) {
	t.Parallel()

	idle := Idle()

	_, err := idle.Complete()
	assert.Error(t, err)

	_, err = idle.PageDone(1, 0)
	assert.Error(t, err)

	_, err = idle.Fail(errors.New("x"))
	assert.Error(t, err)

	_, err = idle.Stop()
	assert.Error(t, err)
}

func TestStateTransitionsArePure(t *testing.T) {
	t.Parallel()

	s, err := Idle().Start(1)
	require.NoError(t, err)

	before := s
	_, err = s.PageDone(3, 1)
	require.NoError(t, err)
	assert.Equal(t, before, s, "transition must not mutate the receiver")
}
