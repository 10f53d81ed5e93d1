package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tycoon-sim/internal/state"
)

func TestControls(t *testing.T) {
	sim := newTestSim(t)
	rec := steelMill(1, 0, 0, 0, 0)
	rec.Staff = &state.Staff{Headcount: 10, Salary: 300000}
	rec.Research = &state.Research{ProductID: pChip, InnovationPoints: 120, Progress: 15}
	sim.Store.PutFacility(rec)

	_, err := sim.SetUtilization(1, 40)
	require.NoError(t, err)
	assert.Equal(t, 40.0, sim.Store.Production[1].Utilization)
	_, err = sim.SetUtilization(1, 140)
	require.NoError(t, err, "utilization has no upper cap")
	assert.Equal(t, 140.0, sim.Store.Production[1].Utilization)
	_, err = sim.SetUtilization(1, -5)
	assert.Error(t, err)
	assert.Equal(t, 140.0, sim.Store.Production[1].Utilization)
	_, err = sim.SetUtilization(9, 40)
	assert.Error(t, err)

	_, err = sim.SetOperational(1, false)
	require.NoError(t, err)
	assert.False(t, sim.Store.Facilities[1].Operational)

	_, err = sim.AssignResearch(1, pChip)
	require.NoError(t, err)
	assert.Equal(t, 120.0, sim.Store.Research[1].InnovationPoints, "same product keeps progress")
	_, err = sim.AssignResearch(1, pSteel)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim.Store.Research[1].InnovationPoints)
	assert.Equal(t, 0, sim.Store.Research[1].Progress)
	_, err = sim.AssignResearch(1, 12345)
	assert.Error(t, err)

	_, err = sim.AssignRecipe(1, rMissing)
	assert.Error(t, err)
	_, err = sim.AssignRecipe(1, rSteel)
	assert.NoError(t, err)

	_, err = sim.SetPayroll(1, 450000, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(450000), sim.Store.Staff[1].Salary)
	_, err = sim.SetPayroll(1, -1, 0)
	assert.Error(t, err)

	// One event per successful control.
	n := 0
	for _, e := range sim.Events {
		if e.Category == CategoryControl {
			n++
		}
	}
	assert.Equal(t, 7, n)
}

func TestEvents_SequenceSurvivesResume(t *testing.T) {
	sim := newTestSim(t)
	sim.Store.PutFacility(steelMill(1, 0, 0, 0, 0))

	_, err := sim.SetOperational(1, false)
	require.NoError(t, err)
	_, err = sim.SetOperational(1, true)
	require.NoError(t, err)
	require.Len(t, sim.Events, 2)
	assert.Equal(t, uint64(1), sim.Events[0].Seq)
	assert.Equal(t, uint64(2), sim.Events[1].Seq)
	assert.Equal(t, sim.Events[0].Tick, sim.Events[1].Tick, "same tick, distinct seq")

	restored := newTestSim(t)
	restored.Store.PutFacility(steelMill(1, 0, 0, 0, 0))
	restored.ResumeEvents(2)
	restored.ResumeEvents(1)
	_, err = restored.SetOperational(1, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), restored.Events[0].Seq)
}
