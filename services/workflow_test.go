package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi-be/models"
)

var workflowNow = time.Date(2024, 12, 20, 9, 30, 0, 0, time.UTC)

func TestWorkflow_HappyPath(t *testing.T) {
	issue := &models.Issue{Status: models.StatusAssigned}

	require.NoError(t, Acknowledge(issue, workflowNow))
	assert.Equal(t, models.StatusParshadCheck, issue.Status)
	assert.Equal(t, "[2024-12-20 09:30] Issue acknowledged by Parshad", *issue.ProgressNotes)

	require.NoError(t, StartWork(issue, "crew dispatched", workflowNow.Add(time.Hour)))
	assert.Equal(t, models.StatusStartedWorking, issue.Status)

	require.NoError(t, Complete(issue, "", workflowNow.Add(2*time.Hour)))
	assert.Equal(t, models.StatusFinishedWork, issue.Status)
	assert.Equal(t,
		"[2024-12-20 09:30] Issue acknowledged by Parshad\n\n"+
			"[2024-12-20 10:30] Work started: crew dispatched\n\n"+
			"[2024-12-20 11:30] Work completed",
		*issue.ProgressNotes)
}

func TestWorkflow_OutOfOrder(t *testing.T) {
	issue := &models.Issue{Status: models.StatusParshadCheck}

	err := Acknowledge(issue, workflowNow)
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "Issue is already acknowledged (status: parshad_check)", reqErr.Message)

	err = Complete(issue, "", workflowNow)
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "Cannot complete from status: parshad_check. Must be in started_working status.", reqErr.Message)

	issue.Status = models.StatusAssigned
	err = StartWork(issue, "", workflowNow)
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "Cannot start work from status: assigned. Must be in parshad_check status.", reqErr.Message)
	assert.Nil(t, issue.ProgressNotes)
}

func TestTransition(t *testing.T) {
	issue := &models.Issue{Status: models.StatusReported}

	require.NoError(t, Transition(issue, models.StatusParshadCheck, "", workflowNow))
	assert.Nil(t, issue.ProgressNotes)

	err := Transition(issue, models.StatusFinishedWork, "done", workflowNow)
	assert.EqualError(t, err, "Cannot transition from parshad_check to finished_work. Allowed: ['started_working']")
	assert.Equal(t, models.StatusParshadCheck, issue.Status)

	require.NoError(t, Transition(issue, models.StatusStartedWorking, "digging", workflowNow))
	assert.Equal(t, "[2024-12-20 09:30] digging", *issue.ProgressNotes)
}

func TestProofUpdate(t *testing.T) {
	issue := &models.Issue{Status: models.StatusStartedWorking}

	require.NoError(t, ProofUpdate(issue, models.StatusFinishedWork, "road relaid", 2, workflowNow))
	assert.Equal(t, "[2024-12-20 09:30] Status: Finished Work\nroad relaid\n(2 photo(s) uploaded as proof)", *issue.ProgressNotes)

	err := ProofUpdate(issue, models.StatusStartedWorking, "", 0, workflowNow)
	var te *models.TransitionError
	assert.True(t, errors.As(err, &te))
}
