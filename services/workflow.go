package services

import (
	"fmt"
	"time"

	"jansarthi-be/models"
)

// The helpers below move an issue through its Parshad workflow in memory.
// Callers persist the issue afterwards.

// Transition applies a status change requested by the assigned Parshad.
func Transition(issue *models.Issue, to models.IssueStatus, notes string, now time.Time) error {
	if !issue.Status.CanTransitionTo(to) {
		return &models.TransitionError{From: issue.Status, To: to}
	}
	issue.Status = to
	if notes != "" {
		issue.AppendProgress(now, notes)
	}
	issue.UpdatedAt = now
	return nil
}

// Acknowledge moves a freshly assigned issue into parshad_check.
// It starts the progress log over.
func Acknowledge(issue *models.Issue, now time.Time) error {
	if issue.Status != models.StatusAssigned {
		return &RequestError{Message: fmt.Sprintf("Issue is already acknowledged (status: %s)", issue.Status)}
	}
	issue.Status = models.StatusParshadCheck
	issue.ResetProgress(now, "Issue acknowledged by Parshad")
	issue.UpdatedAt = now
	return nil
}

func StartWork(issue *models.Issue, notes string, now time.Time) error {
	if issue.Status != models.StatusParshadCheck {
		return &RequestError{Message: fmt.Sprintf("Cannot start work from status: %s. Must be in parshad_check status.", issue.Status)}
	}
	issue.Status = models.StatusStartedWorking
	issue.AppendProgress(now, withNotes("Work started", notes))
	issue.UpdatedAt = now
	return nil
}

func Complete(issue *models.Issue, notes string, now time.Time) error {
	if issue.Status != models.StatusStartedWorking {
		return &RequestError{Message: fmt.Sprintf("Cannot complete from status: %s. Must be in started_working status.", issue.Status)}
	}
	issue.Status = models.StatusFinishedWork
	issue.AppendProgress(now, withNotes("Work completed", notes))
	issue.UpdatedAt = now
	return nil
}

// ProofUpdate applies a status change that comes with proof photos already
// attached to the issue.
func ProofUpdate(issue *models.Issue, to models.IssueStatus, notes string, photos int, now time.Time) error {
	if !issue.Status.CanTransitionTo(to) {
		return &models.TransitionError{From: issue.Status, To: to}
	}
	issue.Status = to
	note := "Status: " + to.TitleCase()
	if notes != "" {
		note += "\n" + notes
	}
	if photos > 0 {
		note += fmt.Sprintf("\n(%d photo(s) uploaded as proof)", photos)
	}
	issue.AppendProgress(now, note)
	issue.UpdatedAt = now
	return nil
}

func withNotes(event, notes string) string {
	if notes == "" {
		return event
	}
	return event + ": " + notes
}
