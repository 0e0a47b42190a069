package models

import (
	"fmt"
	"strings"
	"time"
)

// IssueType enum
type IssueType string

const (
	Water       IssueType = "water"
	Electricity IssueType = "electricity"
	Road        IssueType = "road"
	Garbage     IssueType = "garbage"
	Sewerage    IssueType = "sewerage"
)

// IssueTypes lists every reportable issue type in display order.
var IssueTypes = []IssueType{Water, Electricity, Road, Garbage, Sewerage}

func (t IssueType) Valid() bool {
	for _, v := range IssueTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Label is the human readable name shown in dashboards.
func (t IssueType) Label() string {
	switch t {
	case Water:
		return "Water Problem"
	case Electricity:
		return "Electricity Problem"
	case Road:
		return "Road Problem"
	case Garbage:
		return "Garbage Problem"
	case Sewerage:
		return "Sewerage Problem"
	}
	return string(t)
}

// IssueStatus enum
type IssueStatus string

const (
	StatusReported       IssueStatus = "reported"
	StatusAssigned       IssueStatus = "assigned"
	StatusParshadCheck   IssueStatus = "parshad_check"
	StatusStartedWorking IssueStatus = "started_working"
	StatusFinishedWork   IssueStatus = "finished_work"
)

var IssueStatuses = []IssueStatus{
	StatusReported,
	StatusAssigned,
	StatusParshadCheck,
	StatusStartedWorking,
	StatusFinishedWork,
}

func (s IssueStatus) Valid() bool {
	for _, v := range IssueStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s IssueStatus) Label() string {
	switch s {
	case StatusReported:
		return "Reported"
	case StatusAssigned:
		return "Assigned"
	case StatusParshadCheck:
		return "Acknowledged"
	case StatusStartedWorking:
		return "In Progress"
	case StatusFinishedWork:
		return "Completed"
	}
	return string(s)
}

// TitleCase renders "started_working" as "Started Working".
func (s IssueStatus) TitleCase() string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Stages is the four step progress tracker. Assigned and acknowledged
// issues share the second stage.
var Stages = []string{"Reported", "Assigned", "In Progress", "Completed"}

// Stage returns the tracker index for the status, or -1 when unknown.
func (s IssueStatus) Stage() int {
	switch s {
	case StatusReported:
		return 0
	case StatusAssigned, StatusParshadCheck:
		return 1
	case StatusStartedWorking:
		return 2
	case StatusFinishedWork:
		return 3
	}
	return -1
}

var transitions = map[IssueStatus][]IssueStatus{
	StatusReported:       {StatusParshadCheck},
	StatusAssigned:       {StatusParshadCheck},
	StatusParshadCheck:   {StatusStartedWorking},
	StatusStartedWorking: {StatusFinishedWork},
	StatusFinishedWork:   {},
}

// AllowedTransitions returns the statuses a Parshad may move the issue to.
func (s IssueStatus) AllowedTransitions() []IssueStatus {
	return transitions[s]
}

func (s IssueStatus) CanTransitionTo(next IssueStatus) bool {
	for _, v := range transitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// TransitionError is returned when a status change is not in the table.
type TransitionError struct {
	From, To IssueStatus
}

func (e *TransitionError) Error() string {
	allowed := make([]string, 0, len(transitions[e.From]))
	for _, s := range transitions[e.From] {
		allowed = append(allowed, "'"+string(s)+"'")
	}
	return fmt.Sprintf("Cannot transition from %s to %s. Allowed: [%s]", e.From, e.To, strings.Join(allowed, ", "))
}

// IssuePhoto is a photo attached to an issue. ObjectName is the storage key;
// URL is only populated in responses.
type IssuePhoto struct {
	ID          int64     `bson:"id" json:"id"`
	IssueID     int64     `bson:"issue_id" json:"issue_id"`
	ObjectName  string    `bson:"object_name" json:"-"`
	URL         string    `bson:"-" json:"photo_url"`
	Filename    string    `bson:"filename" json:"filename"`
	FileSize    int64     `bson:"file_size" json:"file_size"`
	ContentType string    `bson:"content_type" json:"content_type"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID                int64        `bson:"_id" json:"id"`
	IssueType         IssueType    `bson:"issue_type" json:"issue_type"`
	Description       string       `bson:"description" json:"description"`
	Latitude          float64      `bson:"latitude" json:"latitude"`
	Longitude         float64      `bson:"longitude" json:"longitude"`
	WardID            *int         `bson:"ward_id,omitempty" json:"ward_id"`
	WardName          *string      `bson:"ward_name,omitempty" json:"ward_name"`
	Status            IssueStatus  `bson:"status" json:"status"`
	UserID            int64        `bson:"user_id" json:"user_id"`
	AssignedParshadID *int64       `bson:"assigned_parshad_id,omitempty" json:"assigned_parshad_id"`
	AssignmentNotes   *string      `bson:"assignment_notes,omitempty" json:"assignment_notes"`
	ProgressNotes     *string      `bson:"progress_notes,omitempty" json:"progress_notes"`
	Photos            []IssuePhoto `bson:"photos" json:"photos"`
	CreatedAt         time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `bson:"updated_at" json:"updated_at"`
}

// AssignTo hands the issue to a Parshad and resets it to assigned.
func (i *Issue) AssignTo(parshadID int64, notes *string) {
	i.AssignedParshadID = &parshadID
	if notes != nil {
		i.AssignmentNotes = notes
	}
	i.Status = StatusAssigned
}

// AppendProgress adds a timestamped entry to the progress notes.
func (i *Issue) AppendProgress(at time.Time, note string) {
	entry := FormatNote(at, note)
	if i.ProgressNotes == nil || *i.ProgressNotes == "" {
		i.ProgressNotes = &entry
		return
	}
	joined := *i.ProgressNotes + "\n\n" + entry
	i.ProgressNotes = &joined
}

// ResetProgress replaces the progress notes with a single entry.
func (i *Issue) ResetProgress(at time.Time, note string) {
	entry := FormatNote(at, note)
	i.ProgressNotes = &entry
}

// FormatNote renders "[2006-01-02 15:04] note" in UTC.
func FormatNote(at time.Time, note string) string {
	return "[" + at.UTC().Format("2006-01-02 15:04") + "] " + note
}
