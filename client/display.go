package client

import (
	"sync"
	"time"

	"jansarthi-be/geo"
	"jansarthi-be/models"
)

// DefaultCenter is Dehradun, used when no issue has usable coordinates.
var DefaultCenter = geo.Point{Lat: 30.3165, Lon: 78.0322}

// MapBounds spans the valid coordinates of the issues.
func MapBounds(items []models.IssueMapItem) (geo.Box, bool) {
	points := make([]geo.Point, len(items))
	for i, it := range items {
		points[i] = geo.Point{Lat: it.Latitude, Lon: it.Longitude}
	}
	return geo.Bounds(points)
}

var issueColors = map[models.IssueType]string{
	models.Water:       "#0DCAF0",
	models.Electricity: "#FFC107",
	models.Road:        "#606060",
	models.Garbage:     "#198754",
	models.Sewerage:    "#8B4513",
}

var statusColors = map[models.IssueStatus]string{
	models.StatusReported:       "#DC3545",
	models.StatusAssigned:       "#FFC107",
	models.StatusParshadCheck:   "#FFC107",
	models.StatusStartedWorking: "#198754",
	models.StatusFinishedWork:   "#0D6EFD",
}

const fallbackColor = "#6C757D"

// IssueColor is the pin colour for an issue type.
func IssueColor(t models.IssueType) string {
	if c, ok := issueColors[t]; ok {
		return c
	}
	return fallbackColor
}

func StatusColor(s models.IssueStatus) string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return fallbackColor
}

// Stage is one step of the progress tracker.
type Stage struct {
	Name string
	Done bool
}

// Tracker marks every stage at or before the issue's current one.
func Tracker(s models.IssueStatus) []Stage {
	current := s.Stage()
	out := make([]Stage, len(models.Stages))
	for i, name := range models.Stages {
		out[i] = Stage{Name: name, Done: i <= current}
	}
	return out
}

// ResendCooldown matches the server's OTP send cooldown.
const ResendCooldown = 60 * time.Second

// Countdown gates the OTP resend action.
type Countdown struct {
	Duration time.Duration
	Now      func() time.Time

	mu      sync.Mutex
	started time.Time
}

func NewCountdown() *Countdown { return &Countdown{Duration: ResendCooldown} }

func (c *Countdown) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Start restarts the countdown, typically after an OTP was sent.
func (c *Countdown) Start() {
	c.mu.Lock()
	c.started = c.now()
	c.mu.Unlock()
}

// Remaining is zero once resending is allowed or if Start was never called.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.IsZero() {
		return 0
	}
	left := c.Duration - c.now().Sub(c.started)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Countdown) CanResend() bool { return c.Remaining() == 0 }

// Seconds rounds the remaining time up, as shown next to the resend button.
func (c *Countdown) Seconds() int {
	r := c.Remaining()
	return int((r + time.Second - 1) / time.Second)
}
