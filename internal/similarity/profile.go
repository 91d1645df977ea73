// Package similarity provides threshold policies and vector search over learned patterns.
package similarity

import (
	"errors"
	"fmt"
)

// ErrThresholdOutOfRange is returned when a profile threshold is outside [0,1].
var ErrThresholdOutOfRange = errors.New("similarity threshold out of range")

// Profile holds the per-domain thresholds that turn a similarity score into a decision.
// A zero Propagate or Group threshold disables that behavior.
type Profile struct {
	AutoApply float64
	Confirm   float64
	Propagate float64
	Group     float64
	Reject    float64
}

// SMSPatternProfile is the profile used for matching SMS templates.
var SMSPatternProfile = Profile{
	AutoApply: 0.98,
	Confirm:   0.92,
	Propagate: 0.95,
	Group:     0.95,
	Reject:    0.50,
}

// NewProfile validates and returns a profile.
func NewProfile(autoApply, confirm, propagate, group, reject float64) (Profile, error) {
	p := Profile{
		AutoApply: autoApply,
		Confirm:   confirm,
		Propagate: propagate,
		Group:     group,
		Reject:    reject,
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks that every threshold lies in [0,1].
func (p Profile) Validate() error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"auto_apply", p.AutoApply},
		{"confirm", p.Confirm},
		{"propagate", p.Propagate},
		{"group", p.Group},
		{"reject", p.Reject},
	}
	for _, t := range thresholds {
		if t.value < 0 || t.value > 1 {
			return fmt.Errorf("%w: %s=%v", ErrThresholdOutOfRange, t.name, t.value)
		}
	}
	return nil
}

// ShouldAutoApply reports whether a cached result can be reused with full trust.
func (p Profile) ShouldAutoApply(s float64) bool {
	return s >= p.AutoApply
}

// ShouldConfirm reports whether the score is a positive match for the domain judgment.
func (p Profile) ShouldConfirm(s float64) bool {
	return s >= p.Confirm
}

// ShouldPropagate reports whether a result may be applied to a similar but not identical item.
func (p Profile) ShouldPropagate(s float64) bool {
	return p.Propagate > 0 && s >= p.Propagate
}

// ShouldGroup reports whether two items belong in the same cluster.
func (p Profile) ShouldGroup(s float64) bool {
	return p.Group > 0 && s >= p.Group
}

// ShouldReject reports whether the match should be ignored entirely.
func (p Profile) ShouldReject(s float64) bool {
	return p.Reject > 0 && s <= p.Reject
}
