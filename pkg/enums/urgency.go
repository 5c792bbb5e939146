package enums

import "fmt"

// Urgency captures how quickly a prescription should be reviewed.
type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencyNormal  Urgency = "normal"
	UrgencyUrgent  Urgency = "urgent"
)

var validUrgencies = []Urgency{
	UrgencyRoutine,
	UrgencyNormal,
	UrgencyUrgent,
}

// IsValid reports whether the value is a known Urgency.
func (u Urgency) IsValid() bool {
	for _, candidate := range validUrgencies {
		if candidate == u {
			return true
		}
	}
	return false
}

// Multiplier scales per-status base review durations. Urgent work is promised
// sooner, routine work later.
func (u Urgency) Multiplier() float64 {
	switch u {
	case UrgencyRoutine:
		return 1.5
	case UrgencyUrgent:
		return 0.5
	default:
		return 1.0
	}
}

// ParseUrgency converts raw input into an Urgency.
func ParseUrgency(value string) (Urgency, error) {
	for _, candidate := range validUrgencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid urgency %q", value)
}
