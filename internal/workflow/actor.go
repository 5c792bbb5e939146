package workflow

import (
	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// Actor is the already-authenticated caller of a workflow operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
	Name string
}

// IsZero reports whether the actor is unset.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil
}
