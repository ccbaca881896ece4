package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is an entry in the internal curriculum catalog, matched against
// RFP modules during proposal drafting.
type Course struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Instructor string    `json:"instructor"`
	Topics     []string  `json:"topics"`
	IsExternal bool      `json:"is_external"`
	CreatedAt  time.Time `json:"created_at"`
}
