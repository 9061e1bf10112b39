package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the opaque scoping key isolating one user's instincts.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
