package response

import (
	"time"

	"github.com/google/uuid"
)

type BrainResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type GetBrainsResponse struct {
	Brains []BrainResponse `json:"brains"`
}
