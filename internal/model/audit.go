package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEntry is a history row joined with its spec code and acting user,
// read across all specs for the admin activity feed
type ActivityEntry struct {
	ID        uuid.UUID
	SpecID    uuid.UUID
	SpecCode  string
	UserID    *uuid.UUID
	Username  *string // nil for system actions or deleted users
	Action    string
	Details   string
	CreatedAt time.Time
}
