package domain

import "time"

// Company is the tenant boundary. Tickets and moderator rosters never
// cross it.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
