package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusRejected   TicketStatus = "REJECTED"
)

// IsTerminal reports whether no further status transition is allowed.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusRejected
}

// ValidStatus reports whether the value is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusRejected:
		return true
	}
	return false
}

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. Creator and assignee
// identities are denormalized onto the row so notification steps never
// need a join. Assignee fields are either all nil or all set.
type Ticket struct {
	ID              string
	CompanyID       string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	Category        *string
	Notes           *string
	RelatedSkills   []string
	CreatedByID     string
	CreatedByName   string
	CreatedByEmail  string
	CreatedByRole   Role
	AssignedToID    *string
	AssignedToName  *string
	AssignedToEmail *string
	AssignedToRole  *Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Assignee captures the denormalized identity written when a moderator
// is selected for a ticket.
type Assignee struct {
	ID    string
	Name  string
	Email string
}
