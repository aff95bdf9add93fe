package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the full ticket view, triage fields included.
type TicketResponse struct {
	ID            string                `json:"id"`
	CompanyID     string                `json:"company_id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	Category      *string               `json:"category,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	RelatedSkills []string              `json:"related_skills,omitempty"`
	CreatedBy     TicketActor           `json:"created_by"`
	AssignedTo    *TicketActor          `json:"assigned_to,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TicketActor identifies the creator or assignee on a ticket view.
type TicketActor struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:            t.ID,
		CompanyID:     t.CompanyID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		Category:      t.Category,
		Notes:         t.Notes,
		RelatedSkills: t.RelatedSkills,
		CreatedBy: TicketActor{
			ID:    t.CreatedByID,
			Name:  t.CreatedByName,
			Email: t.CreatedByEmail,
			Role:  t.CreatedByRole,
		},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.AssignedToID != nil {
		actor := TicketActor{ID: *t.AssignedToID}
		if t.AssignedToName != nil {
			actor.Name = *t.AssignedToName
		}
		if t.AssignedToEmail != nil {
			actor.Email = *t.AssignedToEmail
		}
		if t.AssignedToRole != nil {
			actor.Role = *t.AssignedToRole
		}
		resp.AssignedTo = &actor
	}
	return resp
}

// NewTicketResponses maps a slice of domain tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}
