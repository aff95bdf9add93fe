package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Dispatcher hands events to the workflow executor.
type Dispatcher interface {
	Dispatch(ctx context.Context, event workflow.Event) error
}

// TicketService coordinates the ticket API surface. Triage itself runs
// asynchronously in the workflow layer; this service only persists the
// submitted ticket and emits the triggering events.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher Dispatcher
	logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher Dispatcher, logger *zap.Logger) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher, logger: logger}
}

// CreateTicket persists a new PENDING ticket for the creator's tenant
// and triggers the assignment workflow.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	ticket := &domain.Ticket{
		CompanyID:      creator.CompanyID,
		Title:          title,
		Description:    description,
		Status:         domain.TicketStatusPending,
		Priority:       domain.TicketPriorityMedium,
		CreatedByID:    creator.ID,
		CreatedByName:  creator.Name,
		CreatedByEmail: creator.Email,
		CreatedByRole:  creator.Role,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	event := workflow.NewEvent(workflow.EventTicketCreated, map[string]any{"ticketId": ticket.ID})
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		// the ticket row is the source of truth; a lost trigger just
		// leaves it PENDING and unassigned
		s.logger.Error("dispatch ticket created", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return ticket, nil
}

// UpdateStatus validates a status transition and triggers the
// status-change workflow, which persists the new status and notifies
// the creator.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	ticket, err := s.loadScoped(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleModerator && (ticket.AssignedToID == nil || *ticket.AssignedToID != actor.ID) {
		return nil, apperrors.NewForbidden("ticket not assigned to you")
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is in a terminal state", map[string]any{"status": ticket.Status})
	}

	event := workflow.NewEvent(workflow.EventTicketUpdated, map[string]any{
		"ticketId":       ticket.ID,
		"status":         string(status),
		"assignedToRole": string(actor.Role),
	})
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket returns a ticket visible to the actor: creators see their
// own tickets, moderators additionally the ones assigned to them, and
// admins everything in their tenant.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadScoped(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleAdmin || ticket.CreatedByID == actor.ID {
		return ticket, nil
	}
	if ticket.AssignedToID != nil && *ticket.AssignedToID == actor.ID {
		return ticket, nil
	}
	return nil, apperrors.NewNotFound("ticket", nil)
}

// ListCreated returns tickets submitted by the actor.
func (s *TicketService) ListCreated(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CompanyID:   &actor.CompanyID,
		CreatedByID: &actor.ID,
		Statuses:    filter.Statuses,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// ListAssigned returns tickets assigned to the actor.
func (s *TicketService) ListAssigned(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CompanyID:    &actor.CompanyID,
		AssignedToID: &actor.ID,
		Statuses:     filter.Statuses,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// ListCompany returns every ticket in the actor's tenant.
func (s *TicketService) ListCompany(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CompanyID: &actor.CompanyID,
		Statuses:  filter.Statuses,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
}

// loadScoped fetches a ticket and hides cross-tenant rows behind a
// not-found response.
func (s *TicketService) loadScoped(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.CompanyID != actor.CompanyID {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}
