package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// StatusChangeWorkflow persists a ticket status transition and
// notifies the ticket's creator.
type StatusChangeWorkflow struct {
	tickets repository.TicketRepository
	mailer  Mailer
	logger  *zap.Logger
}

// NewStatusChangeWorkflow creates the workflow.
func NewStatusChangeWorkflow(tickets repository.TicketRepository, mailer Mailer, logger *zap.Logger) *StatusChangeWorkflow {
	return &StatusChangeWorkflow{tickets: tickets, mailer: mailer, logger: logger}
}

// Handle executes one status-change run.
func (w *StatusChangeWorkflow) Handle(ctx context.Context, run *Run, event Event) error {
	ticketID := event.PayloadString("ticketId")
	if ticketID == "" {
		return NonRetryable(errors.New("event payload missing ticketId"))
	}
	status := domain.TicketStatus(event.PayloadString("status"))
	if !domain.ValidStatus(status) {
		return NonRetryable(fmt.Errorf("invalid status %q in event payload", status))
	}

	var actorRole *domain.Role
	if role := event.PayloadString("assignedToRole"); role != "" {
		r := domain.Role(role)
		actorRole = &r
	}

	if _, err := Step(ctx, run, "get-ticket", func(ctx context.Context) (*domain.Ticket, error) {
		t, err := w.tickets.GetByID(ctx, ticketID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
		}
		return t, err
	}); err != nil {
		return err
	}

	if err := run.Do(ctx, "update-ticket-status", func(ctx context.Context) error {
		return w.tickets.UpdateStatus(ctx, ticketID, status, actorRole)
	}); err != nil {
		return err
	}

	return run.Do(ctx, "send-status-update-notification", func(ctx context.Context) error {
		return w.sendStatusNotification(ctx, ticketID, status)
	})
}

// sendStatusNotification emails the ticket creator. Best-effort: a
// failed send is logged, never escalated.
func (w *StatusChangeWorkflow) sendStatusNotification(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	full, err := w.tickets.GetByID(ctx, ticketID)
	if err != nil {
		w.logger.Error("load ticket for status notification", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil
	}
	if full.CreatedByEmail == "" {
		w.logger.Error("ticket has no creator email for notification", zap.String("ticket_id", ticketID))
		return nil
	}

	subject := fmt.Sprintf("Ticket status updated: %s", full.Title)
	if err := w.mailer.Send(full.CreatedByEmail, subject, statusEmailHTML(full, status)); err != nil {
		w.logger.Error("failed to send status update notification email",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
	return nil
}
