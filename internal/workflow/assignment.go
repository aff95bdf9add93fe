package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/triage"
)

// Sentinel failures of the assignment pipeline. ErrTicketNotFound and
// ErrClassificationFailed are faults; ErrNoQualifiedModerator (from
// the triage package) is a business outcome and is reported under its
// own metric bucket.
var (
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrClassificationFailed = errors.New("ticket classification failed")
)

// AssignmentWorkflow runs the triage pipeline for a newly created
// ticket: classify, normalize keywords, score the tenant's moderator
// roster, assign or leave pending, then notify the assignee.
type AssignmentWorkflow struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	classifier ai.Classifier
	mailer     Mailer
	logger     *zap.Logger
}

// Mailer is the notification sink the workflows depend on.
type Mailer interface {
	Send(to, subject, html string) error
}

// NewAssignmentWorkflow creates the workflow.
func NewAssignmentWorkflow(
	tickets repository.TicketRepository,
	users repository.UserRepository,
	classifier ai.Classifier,
	mailer Mailer,
	logger *zap.Logger,
) *AssignmentWorkflow {
	return &AssignmentWorkflow{
		tickets:    tickets,
		users:      users,
		classifier: classifier,
		mailer:     mailer,
		logger:     logger,
	}
}

// Handle executes one assignment run. Every step is memoized on the
// run, so an executor retry resumes at the last uncompleted step.
func (w *AssignmentWorkflow) Handle(ctx context.Context, run *Run, event Event) error {
	ticketID := event.PayloadString("ticketId")
	if ticketID == "" {
		return NonRetryable(errors.New("event payload missing ticketId"))
	}

	ticket, err := Step(ctx, run, "get-ticket", func(ctx context.Context) (*domain.Ticket, error) {
		t, err := w.tickets.GetByID(ctx, ticketID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
		}
		return t, err
	})
	if err != nil {
		return err
	}

	if err := run.Do(ctx, "update-ticket-status", func(ctx context.Context) error {
		return w.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusPending, nil)
	}); err != nil {
		return err
	}

	analysis, err := Step(ctx, run, "analyze-ticket", func(ctx context.Context) (*ai.Analysis, error) {
		result, err := w.classifier.Classify(ctx, ticket.Title, ticket.Description)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
		}
		return result, nil
	})
	if err != nil {
		return err
	}

	keywords := triage.Normalize(ticket.Title, ticket.Description, analysis.RelatedSkills)
	w.logger.Debug("ticket keywords for matching",
		zap.String("ticket_id", ticketID),
		zap.Strings("keywords", keywords))

	if err := run.Do(ctx, "update-ticket-with-ai-data", func(ctx context.Context) error {
		return w.tickets.UpdateTriage(ctx, ticketID, analysis.Priority, analysis.Category, analysis.Notes, keywords)
	}); err != nil {
		return err
	}

	assignee, err := Step(ctx, run, "find-moderator", func(ctx context.Context) (*domain.Assignee, error) {
		return w.findModerator(ctx, ticket, keywords)
	})
	if err != nil {
		return err
	}
	w.logger.Info("ticket assigned",
		zap.String("ticket_id", ticketID),
		zap.String("moderator_id", assignee.ID))

	return run.Do(ctx, "send-assignment-notification", func(ctx context.Context) error {
		return w.sendAssignmentNotification(ctx, ticketID)
	})
}

// findModerator scores the roster of the ticket's company and either
// assigns the winner or leaves the ticket pending with a diagnostic
// note. The note deliberately overwrites the classification notes:
// operational visibility into why nothing was assigned takes priority
// over the AI summary at this point.
func (w *AssignmentWorkflow) findModerator(ctx context.Context, ticket *domain.Ticket, keywords []string) (*domain.Assignee, error) {
	moderators, err := w.users.ListModerators(ctx, ticket.CompanyID)
	if err != nil {
		return nil, err
	}

	best, err := triage.Select(keywords, moderators)
	if err != nil {
		w.logger.Warn("no moderator with relevant skills found",
			zap.String("ticket_id", ticket.ID),
			zap.String("company_id", ticket.CompanyID),
			zap.Strings("required_keywords", keywords),
			zap.Int("roster_size", len(moderators)))

		notes := "No qualified moderators available. Required skills: " + strings.Join(keywords, ", ")
		if uerr := w.tickets.UpdateNotes(ctx, ticket.ID, domain.TicketStatusPending, notes); uerr != nil {
			return nil, uerr
		}
		return nil, NonRetryable(err)
	}

	w.logger.Info("best moderator match found",
		zap.String("ticket_id", ticket.ID),
		zap.String("moderator_id", best.Moderator.ID),
		zap.Int("score", best.Score),
		zap.Int("direct_matches", best.DirectSkillMatches),
		zap.Int("keyword_matches", best.KeywordMatches),
		zap.Strings("matched", best.Matched))

	assignee := domain.Assignee{
		ID:    best.Moderator.ID,
		Name:  best.Moderator.Name,
		Email: best.Moderator.Email,
	}
	if err := w.tickets.Assign(ctx, ticket.ID, assignee); err != nil {
		return nil, err
	}
	return &assignee, nil
}

// sendAssignmentNotification is best-effort: a missing assignee or a
// failed send is logged and never fails the run.
func (w *AssignmentWorkflow) sendAssignmentNotification(ctx context.Context, ticketID string) error {
	full, err := w.tickets.GetByID(ctx, ticketID)
	if err != nil {
		w.logger.Error("load ticket for assignment notification", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil
	}
	if full.AssignedToEmail == nil || full.AssignedToName == nil {
		w.logger.Error("ticket has no assignee for notification", zap.String("ticket_id", ticketID))
		return nil
	}

	subject := fmt.Sprintf("A ticket has been assigned to you: %s", *full.AssignedToName)
	if err := w.mailer.Send(*full.AssignedToEmail, subject, assignmentEmailHTML(full)); err != nil {
		w.logger.Error("failed to send assignment notification email",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
	return nil
}

// outcomeForError maps a final run error onto a metrics bucket.
func outcomeForError(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeCompleted
	case errors.Is(err, ErrTicketNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrClassificationFailed):
		return observability.OutcomeClassificationFailed
	case errors.Is(err, triage.ErrNoQualifiedModerator):
		return observability.OutcomeNoQualifiedModerator
	default:
		return observability.OutcomeFailed
	}
}
