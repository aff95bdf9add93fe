package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
)

// RegisterTriageWorkflows binds the triage workflows to their
// triggering events on the executor.
func RegisterTriageWorkflows(
	exec *workflow.Executor,
	cfg config.WorkflowConfig,
	tickets repository.TicketRepository,
	users repository.UserRepository,
	classifier ai.Classifier,
	mailer workflow.Mailer,
	logger *zap.Logger,
) {
	assignment := workflow.NewAssignmentWorkflow(tickets, users, classifier, mailer, logger)
	exec.Register("assignment", workflow.EventTicketCreated, cfg.AssignmentRetries, assignment.Handle)

	statusChange := workflow.NewStatusChangeWorkflow(tickets, mailer, logger)
	exec.Register("status-change", workflow.EventTicketUpdated, -1, statusChange.Handle)
}
