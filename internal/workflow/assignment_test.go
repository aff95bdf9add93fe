package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

func carTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:             "t1",
		CompanyID:      "company-a",
		Title:          "Cannot start car",
		Description:    "engine won't turn over",
		Status:         domain.TicketStatusPending,
		Priority:       domain.TicketPriorityMedium,
		CreatedByID:    "u1",
		CreatedByName:  "Sam",
		CreatedByEmail: "sam@example.com",
		CreatedByRole:  domain.RoleUser,
	}
}

func carAnalysis() *ai.Analysis {
	return &ai.Analysis{
		Priority:      domain.TicketPriorityHigh,
		Category:      "Automotive",
		Notes:         "Likely a starter or battery problem.",
		RelatedSkills: []string{"car mechanic"},
	}
}

func runAssignment(t *testing.T, tickets *fakeTicketRepo, users *fakeUserRepo, classifier *fakeClassifier, mail *fakeMailer, metrics *observability.Metrics) {
	t.Helper()
	exec := newTestExecutor(metrics)
	wf := NewAssignmentWorkflow(tickets, users, classifier, mail, zap.NewNop())
	exec.Register("assignment", EventTicketCreated, 2, wf.Handle)

	event := NewEvent(EventTicketCreated, map[string]any{"ticketId": "t1"})
	if err := exec.Dispatch(context.Background(), event); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	exec.Wait()
}

func TestAssignment_MatchingModeratorGetsTicket(t *testing.T) {
	tickets := newFakeTicketRepo(carTicket())
	users := &fakeUserRepo{users: []domain.User{
		{ID: "m1", CompanyID: "company-a", Name: "Dee", Email: "dee@example.com", Role: domain.RoleModerator, Skills: []string{"car mechanic", "electrical"}},
		// moderator of another tenant with identical skills must never win
		{ID: "m2", CompanyID: "company-b", Name: "Kay", Email: "kay@example.com", Role: domain.RoleModerator, Skills: []string{"car mechanic"}},
	}}
	classifier := &fakeClassifier{analysis: carAnalysis()}
	mail := &fakeMailer{}
	metrics := observability.NewMetrics()

	runAssignment(t, tickets, users, classifier, mail, metrics)

	ticket := tickets.snapshot("t1")
	if ticket.Status != domain.TicketStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", ticket.Status)
	}
	if ticket.AssignedToID == nil || *ticket.AssignedToID != "m1" {
		t.Fatalf("expected assignment to m1, got %v", ticket.AssignedToID)
	}
	if ticket.AssignedToEmail == nil || *ticket.AssignedToEmail != "dee@example.com" {
		t.Fatalf("unexpected assignee email %v", ticket.AssignedToEmail)
	}
	if ticket.Priority != domain.TicketPriorityHigh {
		t.Fatalf("classification priority not persisted, got %s", ticket.Priority)
	}
	for _, want := range []string{"car mechanic", "car", "mechanic", "engine", "start"} {
		found := false
		for _, kw := range ticket.RelatedSkills {
			if kw == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected keyword %q in %v", want, ticket.RelatedSkills)
		}
	}

	sent := mail.sentMails()
	if len(sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sent))
	}
	if sent[0].to != "dee@example.com" {
		t.Fatalf("notification sent to %s", sent[0].to)
	}
	if !strings.Contains(sent[0].subject, "Dee") {
		t.Fatalf("unexpected subject %q", sent[0].subject)
	}
	if metrics.WorkflowRuns("assignment", observability.OutcomeCompleted) != 1 {
		t.Fatal("expected a completed run")
	}
}

func TestAssignment_NoModeratorsLeavesTicketPending(t *testing.T) {
	tickets := newFakeTicketRepo(carTicket())
	users := &fakeUserRepo{}
	classifier := &fakeClassifier{analysis: carAnalysis()}
	mail := &fakeMailer{}
	metrics := observability.NewMetrics()

	runAssignment(t, tickets, users, classifier, mail, metrics)

	ticket := tickets.snapshot("t1")
	if ticket.Status != domain.TicketStatusPending {
		t.Fatalf("expected PENDING, got %s", ticket.Status)
	}
	if ticket.AssignedToID != nil || ticket.AssignedToEmail != nil {
		t.Fatalf("no assignee fields may be set, got %+v", ticket)
	}
	if ticket.Notes == nil || !strings.Contains(*ticket.Notes, "No qualified moderators available") {
		t.Fatalf("expected diagnostic notes, got %v", ticket.Notes)
	}
	for _, want := range []string{"car mechanic", "engine"} {
		if !strings.Contains(*ticket.Notes, want) {
			t.Fatalf("diagnostic notes must list required keywords, missing %q: %s", want, *ticket.Notes)
		}
	}
	if len(mail.sentMails()) != 0 {
		t.Fatal("no notification may be sent without an assignee")
	}
	if metrics.WorkflowRuns("assignment", observability.OutcomeNoQualifiedModerator) != 1 {
		t.Fatal("expected a no_qualified_moderator outcome")
	}
	// business outcome, not a transient fault: no retries
	if classifier.callCount() != 1 {
		t.Fatalf("expected a single classification call, got %d", classifier.callCount())
	}
}

func TestAssignment_UnqualifiedRosterLeavesTicketPending(t *testing.T) {
	tickets := newFakeTicketRepo(carTicket())
	users := &fakeUserRepo{users: []domain.User{
		{ID: "m1", CompanyID: "company-a", Name: "Dee", Email: "dee@example.com", Role: domain.RoleModerator, Skills: []string{"frontend development"}},
	}}
	classifier := &fakeClassifier{analysis: carAnalysis()}
	mail := &fakeMailer{}
	metrics := observability.NewMetrics()

	runAssignment(t, tickets, users, classifier, mail, metrics)

	ticket := tickets.snapshot("t1")
	if ticket.Status != domain.TicketStatusPending || ticket.AssignedToID != nil {
		t.Fatalf("zero-score roster must not be assigned, got %+v", ticket)
	}
	if metrics.WorkflowRuns("assignment", observability.OutcomeNoQualifiedModerator) != 1 {
		t.Fatal("expected a no_qualified_moderator outcome")
	}
}

func TestAssignment_ClassificationFailureFailsRun(t *testing.T) {
	tickets := newFakeTicketRepo(carTicket())
	users := &fakeUserRepo{users: []domain.User{
		{ID: "m1", CompanyID: "company-a", Name: "Dee", Email: "dee@example.com", Role: domain.RoleModerator, Skills: []string{"car mechanic"}},
	}}
	classifier := &fakeClassifier{err: ai.ErrNoAnalysis}
	mail := &fakeMailer{}
	metrics := observability.NewMetrics()

	runAssignment(t, tickets, users, classifier, mail, metrics)

	ticket := tickets.snapshot("t1")
	if ticket.Status != domain.TicketStatusPending {
		t.Fatalf("ticket must stay at the last successful step's status, got %s", ticket.Status)
	}
	if len(ticket.RelatedSkills) != 0 {
		t.Fatalf("no keywords may be written on classification failure, got %v", ticket.RelatedSkills)
	}
	if ticket.AssignedToID != nil {
		t.Fatal("no assignee may be set on classification failure")
	}
	if len(mail.sentMails()) != 0 {
		t.Fatal("no notification may be sent on classification failure")
	}
	if metrics.WorkflowRuns("assignment", observability.OutcomeClassificationFailed) != 1 {
		t.Fatal("expected a classification_failed outcome")
	}
	// transient fault: retried up to the registered bound
	if classifier.callCount() != 3 {
		t.Fatalf("expected 3 classification attempts, got %d", classifier.callCount())
	}
}

func TestAssignment_MissingTicketFailsRun(t *testing.T) {
	tickets := newFakeTicketRepo()
	users := &fakeUserRepo{}
	classifier := &fakeClassifier{analysis: carAnalysis()}
	mail := &fakeMailer{}
	metrics := observability.NewMetrics()

	runAssignment(t, tickets, users, classifier, mail, metrics)

	if metrics.WorkflowRuns("assignment", observability.OutcomeNotFound) != 1 {
		t.Fatal("expected a not_found outcome")
	}
	if classifier.callCount() != 0 {
		t.Fatal("classification must not run for a missing ticket")
	}
}

func TestAssignment_FailedSendDoesNotFailRun(t *testing.T) {
	tickets := newFakeTicketRepo(carTicket())
	users := &fakeUserRepo{users: []domain.User{
		{ID: "m1", CompanyID: "company-a", Name: "Dee", Email: "dee@example.com", Role: domain.RoleModerator, Skills: []string{"car mechanic"}},
	}}
	classifier := &fakeClassifier{analysis: carAnalysis()}
	mail := &fakeMailer{failSend: true}
	metrics := observability.NewMetrics()

	runAssignment(t, tickets, users, classifier, mail, metrics)

	if metrics.WorkflowRuns("assignment", observability.OutcomeCompleted) != 1 {
		t.Fatal("a failed send must not fail the run")
	}
	ticket := tickets.snapshot("t1")
	if ticket.Status != domain.TicketStatusInProgress {
		t.Fatalf("assignment must still be persisted, got %s", ticket.Status)
	}
}

func TestAssignment_MalformedPayload(t *testing.T) {
	wf := NewAssignmentWorkflow(newFakeTicketRepo(), &fakeUserRepo{}, &fakeClassifier{analysis: carAnalysis()}, &fakeMailer{}, zap.NewNop())
	run := &Run{ID: "r1", store: NewMemoryStepStore(), logger: zap.NewNop()}

	err := wf.Handle(context.Background(), run, NewEvent(EventTicketCreated, nil))
	if err == nil || !isNonRetryable(err) {
		t.Fatalf("expected non-retryable error for missing ticketId, got %v", err)
	}
}

func TestOutcomeForError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, observability.OutcomeCompleted},
		{ErrTicketNotFound, observability.OutcomeNotFound},
		{ErrClassificationFailed, observability.OutcomeClassificationFailed},
		{errors.New("unknown"), observability.OutcomeFailed},
	}
	for _, tc := range cases {
		if got := outcomeForError(tc.err); got != tc.want {
			t.Fatalf("outcomeForError(%v)=%s, want %s", tc.err, got, tc.want)
		}
	}
}
