package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type stubTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	nextID  string
}

func newStubTicketRepo(tickets ...*domain.Ticket) *stubTicketRepo {
	repo := &stubTicketRepo{tickets: make(map[string]*domain.Ticket), nextID: "generated-id"}
	for _, t := range tickets {
		copied := *t
		repo.tickets[t.ID] = &copied
	}
	return repo
}

func (r *stubTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = r.nextID
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (r *stubTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, assignedToRole *domain.Role) error {
	return nil
}

func (r *stubTicketRepo) UpdateTriage(ctx context.Context, id string, priority domain.TicketPriority, category, notes string, relatedSkills []string) error {
	return nil
}

func (r *stubTicketRepo) UpdateNotes(ctx context.Context, id string, status domain.TicketStatus, notes string) error {
	return nil
}

func (r *stubTicketRepo) Assign(ctx context.Context, id string, assignee domain.Assignee) error {
	return nil
}

func (r *stubTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []workflow.Event
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event workflow.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) dispatched() []workflow.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]workflow.Event{}, d.events...)
}

func testUser(id, companyID string, role domain.Role) *domain.User {
	return &domain.User{
		ID:        id,
		CompanyID: companyID,
		Name:      "Sam",
		Email:     "sam@example.com",
		Role:      role,
	}
}

func TestCreateTicket_DefaultsAndDispatch(t *testing.T) {
	repo := newStubTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(repo, dispatcher, zap.NewNop())

	ticket, err := svc.CreateTicket(context.Background(), testUser("u1", "company-a", domain.RoleUser), TicketCreateInput{
		Title:       "  Cannot start car  ",
		Description: "engine won't turn over",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != domain.TicketStatusPending {
		t.Fatalf("new tickets must start PENDING, got %s", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("default priority must be MEDIUM, got %s", ticket.Priority)
	}
	if ticket.Title != "Cannot start car" {
		t.Fatalf("title not trimmed: %q", ticket.Title)
	}
	if ticket.CompanyID != "company-a" || ticket.CreatedByEmail != "sam@example.com" {
		t.Fatalf("creator identity not denormalized: %+v", ticket)
	}

	events := dispatcher.dispatched()
	if len(events) != 1 {
		t.Fatalf("expected one dispatched event, got %d", len(events))
	}
	if events[0].Name != workflow.EventTicketCreated {
		t.Fatalf("unexpected event %s", events[0].Name)
	}
	if events[0].PayloadString("ticketId") != ticket.ID {
		t.Fatalf("event must carry the ticket id, got %v", events[0].Payload)
	}
}

func TestCreateTicket_EmptyFieldsRejected(t *testing.T) {
	svc := NewTicketService(newStubTicketRepo(), &recordingDispatcher{}, zap.NewNop())

	_, err := svc.CreateTicket(context.Background(), testUser("u1", "company-a", domain.RoleUser), TicketCreateInput{
		Title:       "   ",
		Description: "something",
	})
	if err == nil {
		t.Fatal("expected validation error for blank title")
	}
}

func TestUpdateStatus_DispatchesWithActorRole(t *testing.T) {
	assignee := "m1"
	repo := newStubTicketRepo(&domain.Ticket{
		ID:           "t1",
		CompanyID:    "company-a",
		Status:       domain.TicketStatusInProgress,
		AssignedToID: &assignee,
	})
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(repo, dispatcher, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), testUser("m1", "company-a", domain.RoleModerator), "t1", domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	events := dispatcher.dispatched()
	if len(events) != 1 || events[0].Name != workflow.EventTicketUpdated {
		t.Fatalf("expected one status event, got %+v", events)
	}
	if events[0].PayloadString("status") != "RESOLVED" {
		t.Fatalf("event must carry target status, got %v", events[0].Payload)
	}
	if events[0].PayloadString("assignedToRole") != "MODERATOR" {
		t.Fatalf("event must carry actor role, got %v", events[0].Payload)
	}
}

func TestUpdateStatus_TerminalStateIsFinal(t *testing.T) {
	repo := newStubTicketRepo(&domain.Ticket{
		ID:        "t1",
		CompanyID: "company-a",
		Status:    domain.TicketStatusResolved,
	})
	svc := NewTicketService(repo, &recordingDispatcher{}, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), testUser("a1", "company-a", domain.RoleAdmin), "t1", domain.TicketStatusRejected)
	if err == nil {
		t.Fatal("expected conflict for terminal ticket")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", domainErr.Code)
	}
}

func TestUpdateStatus_ModeratorMustBeAssignee(t *testing.T) {
	other := "m2"
	repo := newStubTicketRepo(&domain.Ticket{
		ID:           "t1",
		CompanyID:    "company-a",
		Status:       domain.TicketStatusInProgress,
		AssignedToID: &other,
	})
	svc := NewTicketService(repo, &recordingDispatcher{}, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), testUser("m1", "company-a", domain.RoleModerator), "t1", domain.TicketStatusResolved)
	if err == nil {
		t.Fatal("expected forbidden for non-assignee moderator")
	}
	if apperrors.ToDomainError(err).Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", apperrors.ToDomainError(err).Code)
	}
}

func TestUpdateStatus_InvalidStatusRejected(t *testing.T) {
	svc := NewTicketService(newStubTicketRepo(), &recordingDispatcher{}, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), testUser("a1", "company-a", domain.RoleAdmin), "t1", domain.TicketStatus("ON_FIRE"))
	if err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}

func TestGetTicket_CrossTenantHidden(t *testing.T) {
	repo := newStubTicketRepo(&domain.Ticket{
		ID:          "t1",
		CompanyID:   "company-b",
		CreatedByID: "u9",
		Status:      domain.TicketStatusPending,
	})
	svc := NewTicketService(repo, &recordingDispatcher{}, zap.NewNop())

	_, err := svc.GetTicket(context.Background(), testUser("a1", "company-a", domain.RoleAdmin), "t1")
	if err == nil {
		t.Fatal("cross-tenant tickets must be hidden")
	}
	if apperrors.ToDomainError(err).Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", apperrors.ToDomainError(err).Code)
	}
}

func TestGetTicket_CreatorAndAssigneeVisibility(t *testing.T) {
	assignee := "m1"
	repo := newStubTicketRepo(&domain.Ticket{
		ID:           "t1",
		CompanyID:    "company-a",
		CreatedByID:  "u1",
		AssignedToID: &assignee,
		Status:       domain.TicketStatusInProgress,
	})
	svc := NewTicketService(repo, &recordingDispatcher{}, zap.NewNop())

	if _, err := svc.GetTicket(context.Background(), testUser("u1", "company-a", domain.RoleUser), "t1"); err != nil {
		t.Fatalf("creator must see own ticket: %v", err)
	}
	if _, err := svc.GetTicket(context.Background(), testUser("m1", "company-a", domain.RoleModerator), "t1"); err != nil {
		t.Fatalf("assignee must see assigned ticket: %v", err)
	}
	if _, err := svc.GetTicket(context.Background(), testUser("u2", "company-a", domain.RoleUser), "t1"); err == nil {
		t.Fatal("unrelated user must not see the ticket")
	}
}
