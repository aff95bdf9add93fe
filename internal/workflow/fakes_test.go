package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, t := range tickets {
		copied := *t
		repo.tickets[t.ID] = &copied
	}
	return repo
}

func (r *fakeTicketRepo) get(id string) (*domain.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (r *fakeTicketRepo) snapshot(id string) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tickets[id]
	copied := *t
	return &copied
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return nil, err
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, assignedToRole *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.Status = status
	if assignedToRole != nil {
		t.AssignedToRole = assignedToRole
	}
	return nil
}

func (r *fakeTicketRepo) UpdateTriage(ctx context.Context, id string, priority domain.TicketPriority, category, notes string, relatedSkills []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.Priority = priority
	t.Category = &category
	t.Notes = &notes
	t.RelatedSkills = append([]string{}, relatedSkills...)
	return nil
}

func (r *fakeTicketRepo) UpdateNotes(ctx context.Context, id string, status domain.TicketStatus, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.Status = status
	t.Notes = &notes
	return nil
}

func (r *fakeTicketRepo) Assign(ctx context.Context, id string, assignee domain.Assignee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	role := domain.RoleModerator
	t.AssignedToID = &assignee.ID
	t.AssignedToName = &assignee.Name
	t.AssignedToEmail = &assignee.Email
	t.AssignedToRole = &role
	t.Status = domain.TicketStatusInProgress
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users []domain.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }
func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error { return nil }

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			copied := u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListModerators(ctx context.Context, companyID string) ([]domain.User, error) {
	var result []domain.User
	for _, u := range r.users {
		if u.CompanyID == companyID && u.Role == domain.RoleModerator {
			result = append(result, u)
		}
	}
	return result, nil
}

type fakeClassifier struct {
	mu       sync.Mutex
	analysis *ai.Analysis
	err      error
	calls    int
}

func (c *fakeClassifier) Classify(ctx context.Context, title, description string) (*ai.Analysis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	copied := *c.analysis
	return &copied, nil
}

func (c *fakeClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type sentMail struct {
	to      string
	subject string
	html    string
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failSend bool
}

func (m *fakeMailer) Send(to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func (m *fakeMailer) sentMails() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail{}, m.sent...)
}
