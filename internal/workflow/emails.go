package workflow

import (
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func assignmentEmailHTML(t *domain.Ticket) string {
	name := ""
	if t.AssignedToName != nil {
		name = *t.AssignedToName
	}
	return fmt.Sprintf(`
    <div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
      <h2 style="color: #007BFF;">Ticket Assignment Notification</h2>
      <p>Dear <strong>%s</strong>,</p>

      <p>You have been assigned to a new support ticket. Please review the details below:</p>

      <div style="background: #f8f9fa; padding: 15px; border-radius: 8px; border: 1px solid #ddd; margin-top: 10px;">
        <p><strong>Title:</strong> %s</p>
        <p><strong>Description:</strong> %s</p>
        <p><strong>Priority:</strong> %s</p>
        <p><strong>Category:</strong> %s</p>
      </div>

      <p style="margin-top: 20px;">Please take action as soon as possible.</p>

      <p>Thank you,<br/>Support Team</p>
    </div>`,
		name, t.Title, t.Description, t.Priority, derefOr(t.Category, ""))
}

func statusEmailHTML(t *domain.Ticket, status domain.TicketStatus) string {
	return fmt.Sprintf(`
    <div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
      <h2 style="color: #007BFF;">Ticket Status Update</h2>
      <p>Dear <strong>%s</strong>,</p>

      <p>The status of your ticket has been updated. Please review the details below:</p>

      <div style="background: #f8f9fa; padding: 15px; border-radius: 8px; border: 1px solid #ddd; margin-top: 10px;">
        <p><strong>Title:</strong> %s</p>
        <p><strong>Description:</strong> %s</p>
        <p><strong>Priority:</strong> %s</p>
        <p><strong>Category:</strong> %s</p>
        <p><strong>Status:</strong> %s</p>
      </div>

      <p style="margin-top: 20px;">Please take action as necessary.</p>

      <p>Thank you,<br/>Support Team</p>
    </div>`,
		t.CreatedByName, t.Title, t.Description, t.Priority, derefOr(t.Category, ""), status)
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
