package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"

	"legal_matter_engine/config"
	"legal_matter_engine/models"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
}

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "case_created"}}<p>Hello {{.Name}},</p>
<p>Your case <strong>{{.CaseNumber}}</strong> ({{.Title}}) has been opened in our {{.PracticeArea}} practice.</p>
<p>We will contact you shortly with next steps. You can follow progress at <a href="{{.Link}}">{{.Link}}</a>.</p>{{end}}
{{define "status_changed"}}<p>Hello {{.Name}},</p>
<p>The status of case <strong>{{.CaseNumber}}</strong> changed from <em>{{.From}}</em> to <em>{{.To}}</em>.</p>
<p><a href="{{.Link}}">View case</a></p>{{end}}
{{define "assignment"}}<p>Hello {{.Name}},</p>
{{if .TaskTitle}}<p>You have been assigned the task <strong>{{.TaskTitle}}</strong>{{if .CaseNumber}} on case {{.CaseNumber}}{{end}}.</p>
{{else}}<p>You have been assigned as attorney on case <strong>{{.CaseNumber}}</strong> ({{.Title}}).</p>{{end}}
<p><a href="{{.Link}}">Open</a></p>{{end}}
{{define "task_overdue"}}<p>Hello {{.Name}},</p>
<p>The task <strong>{{.TaskTitle}}</strong> was due on {{.DueDate}} and is still open.</p>
<p><a href="{{.Link}}">Open task</a></p>{{end}}
`))

type emailData struct {
	Name         string
	CaseNumber   string
	Title        string
	PracticeArea string
	From         string
	To           string
	TaskTitle    string
	DueDate      string
	Link         string
}

func renderEmail(templateName, toEmail, subject string, data emailData) *Email {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, templateName, data); err != nil {
		log.Printf("[EMAIL] Error rendering %s template: %v", templateName, err)
		return nil
	}
	return &Email{
		To:       []string{toEmail},
		Subject:  subject,
		HTMLBody: strings.TrimSpace(buf.String()),
	}
}

func caseLink(appURL string, c *models.Case) string {
	if c == nil {
		return strings.TrimSuffix(appURL, "/")
	}
	return strings.TrimSuffix(appURL, "/") + "/cases/" + c.ID
}

// BuildCaseCreatedEmail notifies a client that their case was opened
func BuildCaseCreatedEmail(clientEmail, clientName string, c *models.Case, appURL string) *Email {
	return renderEmail("case_created", clientEmail, fmt.Sprintf("Your case %s has been opened", c.CaseNumber), emailData{
		Name:         clientName,
		CaseNumber:   c.CaseNumber,
		Title:        c.Title,
		PracticeArea: c.PracticeArea,
		Link:         caseLink(appURL, c),
	})
}

// BuildStatusChangedEmail notifies a client of a case status change
func BuildStatusChangedEmail(clientEmail, clientName string, c *models.Case, from, to, appURL string) *Email {
	return renderEmail("status_changed", clientEmail, fmt.Sprintf("Case %s is now %s", c.CaseNumber, to), emailData{
		Name:       clientName,
		CaseNumber: c.CaseNumber,
		From:       from,
		To:         to,
		Link:       caseLink(appURL, c),
	})
}

// BuildAssignmentEmail notifies an assignee of a task or case assignment
func BuildAssignmentEmail(toEmail, name string, c *models.Case, task *models.Task, appURL string) *Email {
	data := emailData{Name: name, Link: caseLink(appURL, c)}
	subject := "New assignment"
	if c != nil {
		data.CaseNumber = c.CaseNumber
		data.Title = c.Title
		subject = fmt.Sprintf("You have been assigned to case %s", c.CaseNumber)
	}
	if task != nil {
		data.TaskTitle = task.Title
		subject = fmt.Sprintf("New task: %s", task.Title)
	}
	return renderEmail("assignment", toEmail, subject, data)
}

// BuildTaskOverdueEmail reminds an assignee of an overdue task
func BuildTaskOverdueEmail(toEmail, name string, task *models.Task, appURL string) *Email {
	data := emailData{Name: name, TaskTitle: task.Title, Link: strings.TrimSuffix(appURL, "/") + "/tasks/" + task.ID}
	if task.DueDate != nil {
		data.DueDate = task.DueDate.Format("Monday, January 2, 2006")
	}
	return renderEmail("task_overdue", toEmail, fmt.Sprintf("Overdue task: %s", task.Title), data)
}

// ResendMailer delivers email through Resend. In test mode emails are only logged.
type ResendMailer struct {
	cfg *config.Config
}

// NewResendMailer creates an EmailSink backed by Resend
func NewResendMailer(cfg *config.Config) *ResendMailer {
	return &ResendMailer{cfg: cfg}
}

// Send implements EmailSink
func (m *ResendMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	return SendEmail(ctx, m.cfg, &Email{To: []string{to}, Subject: subject, HTMLBody: htmlBody})
}

// SendEmail sends an email using Resend API
func SendEmail(ctx context.Context, cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	// Validate configuration
	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}
	if email.HTMLBody == "" {
		return fmt.Errorf("email must have an HTML body")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
	}

	sent, err := client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("[EMAIL] Sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\n[EMAIL] Development mode - not actually sent\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- HTML BODY (first 500 chars) ---\n%s...", truncate(email.HTMLBody, 500))
	log.Printf("%s\n", separator)
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
