package notification

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/tkellerman/salesweather/internal/quality"
	"github.com/tkellerman/salesweather/pkg/config"
)

// EmailNotifier sends email notifications for data-quality alerts
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

// SendQualityAlert sends an email for a data-quality alert
func (e *EmailNotifier) SendQualityAlert(alert *quality.Alert) error {
	var subject string
	var body string
	var err error

	switch alert.Type {
	case quality.AlertTypeTriggered:
		subject = fmt.Sprintf("Data Quality Alert TRIGGERED - %s", alert.Reason)
		body, err = e.renderTriggeredTemplate(alert)
	case quality.AlertTypeCleared:
		subject = fmt.Sprintf("Data Quality Alert CLEARED - %s", alert.Reason)
		body, err = e.renderClearedTemplate(alert)
	default:
		return fmt.Errorf("unknown alert type: %s", alert.Type)
	}

	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(subject, body)
}

func (e *EmailNotifier) renderTriggeredTemplate(alert *quality.Alert) (string, error) {
	tmpl := `
Data Quality Alert Triggered
============================

Exclusion Reason: {{.Reason}}
Excluded Rows (since last check): {{.Value}}
Threshold: {{.Operator}} {{.Threshold}}
Duration: {{.Duration}} minutes
Start Time: {{.StartTime}}
Alert ID: {{.AlertID}}

Description:
The exclusion counter {{.Reason}} has breached its threshold
({{.Operator}} {{.Threshold}}) for {{.Duration}} minutes. A sustained spike
usually means a source system started shipping rows the harmonization joins
cannot resolve.

Check the upstream feed and reference tables before the next daily refresh.

---
Sales Weather Pipeline Notification System
`

	t, err := template.New("triggered").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, alert); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) renderClearedTemplate(alert *quality.Alert) (string, error) {
	tmpl := `
Data Quality Alert Cleared
==========================

Exclusion Reason: {{.Reason}}
Alert ID: {{.AlertID}}

Description:
The exclusion counter {{.Reason}} has returned below its threshold.

---
Sales Weather Pipeline Notification System
`

	t, err := template.New("cleared").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, alert); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}
