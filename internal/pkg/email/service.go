// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

const (
	resendURL     = "https://api.resend.com/emails"
	sendGridURL   = "https://api.sendgrid.com/v3/mail/send"
	mailerSendURL = "https://api.mailersend.com/v1/email"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	templates map[EmailType]*template.Template
	client    *http.Client
	log       *logrus.Logger

	// provider endpoints, replaced in tests
	endpoints map[string]string
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, log *logrus.Logger) (*EmailService, error) {
	service := &EmailService{
		config:    cfg,
		templates: make(map[EmailType]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
		endpoints: map[string]string{
			"resend":     resendURL,
			"sendgrid":   sendGridURL,
			"mailersend": mailerSendURL,
		},
	}

	if err := service.loadTemplates(); err != nil {
		return nil, err
	}

	return service, nil
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if len(email.To) == 0 || email.To[0] == "" {
		return fmt.Errorf("email has no recipient")
	}

	switch s.config.Email.Provider {
	case "log", "":
		s.log.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email not sent, log provider active")
		return nil
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "mailersend":
		return s.sendMailerSendEmail(ctx, email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// SendOrderConfirmationEmail sends order confirmation email
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	data.EmailTemplateData = s.baseData(data.UserName, data.UserEmail)

	htmlContent, err := s.renderTemplate(EmailTypeOrderConfirmation, data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"order_total":  data.OrderTotal,
		},
	}

	return s.SendEmail(ctx, email)
}

// SendOrderStatusUpdateEmail sends order status update notification
func (s *EmailService) SendOrderStatusUpdateEmail(ctx context.Context, data OrderStatusUpdateData) error {
	data.EmailTemplateData = s.baseData(data.UserName, data.UserEmail)

	htmlContent, err := s.renderTemplate(EmailTypeOrderStatusUpdate, data)
	if err != nil {
		return fmt.Errorf("failed to render order status update template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Update - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderStatusUpdate,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"status":       data.Status,
		},
	}

	return s.SendEmail(ctx, email)
}

func (s *EmailService) baseData(userName, userEmail string) EmailTemplateData {
	return GetBaseTemplateData(
		s.config.Email.FromName,
		s.config.Notification.BaseURL,
		userName,
		userEmail,
	)
}

// loadTemplates parses every content template against the shared layout
func (s *EmailService) loadTemplates() error {
	contents := map[EmailType]string{
		EmailTypeOrderConfirmation: orderConfirmationTemplate,
		EmailTypeOrderStatusUpdate: orderStatusUpdateTemplate,
	}

	for name, content := range contents {
		tmpl, err := template.New(string(name)).Parse(layoutTemplate)
		if err != nil {
			return fmt.Errorf("failed to parse email layout: %w", err)
		}
		if _, err := tmpl.Parse(content); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		s.templates[name] = tmpl
	}

	return nil
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(name EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

func (s *EmailService) fromAddress() string {
	if s.config.Email.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	}
	return s.config.Email.FromEmail
}
