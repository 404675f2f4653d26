package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/repwatch/reputation-bot/internal/config"
	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers reports and alerts via the configured channels: a generic
// JSON webhook and/or SMTP email. Delivery failures on one channel do not
// prevent delivery on the other.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ NotificationInterface = (*Service)(nil)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendReport delivers a period report via all configured channels
func (s *Service) SendReport(report *models.Report) error {
	var errs []string

	if s.config.AlertWebhookURL != "" {
		if err := s.postWebhook("report", report); err != nil {
			logrus.Errorf("Failed to send report webhook: %v", err)
			errs = append(errs, fmt.Sprintf("webhook: %v", err))
		}
	}

	if s.config.AlertEmail != "" {
		subject := fmt.Sprintf("Reputation report: %s (%s)", report.EntityName, report.Period)
		if err := s.sendEmail(subject, reportBody(report)); err != nil {
			logrus.Errorf("Failed to send report email: %v", err)
			errs = append(errs, fmt.Sprintf("email: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("report delivery failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendAlert delivers an urgent alert via all configured channels
func (s *Service) SendAlert(alert *models.Alert) error {
	var errs []string

	if s.config.AlertWebhookURL != "" {
		if err := s.postWebhook("alert", alert); err != nil {
			logrus.Errorf("Failed to send alert webhook: %v", err)
			errs = append(errs, fmt.Sprintf("webhook: %v", err))
		}
	}

	if s.config.AlertEmail != "" {
		if err := s.sendEmail(alert.Title, alert.Message); err != nil {
			logrus.Errorf("Failed to send alert email: %v", err)
			errs = append(errs, fmt.Sprintf("email: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("alert delivery failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) postWebhook(kind string, payload interface{}) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"kind":    kind,
			"payload": payload,
		}).
		Post(s.config.AlertWebhookURL)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	logrus.Debugf("Delivered %s webhook", kind)
	return nil
}

func (s *Service) sendEmail(subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.AlertEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logrus.Infof("Sent email to %s: %s", s.config.AlertEmail, subject)
	return nil
}

func reportBody(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Reputation report for %s (%s)\n", report.EntityName, report.Period)
	fmt.Fprintf(&b, "Generated at %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total mentions: %d\n", report.TotalMentions)

	for _, label := range []string{"positive", "neutral", "negative"} {
		if n, ok := report.SentimentBreakdown[label]; ok {
			fmt.Fprintf(&b, "  %s: %d\n", label, n)
		}
	}

	if report.RollingScore != nil {
		fmt.Fprintf(&b, "Rolling reputation score: %.3f\n", *report.RollingScore)
	}

	if len(report.TopSources) > 0 {
		fmt.Fprintf(&b, "\nTop sources: %s\n", strings.Join(report.TopSources, ", "))
	}

	if len(report.TopNegativeTitles) > 0 {
		b.WriteString("\nTop negative headlines:\n")
		for _, title := range report.TopNegativeTitles {
			fmt.Fprintf(&b, "  - %s\n", title)
		}
	}

	if report.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", report.Summary)
	}
	if len(report.Actions) > 0 {
		b.WriteString("\nSuggested actions:\n")
		for _, action := range report.Actions {
			fmt.Fprintf(&b, "  - %s\n", action)
		}
	}

	return b.String()
}
