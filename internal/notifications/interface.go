package notifications

import "github.com/repwatch/reputation-bot/internal/models"

// NotificationInterface defines the contract for the alert channel
type NotificationInterface interface {
	SendReport(report *models.Report) error
	SendAlert(alert *models.Alert) error
}
