package pipeline

import "sentinel/pkg/models"

// AlertWriter archives normalized alerts.
type AlertWriter interface {
	WriteAlerts(alerts []*models.Alert) error
	Close() error
}
