package rules

import "sentinel/pkg/models"

// Tagger classifies activity records that arrived without a signature.
type Tagger interface {
	Tag(alert *models.Alert) bool
}

// NoopTagger leaves every alert untouched.
type NoopTagger struct{}

// Tag returns false.
func (n *NoopTagger) Tag(alert *models.Alert) bool {
	return false
}
