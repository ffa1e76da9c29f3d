package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslatorRendersTemplates(t *testing.T) {
	tr := NewTranslator("es")

	assert.Equal(t, "Confirma tu inscripción en Congreso", tr.T("", "confirmation_subject", map[string]any{"Event": "Congreso"}))
	assert.Equal(t, "Confirm your registration for Congress", tr.T("en", "confirmation_subject", map[string]any{"Event": "Congress"}))
}

func TestTranslatorFallsBack(t *testing.T) {
	tr := NewTranslator("es")

	assert.Equal(t, "asistente", tr.T("fr", "role_attendee", nil))
	assert.Equal(t, "missing_key", tr.T("es", "missing_key", nil))
	assert.Equal(t, "", tr.T("es", "", nil))
}

func TestCatalogsAreComplete(t *testing.T) {
	tr := NewTranslator("es")
	keys := []string{
		"confirmation_body", "credentials_subject", "credentials_body",
		"state_approved_subject", "state_pending_subject", "state_rejected_subject",
		"invitation_subject", "event_created_subject", "certificate_subject",
		"certificate_kind_award",
	}
	for _, k := range keys {
		assert.NotEqual(t, k, tr.T("es", k, map[string]any{}), k)
		assert.NotEqual(t, k, tr.T("en", k, map[string]any{}), k)
	}
}
