package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/eventsoft-api/internal/config"
)

func TestNewSelectsDriver(t *testing.T) {
	cfg := &config.Config{}

	cfg.Mail.Driver = "log"
	m, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	cfg.Mail.Driver = "smtp"
	m, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	cfg.Mail.Driver = "pigeon"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestLogMailerCapturesAndFails(t *testing.T) {
	l := NewLogMailer()
	msg := Message{To: []string{"ana@example.com"}, Subject: "Hola", HTML: "<p>Hola</p>"}

	require.NoError(t, l.Send(context.Background(), msg))
	assert.Equal(t, []Message{msg}, l.Sent())

	l.FailWith(errors.New("down"))
	assert.Error(t, l.Send(context.Background(), msg))
	assert.Len(t, l.Sent(), 1)
}
