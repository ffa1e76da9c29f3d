package services

import (
	"net/url"
	"strings"
)

// Links builds the absolute URLs placed in outgoing mails
type Links struct {
	base string
}

func NewLinks(baseURL string) Links {
	return Links{base: strings.TrimRight(baseURL, "/")}
}

func (l Links) Confirmation(token string) string {
	return l.base + "/api/v1/registrations/confirm?token=" + url.QueryEscape(token)
}

func (l Links) Login() string {
	return l.base + "/api/v1/auth/login"
}

func (l Links) Invitation(code string) string {
	return l.base + "/api/v1/invitations/" + url.PathEscape(code) + "/register"
}
