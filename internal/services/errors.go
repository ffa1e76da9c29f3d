package services

import (
	"errors"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
)

var (
	ErrDocumentRequired    = errors.New("a support document is required for this registration")
	ErrIdentityMismatch    = account.ErrIdentityMismatch
	ErrConfirmationPending = errors.New("a registration for this event is waiting for email confirmation")
	ErrAlreadyEnrolled     = errors.New("already registered for this event")
	ErrNotCancellable      = errors.New("only pending registrations can be cancelled")
	ErrForbidden           = errors.New("the active role cannot perform this operation")
	ErrUnknownAsset        = errors.New("unknown event asset")
	ErrAttendeeNotApproved = errors.New("attendees can log in only with an approved registration")
)
