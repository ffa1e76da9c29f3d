package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/invitation"
	"github.com/gravadigital/eventsoft-api/internal/domain/notification"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
	"github.com/gravadigital/eventsoft-api/internal/storage/files"
	"github.com/gravadigital/eventsoft-api/internal/token"
	rules "github.com/gravadigital/eventsoft-api/internal/validation"
)

// errorRule maps a sentinel error to the HTTP answer a client gets
type errorRule struct {
	err    error
	status int
	code   string
}

// errorRules is checked in order; the first sentinel found in the chain wins
var errorRules = []errorRule{
	{services.ErrDocumentRequired, http.StatusBadRequest, "DOCUMENT_REQUIRED"},
	{services.ErrUnknownAsset, http.StatusBadRequest, "UNKNOWN_ASSET"},
	{account.ErrRoleSelection, http.StatusBadRequest, "ROLE_REQUIRED"},

	{account.ErrInvalidPassword, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{account.ErrInactive, http.StatusUnauthorized, "ACCOUNT_INACTIVE"},

	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrAttendeeNotApproved, http.StatusForbidden, "ATTENDEE_NOT_APPROVED"},
	{account.ErrRoleNotGranted, http.StatusForbidden, "ROLE_NOT_GRANTED"},
	{event.ErrNotAdministrator, http.StatusForbidden, "NOT_EVENT_ADMINISTRATOR"},
	{invitation.ErrInvitationInactive, http.StatusForbidden, "INVITATION_INACTIVE"},
	{invitation.ErrCreationDeadlinePassed, http.StatusForbidden, "CREATION_DEADLINE_PASSED"},
	{invitation.ErrWrongKind, http.StatusForbidden, "INVITATION_WRONG_KIND"},

	{event.ErrNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{enrollment.ErrNotFound, http.StatusNotFound, "ENROLLMENT_NOT_FOUND"},
	{account.ErrNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{criterion.ErrNotFound, http.StatusNotFound, "CRITERION_NOT_FOUND"},
	{scoring.ErrNotFound, http.StatusNotFound, "SCORE_NOT_FOUND"},
	{invitation.ErrNotFound, http.StatusNotFound, "INVITATION_NOT_FOUND"},
	{certificate.ErrNotFound, http.StatusNotFound, "TEMPLATE_NOT_FOUND"},
	{files.ErrFileNotFound, http.StatusNotFound, "FILE_NOT_FOUND"},

	{account.ErrDuplicate, http.StatusConflict, "ACCOUNT_EXISTS"},
	{account.ErrIdentityMismatch, http.StatusConflict, "IDENTITY_MISMATCH"},
	{enrollment.ErrDuplicate, http.StatusConflict, "ALREADY_ENROLLED"},
	{services.ErrAlreadyEnrolled, http.StatusConflict, "ALREADY_ENROLLED"},
	{services.ErrConfirmationPending, http.StatusConflict, "CONFIRMATION_PENDING"},
	{services.ErrNotCancellable, http.StatusConflict, "NOT_CANCELLABLE"},
	{event.ErrClosed, http.StatusConflict, "EVENT_CLOSED"},
	{event.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{enrollment.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{invitation.ErrInvalidState, http.StatusConflict, "INVALID_TRANSITION"},
	{invitation.ErrQuotaExhausted, http.StatusConflict, "QUOTA_EXHAUSTED"},

	{token.ErrTokenInvalid, http.StatusGone, "TOKEN_INVALID"},

	{criterion.ErrWeightExceeded, http.StatusUnprocessableEntity, "WEIGHT_EXCEEDED"},
	{criterion.ErrInvalidWeight, http.StatusUnprocessableEntity, "INVALID_WEIGHT"},
	{criterion.ErrDescriptionMissing, http.StatusUnprocessableEntity, "DESCRIPTION_REQUIRED"},
	{scoring.ErrOutOfRange, http.StatusUnprocessableEntity, "SCORE_OUT_OF_RANGE"},
	{scoring.ErrNotEligible, http.StatusUnprocessableEntity, "NOT_ELIGIBLE"},
	{notification.ErrEmptyMessage, http.StatusUnprocessableEntity, "EMPTY_MESSAGE"},
	{notification.ErrNoRecipients, http.StatusUnprocessableEntity, "NO_RECIPIENTS"},
	{certificate.ErrEmptyBody, http.StatusUnprocessableEntity, "EMPTY_TEMPLATE"},
	{certificate.ErrNoRecipients, http.StatusUnprocessableEntity, "NO_RECIPIENTS"},
	{invitation.ErrInvalidQuota, http.StatusUnprocessableEntity, "INVALID_QUOTA"},
	{invitation.ErrInvalidExpiry, http.StatusUnprocessableEntity, "INVALID_EXPIRY"},
}

// classify finds the status, code and public message of err
func classify(err error) (int, string, string) {
	if rules.IsValidation(err) {
		return http.StatusBadRequest, "VALIDATION_FAILED", "validation failed"
	}
	for _, r := range errorRules {
		if errors.Is(err, r.err) {
			return r.status, r.code, r.err.Error()
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
}

// base carries what every handler needs to answer a failed request
type base struct {
	config *config.Config
	log    *log.Logger
}

// fail translates err into an error envelope. Unexpected errors expose their
// detail only in gin debug mode.
func (b base) fail(c *gin.Context, err error) {
	status, code, message := classify(err)
	body := response.ErrorResponse{Error: message, Code: code}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		body.Details = verrs
	}

	if status == http.StatusInternalServerError {
		b.log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		if b.config != nil && b.config.IsDebug() {
			body.Debug = err.Error()
		}
	} else {
		b.log.Warn("Request rejected", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}

	response.Failure(c, status, body)
}
