package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/middleware"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

// uuidParam parses a path parameter, answering 400 when it is not a UUID
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequestError(c, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Failure(c, http.StatusBadRequest, response.ErrorResponse{
			Error:   "invalid request payload",
			Code:    "BAD_REQUEST",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// actor is the active role set by the session middleware; guarded routes always have one
func actor(c *gin.Context) account.ActiveRole {
	active, _ := middleware.Actor(c)
	return active
}

// optionalActor is nil on public requests without a session
func optionalActor(c *gin.Context) *account.ActiveRole {
	active, ok := middleware.Actor(c)
	if !ok {
		return nil
	}
	return &active
}

// readUpload loads a multipart file, reading at most limit+1 bytes so the services can
// reject oversized files. A missing field yields nil.
func readUpload(c *gin.Context, field string, limit int64) (*services.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("readUpload -> %w", err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("readUpload -> %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("readUpload -> %w", err)
	}

	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
