package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tessera-ai/knowledge-backend/internal/ingest"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondIngestError maps the error taxonomy onto HTTP statuses.
func RespondIngestError(c *gin.Context, err error) {
	switch ingest.KindOf(err) {
	case ingest.KindValidation:
		RespondError(c, http.StatusBadRequest, "validation", err)
	case ingest.KindNotFound:
		RespondError(c, http.StatusNotFound, "not_found", err)
	case ingest.KindForbidden:
		RespondError(c, http.StatusForbidden, "forbidden", err)
	default:
		RespondError(c, http.StatusInternalServerError, "infrastructure", err)
	}
}
