package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
	"github.com/laocai-wudi/chunmpre.cn/pkg/validator"
)

// Response is the JSON envelope for every non-binary response.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format. Count
// and Limit are set for blocked deletions and exhausted featured slots.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Count     *int              `json:"count,omitempty"`
	Limit     *int              `json:"limit,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in the Response envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError renders err into the error envelope. AppErrors keep their code
// and message; bare sentinels get a generic message. 5xx errors are logged
// with the request-scoped logger when one is present.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	resp := &ErrorResponse{RequestID: requestID}
	status := apperrors.HTTPStatus(err)

	if appErr, ok := apperrors.As(err); ok {
		resp.Code, resp.Message = appErr.Code, appErr.Message
		switch {
		case errors.Is(err, apperrors.ErrSlotsFull):
			resp.Count, resp.Limit = intPtr(appErr.Count), intPtr(appErr.Limit)
		case errors.Is(err, apperrors.ErrPreconditionFailed):
			resp.Count = intPtr(appErr.Count)
		}
	} else {
		resp.Code, resp.Message = codeForStatus(status)
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: resp})
}

func codeForStatus(status int) (string, string) {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		return "CONFLICT", "resource conflict"
	case http.StatusPreconditionFailed:
		return "PRECONDITION_FAILED", "precondition failed"
	case http.StatusBadRequest:
		return "INVALID_INPUT", "invalid input"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED", "unauthorized"
	case http.StatusForbidden:
		return "FORBIDDEN", "forbidden"
	default:
		return "INTERNAL_ERROR", "an internal error occurred"
	}
}

func intPtr(v int) *int { return &v }

// WriteBadRequest writes a 400 with the given code and message.
func WriteBadRequest(w http.ResponseWriter, code, message string) {
	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: code, Message: message},
	})
}

// WriteBinary streams a stored payload with its recorded content type and an
// inline Content-Disposition. The content type is never sniffed.
func WriteBinary(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// WriteAttachment streams a generated file as a download.
func WriteAttachment(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ParseUUID validates a path parameter. On failure it writes a 400 and
// returns false so the caller can return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteBadRequest(w, "INVALID_PARAMETER", "invalid UUID: "+param)
		return uuid.Nil, false
	}
	return id, true
}
