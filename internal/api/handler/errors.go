package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/internal/service"
	pkgerrors "github.com/JoshH2S/tuterra-sub001/pkg/errors"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// handleServiceError 业务错误 → HTTP 状态码
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, "internship session not found")
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, "task not found")
	case errors.Is(err, service.ErrTaskNotVisible):
		response.Forbidden(c, "task is not available yet")
	case errors.Is(err, service.ErrTaskAlreadyCompleted):
		response.Conflict(c, "task is already completed, reopen it first")
	case errors.Is(err, service.ErrTaskNotReopenable):
		response.Conflict(c, "task cannot be reopened in its current state")
	case errors.Is(err, service.ErrInvalidStartDate):
		response.BadRequest(c, msgValidationFailed, []response.FieldError{{
			Field:   "start_date",
			Rule:    "date",
			Message: "start_date must be formatted as YYYY-MM-DD",
		}})
	case errors.Is(err, service.ErrNotEntitled):
		response.Forbidden(c, "an active subscription or a valid promo code is required")
	case errors.Is(err, service.ErrUserMismatch):
		response.Forbidden(c, "user does not match the authenticated user")
	case errors.Is(err, service.ErrCooldown):
		response.TooManyRequests(c, "please wait before creating another internship")
	case errors.Is(err, service.ErrUnknownAction):
		response.BadRequest(c, "unknown action", nil)
	case errors.Is(err, service.ErrMissingTaskContext):
		response.BadRequest(c, msgValidationFailed, []response.FieldError{{
			Field:   "context.task_id",
			Rule:    "required",
			Message: "context.task_id is required for this action",
		}})
	case errors.Is(err, pkgerrors.ErrStateConflict), errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, "resource was modified concurrently, please retry")
	case errors.Is(err, pkgerrors.ErrAlreadyExists):
		response.Conflict(c, "message already scheduled")
	case errors.Is(err, service.ErrGenerationUnavailable):
		response.InternalError(c, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c, "")
	}
}
