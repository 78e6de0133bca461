package handler

import (
	"net/http"

	"forgeline/pkg/apperr"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

// abortWithError maps engine error kinds to HTTP statuses and writes the
// standard envelope, including the blocker list on precondition failures.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindPrecondition:
		status = http.StatusUnprocessableEntity
	case apperr.KindContention:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindConflict:
		status = http.StatusConflict
	}

	if blockers := apperr.BlockersOf(err); len(blockers) > 0 {
		c.JSON(status, response.ErrorWithBlockers(status, err.Error(), blockers))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}
