package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/middleware"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

// callerID returns the resolved user id or writes a 422 and returns false.
func callerID(c *gin.Context) (string, bool) {
	caller, ok := middleware.CurrentCaller(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingIdentity)
		return "", false
	}
	return caller.UserID, true
}

// bindJSON decodes the request body, answering 422 on malformed input.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusUnprocessableEntity, "invalid payload"))
		return false
	}
	return true
}
