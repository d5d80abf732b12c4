package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func errorResponse(c *gin.Context, status int, code ErrorCode) {
	c.AbortWithStatusJSON(status, getErrorStruct(code))
}

func validationErrorResponse(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		out := make([]ValidationError, len(verr))
		for i, ferr := range verr {
			out[i] = ValidationError{ferr.Field(), msgForTag(ferr.Tag(), ferr.Param())}
		}
		response := ValidationErrorStruct{
			ErrorCode:    6000,
			ErrorMessage: "Validation error",
		}
		response.Errors = out
		c.AbortWithStatusJSON(http.StatusBadRequest, response)
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, getErrorStruct(UnknownErrorCode))
}

func msgForTag(tag string, value string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Minimum field length is %v", value)
	case "max":
		return fmt.Sprintf("Maximum field length is %v", value)
	case "verificationcode":
		return "Code must be 6 digits"
	}
	return tag
}
