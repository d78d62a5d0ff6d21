package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
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

// RespondErr derives status, code and message from err's kind. Upstream
// provider and internal failures never echo their text to the client.
func RespondErr(c *gin.Context, err error) {
	status := apierr.StatusFor(err)
	code := apierr.KindOf(err).String()
	ae, ok := apierr.As(err)
	if ok && ae.Code != "" {
		code = ae.Code
	}
	if ok && ae.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(ae.RetryAfter.Seconds())))
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: apierr.PublicMessage(err),
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
