package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schedule-service/internal/schedule"
)

// statusClientClosedRequest is the nginx convention for a request whose
// client disconnected before the answer was ready.
const statusClientClosedRequest = 499

// respondError maps resolver and gateway failures onto HTTP statuses.
func (a *App) respondError(c *gin.Context, err error) {
	status, detail := classify(err)
	log := a.logger().With(
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestID(c)),
		zap.Error(err),
	)

	switch {
	case status == statusClientClosedRequest:
		log.Info("client went away")
		c.AbortWithStatus(status)
		return
	case status >= http.StatusInternalServerError:
		log.Error("request failed")
	default:
		log.Warn("request rejected")
	}

	resp := ErrorResponse{Detail: detail}
	if status == http.StatusInternalServerError && a.Debug {
		resp.Error = err.Error()
		resp.ErrorType = fmt.Sprintf("%T", err)
		resp.Path = c.Request.URL.Path
	}
	c.AbortWithStatusJSON(status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, schedule.ErrInvalidInterval):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, schedule.ErrNotFound):
		return http.StatusNotFound, fmt.Sprintf("couldn't find object or its data, detail: { %v }", err)
	case errors.Is(err, schedule.ErrConnection):
		return http.StatusBadGateway, fmt.Sprintf("Couldn't connect to upstream server, info: { %v }", err)
	case errors.Is(err, schedule.ErrTimeout):
		return http.StatusGatewayTimeout, fmt.Sprintf("Didn't receive a timely response from upstream server, info: %v", err)
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Didn't receive a timely response from upstream server"
	default:
		return http.StatusInternalServerError, "Exception occurred"
	}
}
