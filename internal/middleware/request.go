package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/response"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// RequestID tags every request with an id, reusing the caller's X-Request-ID
// when it is short and made of safe characters.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if !validRequestID(reqID) {
			reqID = uuid.New().String()
		}
		c.Set(response.ContextKeyRequestID, reqID)
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// RequestLogger writes one zerolog line per request in place of gin's text
// logger. Errors attached with c.Error end up in error_message.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()

	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		event := log.Info()
		switch {
		case param.StatusCode >= 500:
			event = log.Error()
		case param.StatusCode >= 400:
			event = log.Warn()
		}

		reqID, _ := param.Keys[response.ContextKeyRequestID].(string)
		event.
			Str("request_id", reqID).
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")

		// Already logged; nothing for gin's writer.
		return ""
	})
}
