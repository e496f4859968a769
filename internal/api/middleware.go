package api

import (
	"io"
	"net/http"
	"time"

	"barbershop/internal/auth"
	"barbershop/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxSession      = "session"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)
		metrics.ObserveHTTP(endpoint, dur)

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Err(c.Errors.Last().Err)
		}
		event.
			Str("request_id", c.GetString(ctxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Dur("duration", dur).
			Msg("http request")
	}
}

func recovery(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error().Interface("panic", recovered).Str("request_id", c.GetString(ctxRequestID)).Msg("handler panicked")
		writeError(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
	})
}

// optionalSession resolves a bearer token when one is sent. A bad token is
// rejected; a missing one is not.
func (s *HTTPServer) optionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := auth.BearerFromHeader(c.GetHeader("Authorization"))
		if bearer == "" {
			c.Next()
			return
		}
		sess, err := s.auth.Resolve(c.Request.Context(), bearer)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(ctxSession, sess)
		c.Next()
	}
}

func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionFrom(c) == nil {
			writeError(c, http.StatusUnauthorized, msgSignInRequired)
			return
		}
		c.Next()
	}
}

// adminRateLimit throttles each admin session separately.
func (s *HTTPServer) adminRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if sess := sessionFrom(c); sess != nil {
			key = sess.UserID
		}
		if !s.adminLimiter.Allow(key) {
			writeError(c, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *auth.Session {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}
