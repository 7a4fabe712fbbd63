// Package logging builds the process logger and the request logging
// middleware.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// contextKey is the echo context key holding the request-scoped entry.
const contextKey = "logger"

// New returns a logger writing to stdout.  format is "json" or "text";
// an unknown level falls back to info.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, format)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(w io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// RequestLogger assigns every request an id (reusing a well-formed incoming
// X-Request-ID), echoes it in the response and logs one line per request.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			id := req.Header.Get(HeaderRequestID)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, id)

			entry := log.WithField("request_id", id)
			c.Set(contextKey, entry)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"route":      c.Path(),
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
			}
			if uid := c.Get("user_id"); uid != nil {
				fields["user_id"] = uid
			}
			e := entry.WithFields(fields)
			switch status := c.Response().Status; {
			case status >= 500:
				e.WithError(err).Error("request failed")
			case status >= 400:
				e.Warn("request rejected")
			default:
				e.Info("request")
			}
			return nil
		}
	}
}

// FromContext returns the request-scoped logger, or fallback when the
// middleware did not run.
func FromContext(c echo.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	if e, ok := c.Get(contextKey).(*logrus.Entry); ok {
		return e
	}
	return fallback
}
