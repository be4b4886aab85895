// Package logging sets up the structured logger every gateway component
// logs through, using logrus's field-based API so a log line carries a
// token, fd, or request ID as structured data rather than interpolated text.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus logger configured for the given component name,
// returning an Entry so call sites can chain WithField without holding
// onto the base Logger themselves.
func New(component string, level logrus.Level) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(level)
	return log.WithField("component", component)
}

// ParseLevel wraps logrus.ParseLevel with a safe fallback, so a malformed
// --log-level value degrades to Info instead of failing startup.
func ParseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
