// Package validation provides input validation helpers for the HTTP API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for free-form string fields
const MaxStringLength = 10000

var (
	// slugRegex validates org slugs: 3-64 lowercase alphanumeric/hyphens,
	// starting and ending with an alphanumeric.
	slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)
	// emailRegex is a permissive shape check; real verification happens via
	// the confirmation mail, not here.
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// handleRegex validates player in-game handles.
	handleRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.#-]{0,30}[A-Za-z0-9#]$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidSlug checks an organization slug.
func IsValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// IsValidEmail checks the rough shape of an email address.
func IsValidEmail(s string) bool {
	return len(s) <= 254 && emailRegex.MatchString(s)
}

// IsValidHandle checks a player handle (2-32 chars, game-tag friendly).
func IsValidHandle(s string) bool {
	return handleRegex.MatchString(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeSlug lowercases and trims a slug.
func NormalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
