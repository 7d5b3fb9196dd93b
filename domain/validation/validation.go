// Package validation holds the pure predicates and sanitizers applied to every
// value that crosses the connection boundary. Nothing here performs I/O.
package validation

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/example/collab-template-demo/domain/room"
)

// Length limits, counted in characters.
const (
	MaxRoomIDLength      = 50
	MaxUserNameLength    = 20
	MaxFilenameLength    = 100
	MaxModelNameLength   = 100
	MaxInstructionLength = 500
	MaxMessageLength     = 2000
)

// Temperature bounds for generative edits.
const (
	MinTemperature     = 0.0
	MaxTemperature     = 2.0
	DefaultTemperature = 0.3
)

var (
	roomIDPattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	filenamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	modelNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+:[a-zA-Z0-9_.-]+$`)
	urlParamStrip    = regexp.MustCompile("[<>\"'`\\\\\\x00-\\x1F\\x7F]")
)

const userNameForbidden = "<>\"'`\\/{}[]"

var filenameForbidden = []string{"..", "/", "\\", "\x00", "\n", "\r"}

// ValidateRoomID checks a room identifier.
func ValidateRoomID(id string) error {
	n := utf8.RuneCountInString(id)
	if n < 1 || n > MaxRoomIDLength {
		return room.Invalid(room.ErrInvalidRoomID, "room", "must be 1-50 characters")
	}
	if !roomIDPattern.MatchString(id) {
		return room.Invalid(room.ErrInvalidRoomID, "room", "may only contain letters, digits, '-' and '_'")
	}
	return nil
}

// ValidateUserName checks a display name.
func ValidateUserName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxUserNameLength || strings.TrimSpace(name) == "" {
		return room.Invalid(room.ErrInvalidUserName, "name", "must be 1-20 characters")
	}
	if strings.ContainsAny(name, userNameForbidden) {
		return room.Invalid(room.ErrInvalidUserName, "name", "contains forbidden characters")
	}
	return nil
}

// ValidateFilename checks a template file selector.
func ValidateFilename(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxFilenameLength {
		return room.Invalid(room.ErrInvalidTemplate, "filename", "must be 1-100 characters")
	}
	for _, p := range filenameForbidden {
		if strings.Contains(name, p) {
			return room.Invalid(room.ErrInvalidTemplate, "filename", "contains a path component")
		}
	}
	if !strings.HasSuffix(name, ".md") {
		return room.Invalid(room.ErrInvalidTemplate, "filename", "must end with .md")
	}
	if !filenamePattern.MatchString(name) {
		return room.Invalid(room.ErrInvalidTemplate, "filename", "contains forbidden characters")
	}
	return nil
}

// ValidateModelName checks an Ollama model reference of the form name:tag.
func ValidateModelName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxModelNameLength {
		return room.Invalid(room.ErrInvalidModel, "model", "must be 1-100 characters")
	}
	if !modelNamePattern.MatchString(name) {
		return room.Invalid(room.ErrInvalidModel, "model", "must look like name:tag")
	}
	return nil
}

// ValidateMessageText trims chat text and checks its length.
func ValidateMessageText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)
	if n < 1 {
		return "", room.Invalid(room.ErrInvalidMessage, "text", "message is empty")
	}
	if n > MaxMessageLength {
		return "", room.Invalid(room.ErrInvalidMessage, "text", "message exceeds 2000 characters")
	}
	return trimmed, nil
}

// SanitizeURLParam decodes a query value and removes markup and control characters.
func SanitizeURLParam(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return strings.TrimSpace(urlParamStrip.ReplaceAllString(decoded, ""))
}

// ResolveTemperature turns an optional request value into a usable temperature.
// Numbers and numeric strings are accepted; anything else yields fallback.
func ResolveTemperature(raw any, fallback float64) float64 {
	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case float32:
		v = float64(t)
	case int:
		v = float64(t)
	case int64:
		v = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return fallback
		}
		v = parsed
	default:
		return fallback
	}
	if math.IsNaN(v) {
		return fallback
	}
	v = math.Max(MinTemperature, math.Min(MaxTemperature, v))
	return math.Floor(v*10+0.5) / 10
}
