// Package toolutil provides shared helper functions for go_jobmatch MCP tools.
package toolutil

import (
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_jobmatch/internal/engine/match"
)

// Result limits accepted by the ranking tools.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// NormLimit clamps a requested result count: non-positive → DefaultLimit, above MaxLimit → MaxLimit.
func NormLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// RequireID rejects non-positive identifiers.
func RequireID(name string, id int) error {
	if id <= 0 {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

// ToolError maps matcher errors to messages suitable for tool callers.
// Not-found errors pass through unchanged; others are wrapped with the tool name.
func ToolError(tool string, err error) error {
	if errors.Is(err, match.ErrStudentNotFound) || errors.Is(err, match.ErrJobNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", tool, err)
}
