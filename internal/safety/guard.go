// Package safety screens launch targets and free-form text for obviously
// destructive content before they reach the desktop. The guard is a pure
// function of its input and static configuration: it never errors, never
// mutates state, and always returns a verdict value.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Verdict is the outcome of a single safety check.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// defaultBannedPatterns cover filesystem wipes, power commands, and
// filesystem formatting across the platforms the agent can reach.
var defaultBannedPatterns = []string{
	`rm\s+-rf`,
	`shutdown`,
	`mkfs`,
	`format\s+c:`,
}

// Guard validates inputs against a banned-pattern list and an optional
// launch-target allow list. The zero value is not usable; construct with
// NewGuard.
type Guard struct {
	banned  []*regexp.Regexp
	allowed map[string]bool
}

// Config customizes a Guard.
type Config struct {
	// ExtraBannedPatterns are appended to the built-in pattern set.
	// Invalid patterns are rejected by NewGuard.
	ExtraBannedPatterns []string

	// AllowedLaunchTargets, when non-empty, restricts launch targets to
	// this set (compared case-insensitively) on top of the pattern check.
	AllowedLaunchTargets []string
}

// NewGuard compiles the pattern set and builds the allow list.
func NewGuard(cfg Config) (*Guard, error) {
	patterns := append(append([]string{}, defaultBannedPatterns...), cfg.ExtraBannedPatterns...)
	banned := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("banned pattern %q: %w", p, err)
		}
		banned = append(banned, re)
	}

	var allowed map[string]bool
	if len(cfg.AllowedLaunchTargets) > 0 {
		allowed = make(map[string]bool, len(cfg.AllowedLaunchTargets))
		for _, target := range cfg.AllowedLaunchTargets {
			allowed[strings.ToLower(strings.TrimSpace(target))] = true
		}
	}
	return &Guard{banned: banned, allowed: allowed}, nil
}

// ValidateLaunchTarget checks an application launch target. A banned
// pattern match names the pattern in the reason; with a configured allow
// list, targets outside it are rejected as well.
func (g *Guard) ValidateLaunchTarget(target string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(target))
	for _, re := range g.banned {
		if re.MatchString(normalized) {
			return Verdict{Reason: fmt.Sprintf(
				"launch target failed safety check: pattern %q disallowed", bare(re))}
		}
	}
	if g.allowed != nil && !g.allowed[normalized] {
		return Verdict{Reason: "launch target is not on the allow list"}
	}
	return Verdict{Allowed: true}
}

// ValidateText checks free-form text destined for keystroke injection.
// There is no allow-list concept for text.
func (g *Guard) ValidateText(text string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, re := range g.banned {
		if re.MatchString(normalized) {
			return Verdict{Reason: "text input failed safety check"}
		}
	}
	return Verdict{Allowed: true}
}

// bare strips the case-insensitivity prefix so reasons read like the
// configured pattern.
func bare(re *regexp.Regexp) string {
	return strings.TrimPrefix(re.String(), "(?i)")
}
