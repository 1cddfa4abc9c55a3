package commandguard

import (
	"regexp"
	"strings"
)

// PermissionResult is a graded alternative to the boolean Analyze/IsSafe
// pair, for callers that want auto-approve/require-approval/deny tiers
// instead of a binary decision. It is additive: Analyze and IsSafe keep
// their exact documented semantics regardless of how this is configured.
type PermissionResult string

const (
	AutoApprove    PermissionResult = "auto_approve"
	RequireApproval PermissionResult = "require_approval"
	Deny           PermissionResult = "deny"
)

// Pattern is one entry in a permission tier: a literal prefix match, and,
// if it contains regular-expression metacharacters, also an anchored
// regular expression.
type Pattern struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// PermissionConfig groups the three tiers a command is evaluated against,
// in order: Deny beats RequireApproval beats AutoApprove.
type PermissionConfig struct {
	AutoApprove     []Pattern `json:"auto_approve"`
	RequireApproval []Pattern `json:"require_approval"`
	Deny            []Pattern `json:"deny"`
}

// DefaultPermissionConfig seeds AutoApprove from IsSafe's safe-prefix table
// and Deny from a short fixed list of destructive commands. RequireApproval
// is left empty; commands matching no tier are graded by Analyze in
// EvaluatePermission.
func DefaultPermissionConfig() PermissionConfig {
	var auto []Pattern
	for _, p := range safePrefixes {
		auto = append(auto, Pattern{Pattern: p})
	}
	return PermissionConfig{
		AutoApprove: auto,
		Deny: []Pattern{
			{Pattern: "rm -rf", Message: "recursive forced delete"},
			{Pattern: "git push --force", Message: "force push"},
			{Pattern: "chmod 777", Message: "world-writable permissions"},
		},
	}
}

// MergePatterns overlays override on top of base: override entries for a
// pattern already present in base replace it; new patterns are appended.
func MergePatterns(base, override []Pattern) []Pattern {
	out := make([]Pattern, 0, len(base)+len(override))
	seen := make(map[string]int)
	for _, p := range base {
		seen[p.Pattern] = len(out)
		out = append(out, p)
	}
	for _, p := range override {
		if idx, ok := seen[p.Pattern]; ok {
			out[idx] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// EvaluatePermission grades command against cfg's three tiers. Deny is
// checked first (a command that is both deny-listed and auto-approved is
// denied), then RequireApproval, then AutoApprove; anything matching none
// of the three falls through to the Analyze-based classification so
// callers without a fully-populated config still get sane behavior.
func EvaluatePermission(command string, cfg PermissionConfig) (PermissionResult, string) {
	if p, msg, ok := matchAny(command, cfg.Deny); ok {
		return Deny, interpolateMessage(msg, p, command)
	}
	if p, msg, ok := matchAny(command, cfg.RequireApproval); ok {
		return RequireApproval, interpolateMessage(msg, p, command)
	}
	if _, _, ok := matchAny(command, cfg.AutoApprove); ok {
		return AutoApprove, ""
	}

	if r := Analyze(command); r.Dangerous {
		return Deny, r.Reason
	}
	return RequireApproval, ""
}

func matchAny(command string, patterns []Pattern) (Pattern, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(command))
	for _, p := range patterns {
		pat := strings.ToLower(p.Pattern)
		if strings.HasPrefix(lower, pat) {
			return p, p.Message, true
		}
		if looksLikeRegexPattern(pat) {
			if re, err := regexp.Compile("^" + pat); err == nil && re.MatchString(lower) {
				return p, p.Message, true
			}
		}
	}
	return Pattern{}, "", false
}

func looksLikeRegexPattern(pattern string) bool {
	return strings.ContainsAny(pattern, `.*+?[]()^$\|`)
}

func interpolateMessage(msg string, p Pattern, command string) string {
	if msg == "" {
		return ""
	}
	out := strings.ReplaceAll(msg, "$0", command)
	out = strings.ReplaceAll(out, "$1", p.Pattern)
	return out
}

// EvaluateScript parses command as a shell script via ExtractCommands and
// grades every command it unwraps (including ones hidden behind sudo, env,
// xargs, find -exec, sh -c, and similar wrappers), returning the most
// restrictive PermissionResult found. A script with no sub-commands the
// parser recognizes falls back to grading command itself.
func EvaluateScript(command string, cfg PermissionConfig) (PermissionResult, string) {
	commands := ExtractCommands(command)
	if len(commands) == 0 {
		return EvaluatePermission(command, cfg)
	}

	worst := AutoApprove
	var worstMsg string
	for _, c := range commands {
		result, msg := EvaluatePermission(c, cfg)
		if rank(result) > rank(worst) {
			worst, worstMsg = result, msg
		}
	}
	return worst, worstMsg
}

func rank(r PermissionResult) int {
	switch r {
	case Deny:
		return 2
	case RequireApproval:
		return 1
	default:
		return 0
	}
}
