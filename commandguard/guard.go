// Package commandguard analyzes shell commands for destructive or unsafe
// patterns before an agent is allowed to run them unattended.
package commandguard

import "strings"

// Risk is the outcome of Analyze: either Safe, or Dangerous with a reason
// a human-readable warning can surface.
type Risk struct {
	Dangerous bool
	Reason    string
}

func safe() Risk { return Risk{} }

func dangerous(reason string) Risk {
	return Risk{Dangerous: true, Reason: reason}
}

// Analyze inspects a shell command and classifies it, checking patterns in
// priority order: the first match wins, so more specific/severe patterns
// (rm -rf) are checked before broader ones (pipe-to-shell).
func Analyze(command string) Risk {
	lower := strings.ToLower(strings.TrimSpace(command))

	if isRMForceRecursive(lower) {
		return dangerous("recursive forced delete can destroy data irrecoverably")
	}
	if strings.Contains(lower, "git") && strings.Contains(lower, "reset") && strings.Contains(lower, "--hard") {
		return dangerous("git reset --hard discards uncommitted changes")
	}
	if isGitForcePushMain(lower) {
		return dangerous("force-pushing to main/master can overwrite shared history")
	}
	if strings.Contains(lower, "git") && strings.Contains(lower, "clean") && strings.Contains(lower, "-f") {
		return dangerous("git clean -f permanently deletes untracked files")
	}
	if isGitCheckoutOrRestoreDot(lower) {
		return dangerous("git checkout/restore . discards all local modifications")
	}
	if isSQLDestructive(lower) {
		return dangerous("destructive SQL statement without a WHERE clause or scoped target")
	}
	if strings.Contains(lower, "chmod") && strings.Contains(lower, "777") {
		return dangerous("chmod 777 removes all permission restrictions")
	}
	if isDeviceWrite(lower) {
		return dangerous("writes directly to a block device")
	}
	if strings.Contains(lower, "mkfs") {
		return dangerous("formats a filesystem, destroying existing data")
	}
	if isForkBomb(lower) {
		return dangerous("fork bomb pattern")
	}
	if isOverwriteImportantFile(lower) {
		return dangerous("overwrites a security-sensitive system or dotfile")
	}
	if isPipeToShell(lower) {
		return dangerous("pipes a network download directly into a shell interpreter")
	}

	return safe()
}

func isRMForceRecursive(lower string) bool {
	if !strings.Contains(lower, "rm ") && !strings.HasPrefix(lower, "rm") {
		return false
	}
	for _, tok := range strings.Fields(lower) {
		if len(tok) >= 2 && tok[0] == '-' && tok[1] != '-' && !strings.HasPrefix(tok, "--") {
			hasR, hasF := false, false
			for _, c := range tok[1:] {
				if c == 'r' {
					hasR = true
				}
				if c == 'f' {
					hasF = true
				}
			}
			if hasR && hasF {
				return true
			}
		}
	}
	hasForce := strings.Contains(lower, " -f") || strings.Contains(lower, "--force")
	hasRecursive := strings.Contains(lower, " -r") || strings.Contains(lower, "--recursive")
	return hasForce && hasRecursive
}

func isGitForcePushMain(lower string) bool {
	if !strings.Contains(lower, "git") || !strings.Contains(lower, "push") {
		return false
	}
	force := strings.Contains(lower, "--force") || strings.Contains(lower, " -f")
	target := strings.Contains(lower, "main") || strings.Contains(lower, "master")
	return force && target
}

func isGitCheckoutOrRestoreDot(lower string) bool {
	hasCmd := strings.Contains(lower, "git checkout") || strings.Contains(lower, "git restore")
	if !hasCmd {
		return false
	}
	return strings.Contains(lower, " .") || strings.HasSuffix(strings.TrimRight(lower, " "), ".")
}

func isSQLDestructive(lower string) bool {
	if strings.Contains(lower, "drop table") || strings.Contains(lower, "drop database") ||
		strings.Contains(lower, "truncate table") {
		return true
	}
	if strings.Contains(lower, "delete from") && !strings.Contains(lower, "where") {
		return true
	}
	return false
}

func isDeviceWrite(lower string) bool {
	if strings.Contains(lower, "dd") && strings.Contains(lower, "of=/dev/") {
		return true
	}
	for _, dev := range []string{"/dev/sd", "/dev/nvme", "/dev/hd"} {
		if strings.Contains(lower, ">") && strings.Contains(lower, dev) {
			return true
		}
	}
	return false
}

func isForkBomb(lower string) bool {
	compact := strings.ReplaceAll(lower, " ", "")
	return strings.Contains(compact, ":(){ :|:& };:") || strings.Contains(compact, ":(){:|:&};:")
}

func isOverwriteImportantFile(lower string) bool {
	if !strings.Contains(lower, ">") {
		return false
	}
	targets := []string{
		"/etc/passwd", "/etc/shadow", "/etc/hosts",
		"~/.ssh/", "~/.bashrc", "~/.zshrc", "~/.profile",
	}
	for _, t := range targets {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func isPipeToShell(lower string) bool {
	hasFetch := strings.Contains(lower, "curl") || strings.Contains(lower, "wget")
	if !hasFetch || !strings.Contains(lower, "|") {
		return false
	}
	for _, shell := range []string{"bash", "sh", "zsh"} {
		if strings.Contains(lower, "|"+shell) || strings.Contains(lower, "| "+shell) {
			return true
		}
	}
	return false
}

// safePrefixes lists command prefixes considered read-only / inspection
// commands. A command is safe under IsSafe only if every chained segment
// starts with one of these (after whitespace-splitting the prefix itself,
// so "ls" matches "ls -la /tmp" but not "lsof").
var safePrefixes = []string{
	"ls", "find", "tree", "file", "stat", "du", "df", "wc",
	"cat", "head", "tail", "less", "bat", "grep", "rg", "ag", "fd", "fzf",
	"git status", "git log", "git diff", "git show", "git branch", "git tag",
	"git remote", "git rev-parse", "git describe", "git ls-files", "git blame",
	"cargo version", "cargo check", "cargo clippy", "cargo test", "cargo bench",
	"rustc --version", "node --version", "python --version", "go version",
	"npm test", "pytest", "go test", "go vet",
	"uname", "whoami", "hostname", "date", "printenv", "which", "type",
	"echo", "pwd", "realpath", "dirname", "basename",
}

// IsSafe applies a stricter read-only allowlist than Analyze: it rejects
// subshells and redirection outright, splits the command on chain
// operators (&&, ||, ;, |), and requires every resulting segment to match
// a safe prefix. This is meant for fully-automatic execution, not just
// flagging danger.
func IsSafe(command string) bool {
	if strings.Contains(command, "$(") || strings.Contains(command, "`") ||
		strings.Contains(command, "<(") || strings.Contains(command, ">(") {
		return false
	}

	for _, segment := range splitCommandChain(command) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if strings.Contains(segment, ">") {
			return false
		}
		if !matchesSafePrefix(segment) {
			return false
		}
	}
	return true
}

func splitCommandChain(command string) []string {
	segments := []string{command}
	for _, op := range []string{"&&", "||", ";", "|"} {
		var next []string
		for _, s := range segments {
			next = append(next, strings.Split(s, op)...)
		}
		segments = next
	}
	return segments
}

func matchesSafePrefix(segment string) bool {
	lower := strings.ToLower(strings.TrimSpace(segment))
	// "env CMD..." still runs CMD, so it must be evaluated as CMD, not
	// treated as safe just because "env" looks like an inspection tool.
	lower = strings.TrimPrefix(lower, "env ")
	lower = strings.TrimSpace(lower)

	for _, prefix := range safePrefixes {
		if lower == prefix {
			return true
		}
		if strings.HasPrefix(lower, prefix+" ") {
			return true
		}
	}
	return false
}
