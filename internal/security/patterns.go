package security

import "regexp"

// DefaultDangerousCommands returns the built-in shell command deny-list.
func DefaultDangerousCommands() []Pattern {
	return []Pattern{
		// Destructive filesystem operations
		{
			Name:        "rm-recursive-root",
			Regexp:      regexp.MustCompile(`\brm\s+(-\S+\s+)*-[a-zA-Z]*[rR][a-zA-Z]*\s+(-\S+\s+)*(/|~|\*|\.\.|/\*|~/\*?)(\s|;|$)`),
			Description: "recursive delete of root, home, parent or glob",
		},
		{
			Name:        "rm-no-preserve-root",
			Regexp:      regexp.MustCompile(`\brm\b.*--no-preserve-root`),
			Description: "rm with root protection disabled",
		},
		{
			Name:        "mkfs",
			Regexp:      regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\b`),
			Description: "filesystem formatting",
		},
		{
			Name:        "dd-device",
			Regexp:      regexp.MustCompile(`\bdd\b.*\bof=/dev/`),
			Description: "raw write to a device",
		},
		{
			Name:        "fork-bomb",
			Regexp:      regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\};:`),
			Description: "shell fork bomb",
		},
		{
			Name:        "chmod-recursive-root",
			Regexp:      regexp.MustCompile(`\bchmod\s+-R\s+[0-7]{3,4}\s+/(\s|$)`),
			Description: "recursive permission change on root",
		},
		// Privilege escalation
		{
			Name:        "sudo",
			Regexp:      regexp.MustCompile(`(^|[;&|]\s*|\s)(sudo|doas)\s`),
			Description: "privilege escalation",
		},
		{
			Name:        "su",
			Regexp:      regexp.MustCompile(`(^|[;&|]\s*)su(\s+-|\s+root|\s*$)`),
			Description: "switch to another user",
		},
		// Redirection into device files
		{
			Name:        "redirect-device",
			Regexp:      regexp.MustCompile(`>\s*/dev/(sd[a-z]|hd[a-z]|nvme\d|disk\d|mem|kmem)`),
			Description: "redirection into a block or memory device",
		},
		// Remote content piped into a shell
		{
			Name:        "curl-pipe-shell",
			Regexp:      regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(ba|z|da|k)?sh\b`),
			Description: "remote script executed without review",
		},
		// Dynamic code evaluation
		{
			Name:        "eval",
			Regexp:      regexp.MustCompile(`(^|[;&|]\s*|\s)eval\s`),
			Description: "dynamic evaluation of shell code",
		},
		{
			Name:        "shell-command-substitution",
			Regexp:      regexp.MustCompile(`\b(ba|z)?sh\s+-c\s+["']?\$\(`),
			Description: "shell executing substituted command output",
		},
		{
			Name:        "python-exec",
			Regexp:      regexp.MustCompile(`\bpython[0-9.]*\s+-c\s+.*\bexec\(`),
			Description: "python evaluating dynamic code",
		},
		// Destructive git operations
		{
			Name:        "git-force-push",
			Regexp:      regexp.MustCompile(`\bgit\s+push\b.*(\s--force(\s|$)|\s-f(\s|$))`),
			Description: "history rewrite on a shared remote",
		},
		{
			Name:        "git-reset-hard",
			Regexp:      regexp.MustCompile(`\bgit\s+reset\s+--hard\b`),
			Description: "discards uncommitted work",
		},
		{
			Name:        "git-clean-force",
			Regexp:      regexp.MustCompile(`\bgit\s+clean\s+-[a-zA-Z]*f`),
			Description: "deletes untracked files",
		},
	}
}

// DefaultCriticalErrors returns the built-in list of error messages that must
// abort instead of being repaired.
func DefaultCriticalErrors() []Pattern {
	return []Pattern{
		// Missing or unreadable file
		{
			Name:        "file-not-found",
			Regexp:      regexp.MustCompile(`(?i)\b(ENOENT|no such file( or directory)?|file not found|record not found)\b`),
			Description: "file is missing",
		},
		{
			Name:        "file-unreadable",
			Regexp:      regexp.MustCompile(`(?i)\b(cannot read|can't read|failed to read|unable to read|not readable)\b`),
			Description: "file cannot be read",
		},
		// Parse or syntax failure
		{
			Name:        "parse-error",
			Regexp:      regexp.MustCompile(`(?i)\b(parse error|failed to parse|syntax ?error|unexpected end of JSON|invalid character|unexpected token|cannot unmarshal)\b`),
			Description: "content is not valid structured data",
		},
		// Permission denial
		{
			Name:        "permission-denied",
			Regexp:      regexp.MustCompile(`(?i)\b(permission denied|EACCES|EPERM|operation not permitted)\b`),
			Description: "access refused by the operating system",
		},
	}
}
