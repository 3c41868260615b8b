package checkpoint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

var messageRegex = regexp.MustCompile(`^\[([^\]]+)\] Phase (\d+): (.+) complete$`)

// Checkpoint is a commit that marks a completed phase.
type Checkpoint struct {
	Hash   string
	TaskID string
	Phase  int
	Name   string
}

// FormatMessage returns the commit subject for a completed phase:
// "[<taskID>] Phase <n>: <name> complete". Whitespace runs in name collapse to
// one space so the subject stays on one line; an empty name becomes
// "Phase <n>".
func FormatMessage(taskID string, phase int, name string) string {
	name = models.PhaseLabel(phase, strings.Join(strings.Fields(name), " "))
	return fmt.Sprintf("[%s] Phase %d: %s complete", taskID, phase, name)
}

// ParseMessage parses a commit subject produced by FormatMessage. Any other
// subject is not a checkpoint.
func ParseMessage(subject string) (*Checkpoint, bool) {
	m := messageRegex.FindStringSubmatch(subject)
	if m == nil {
		return nil, false
	}
	phase, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, false
	}
	return &Checkpoint{TaskID: m[1], Phase: phase, Name: m[3]}, true
}
