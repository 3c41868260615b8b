// Package blueprint reads a task description (TASK.md).
package blueprint

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FileName is the task description file inside a task folder.
const FileName = "TASK.md"

var (
	difficultyRegex = regexp.MustCompile(`(?im)@difficulty[ \t]+(fast|medium|hard)\b`)
	phaseRegex      = regexp.MustCompile(`(?i)^phase\s+\d+\s*[:.\-]\s*(.+)$`)
	openTodoRegex   = regexp.MustCompile(`^\[ \]`)
)

// Blueprint is the parsed task description.
type Blueprint struct {
	Title      string   // First level-1 heading
	Difficulty string   // Declared tier, empty when absent
	Headings   []string // Every heading in document order
	Phases     []string // Names from "Phase <n>: <name>" headings
	ListItems  int
	OpenTodos  int // List items starting with "[ ]"
	Length     int // Size of the raw text in bytes
	Raw        string
}

// ParseDifficulty returns the tier declared by an "@difficulty <tier>" marker.
func ParseDifficulty(content string) (string, bool) {
	m := difficultyRegex.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// Parse parses TASK.md content.
func Parse(content []byte) *Blueprint {
	bp := &Blueprint{
		Length: len(content),
		Raw:    string(content),
	}
	bp.Difficulty, _ = ParseDifficulty(bp.Raw)

	doc := goldmark.New().Parser().Parse(text.NewReader(content))
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			heading := strings.TrimSpace(extractText(node, content))
			bp.Headings = append(bp.Headings, heading)
			if node.Level == 1 && bp.Title == "" {
				bp.Title = heading
			}
			if m := phaseRegex.FindStringSubmatch(heading); m != nil {
				bp.Phases = append(bp.Phases, strings.TrimSpace(m[1]))
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			bp.ListItems++
			if openTodoRegex.MatchString(strings.TrimSpace(extractText(node, content))) {
				bp.OpenTodos++
			}
		}
		return ast.WalkContinue, nil
	})
	return bp
}

// Load reads and parses the TASK.md at path.
func Load(path string) (*Blueprint, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task description: %w", err)
	}
	return Parse(content), nil
}

// extractText concatenates the text segments below n.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		if s, ok := c.(*ast.String); ok {
			buf.Write(s.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
