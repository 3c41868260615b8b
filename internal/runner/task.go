package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samuelfaj/claudiomiro-sub004/internal/blueprint"
)

// TaskPrefix starts the name of every task folder.
const TaskPrefix = "TASK"

// Task is one task folder.
type Task struct {
	ID      string // Folder name, e.g. "TASK3"
	Dir     string // Folder holding TASK.md and execution.json
	WorkDir string // Repository the actor works in
}

// Discover lists the task folders under root: directories named TASK*
// that contain a TASK.md. Tasks are ordered by their numeric suffix.
func Discover(root, workDir string) ([]Task, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks directory %s: %w", root, err)
	}

	var tasks []Task
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, TaskPrefix) {
			continue
		}
		dir := filepath.Join(root, name)
		if _, err := os.Stat(filepath.Join(dir, blueprint.FileName)); err != nil {
			continue
		}
		tasks = append(tasks, Task{ID: name, Dir: dir, WorkDir: workDir})
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return taskLess(tasks[i].ID, tasks[j].ID)
	})
	return tasks, nil
}

// FindTask returns the task folder id under root.
func FindTask(root, workDir, id string) (Task, error) {
	dir := filepath.Join(root, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Task{}, fmt.Errorf("task %s not found in %s", id, root)
	}
	return Task{ID: id, Dir: dir, WorkDir: workDir}, nil
}

// Select returns the tasks whose ids are in ids, in the order of tasks.
// Unknown ids are an error.
func Select(tasks []Task, ids []string) ([]Task, error) {
	if len(ids) == 0 {
		return tasks, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Task
	for _, t := range tasks {
		if want[t.ID] {
			out = append(out, t)
			delete(want, t.ID)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for id := range want {
			missing = append(missing, id)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown tasks: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// taskLess orders TASK2 before TASK10; ids without a numeric suffix sort
// after numbered ones, alphabetically.
func taskLess(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, TaskPrefix))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, TaskPrefix))
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	default:
		return a < b
	}
}
