package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Workspace manages per-task working directories under a single root. Each
// task gets a private directory derived from its id, so concurrent tasks
// never collide and cleanup can be scoped to one task.
type Workspace struct {
	root string
}

// NewWorkspace creates a Workspace rooted at the given directory, creating
// it if necessary.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// TaskDir creates and returns the private working directory for a task.
func (w *Workspace) TaskDir(taskID string) (string, error) {
	if taskID == "" {
		return "", fmt.Errorf("task id cannot be empty")
	}
	dir := filepath.Join(w.root, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create task directory: %w", err)
	}
	return dir, nil
}

// SaveUpload writes the uploaded content into the task directory under a
// sanitized version of the client-supplied filename and returns the path.
func (w *Workspace) SaveUpload(taskDir, filename string, content io.Reader) (string, error) {
	path := filepath.Join(taskDir, SanitizeFilename(filename))

	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload write: %w", err)
	}

	return path, nil
}

// SanitizeFilename reduces a client-supplied filename to a safe basename:
// path components are stripped and anything outside [A-Za-z0-9._-] is
// replaced. An empty or fully unsafe name falls back to "upload".
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	name := strings.Trim(b.String(), ".")
	if name == "" {
		return "upload"
	}
	return name
}
