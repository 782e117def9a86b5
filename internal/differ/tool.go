package differ

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"wikiedits/internal/config"
)

// Diff tool errors.
var (
	ErrToolFailed         = errors.New("diff tool failed")
	ErrToolTimeout        = errors.New("diff tool timed out")
	ErrIdenticalRevisions = errors.New("revisions are identical")
	ErrUnorderedRevisions = errors.New("revision pair is not in time order")

	errEmptyToolOutput = errors.New("empty output")
)

const (
	maxStderrInError = 512
	toolWaitDelay    = 2 * time.Second
	oldDocumentName  = "old.tex"
	newDocumentName  = "new.tex"
)

// Tool produces a marked-up diff of two LaTeX documents.
type Tool interface {
	Diff(ctx context.Context, oldDoc, newDoc string) (string, error)
}

// LatexDiff runs latexdiff (or a compatible binary) as a subprocess.
type LatexDiff struct {
	binary  string
	args    []string
	timeout time.Duration
}

// NewLatexDiff creates a runner from the diff configuration.
func NewLatexDiff(cfg config.DiffConfig) *LatexDiff {
	return &LatexDiff{
		binary:  cfg.Binary,
		args:    cfg.Args,
		timeout: cfg.GetTimeout(),
	}
}

// Diff writes both documents to a private temp directory and runs
// "<binary> <args...> old.tex new.tex", returning its standard output.
func (l *LatexDiff) Diff(ctx context.Context, oldDoc, newDoc string) (string, error) {
	dir, err := os.MkdirTemp("", "wikiedits-diff-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	oldPath := filepath.Join(dir, oldDocumentName)
	newPath := filepath.Join(dir, newDocumentName)

	if err := os.WriteFile(oldPath, []byte(oldDoc), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", oldPath, err)
	}

	if err := os.WriteFile(newPath, []byte(newDoc), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", newPath, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	args := append(append([]string{}, l.args...), oldPath, newPath)

	cmd := exec.CommandContext(runCtx, l.binary, args...)
	cmd.Dir = dir
	cmd.WaitDelay = toolWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	switch {
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %s", ErrToolTimeout, l.timeout)
	case err != nil:
		return "", fmt.Errorf("%w: %w: %s", ErrToolFailed, err, truncate(stderr.String()))
	case strings.TrimSpace(stdout.String()) == "":
		return "", fmt.Errorf("%w: %w", ErrToolFailed, errEmptyToolOutput)
	}

	return stdout.String(), nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrInError {
		return s[:maxStderrInError] + "..."
	}

	return s
}
