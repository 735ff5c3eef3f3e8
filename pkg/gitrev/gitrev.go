// Package gitrev resolves the commit a working tree is checked out at.
package gitrev

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoCommit is returned when HEAD cannot be resolved to a commit.
var ErrNoCommit = errors.New("unable to resolve HEAD commit")

// Head returns the full commit hash of HEAD in the repository at dir.
// An empty dir means the current working directory.
func Head(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "HEAD")
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			if msg := strings.TrimSpace(string(ee.Stderr)); msg != "" {
				return "", fmt.Errorf("%w: git: %s", ErrNoCommit, msg)
			}
		}
		return "", errors.Join(ErrNoCommit, err)
	}

	hash := strings.TrimSpace(string(out))
	if hash == "" {
		return "", fmt.Errorf("%w: empty output", ErrNoCommit)
	}
	return hash, nil
}
