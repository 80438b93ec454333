// Package source fetches the repository whose examples are tested.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-git/go-git/v5"
)

// DefaultRepoURL is the repository cloned when no URL is configured.
const DefaultRepoURL = "https://github.com/awsdocs/aws-doc-sdk-examples.git"

// Cloner produces a fresh checkout of url in dir.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) (string, error)
}

// GitCloner clones with go-git, so no git binary is needed on the host.
type GitCloner struct {
	log   log.Logger
	depth int
}

// NewGitCloner returns a cloner fetching only the last depth commits.
// A depth of zero fetches the full history.
func NewGitCloner(lgr log.Logger, depth int) *GitCloner {
	return &GitCloner{log: lgr, depth: depth}
}

// Clone replaces whatever is in dir with a fresh clone and returns the
// checked out commit hash.
func (c *GitCloner) Clone(ctx context.Context, url, dir string) (string, error) {
	if url == "" {
		return "", errors.New("repository URL is required")
	}
	if dir == "" {
		return "", errors.New("clone directory is required")
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to remove previous checkout %s: %w", dir, err)
	}

	c.log.Info("Cloning repository", "url", url, "dir", dir, "depth", c.depth)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        c.depth,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone %s: %w", url, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD of %s: %w", dir, err)
	}
	commit := head.Hash().String()
	c.log.Info("Repository cloned", "commit", commit, "ref", head.Name().Short())
	return commit, nil
}
