package stage

import (
	"context"
	"fmt"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/loykin/shiprun/internal/pipeline"
)

// Checkout clones the source repository into the run workspace and checks
// out the requested ref. The resulting working tree is opaque input to the
// build stages.
type Checkout struct {
	RepoURL string
}

func (c *Checkout) Name() string { return pipeline.StageCheckout }

func (c *Checkout) Run(ctx context.Context, rc *pipeline.RunContext) (string, error) {
	dir := filepath.Join(rc.Workspace, "src")

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL: c.RepoURL,
	})
	if err != nil {
		return "", fmt.Errorf("clone %s: %w", c.RepoURL, err)
	}

	ref := rc.SourceRef
	if ref == "" {
		head, err := repo.Head()
		if err != nil {
			return "", fmt.Errorf("resolve HEAD: %w", err)
		}
		return fmt.Sprintf("checked out %s at %s", head.Name().Short(), head.Hash()), nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", ref, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return "", fmt.Errorf("checkout %q: %w", ref, err)
	}
	return fmt.Sprintf("checked out %s at %s", ref, hash), nil
}

// SourceDir returns the checkout directory inside a workspace.
func SourceDir(workspace string) string {
	return filepath.Join(workspace, "src")
}
