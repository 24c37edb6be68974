package gitdiff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// DefaultBaseBranches are tried in order when no base ref is given
var DefaultBaseBranches = []string{"main", "master"}

// FallbackRef is used when no base branch exists, or HEAD is the base branch
const FallbackRef = "HEAD~1"

// ErrNoHead is returned for repositories without commits
var ErrNoHead = errors.New("repository has no HEAD commit")

// Repository wraps a local checkout
type Repository struct {
	repo *git.Repository
}

// Base is the resolved comparison point. Commit is nil when HEAD is a root
// commit, in which case the diff is taken against the empty tree.
type Base struct {
	Ref    string
	Commit *object.Commit
}

// Open finds the repository containing path
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", path, err)
	}
	return &Repository{repo: repo}, nil
}

// ResolveBase picks the base commit. An explicit ref wins; otherwise the
// default branches are tried (remote-tracking first), then HEAD~1.
func (r *Repository) ResolveBase(explicit string) (Base, error) {
	head, err := r.head()
	if err != nil {
		return Base{}, err
	}

	if explicit != "" {
		hash, err := r.repo.ResolveRevision(plumbing.Revision(explicit))
		if err != nil {
			return Base{}, fmt.Errorf("failed to resolve base ref %q: %w", explicit, err)
		}
		commit, err := r.repo.CommitObject(*hash)
		if err != nil {
			return Base{}, fmt.Errorf("failed to load base commit %s: %w", hash, err)
		}
		return Base{Ref: explicit, Commit: commit}, nil
	}

	for _, branch := range DefaultBaseBranches {
		for _, name := range []plumbing.ReferenceName{
			plumbing.NewRemoteReferenceName("origin", branch),
			plumbing.NewBranchReferenceName(branch),
		} {
			ref, err := r.repo.Reference(name, true)
			if err != nil {
				continue
			}
			if ref.Hash() == head.Hash {
				// on the base branch itself; nothing to compare against
				continue
			}
			commit, err := r.repo.CommitObject(ref.Hash())
			if err != nil {
				continue
			}
			return Base{Ref: name.Short(), Commit: commit}, nil
		}
	}

	if head.NumParents() == 0 {
		return Base{Ref: "(empty tree)"}, nil
	}
	parent, err := head.Parent(0)
	if err != nil {
		return Base{}, fmt.Errorf("failed to load %s: %w", FallbackRef, err)
	}
	return Base{Ref: FallbackRef, Commit: parent}, nil
}

// NameStatus renders the changes between the base and HEAD in the layout of
// `git diff --name-status -M <merge-base> HEAD`. Rename scores are computed
// line by line and can differ slightly from git's own estimate.
func (r *Repository) NameStatus(ctx context.Context, explicitBase string) (string, Base, error) {
	base, err := r.ResolveBase(explicitBase)
	if err != nil {
		return "", Base{}, err
	}
	head, err := r.head()
	if err != nil {
		return "", Base{}, err
	}

	var baseTree *object.Tree
	if base.Commit != nil {
		from := base.Commit
		if bases, err := head.MergeBase(base.Commit); err == nil && len(bases) > 0 {
			from = bases[0]
		}
		baseTree, err = from.Tree()
		if err != nil {
			return "", Base{}, fmt.Errorf("failed to read base tree: %w", err)
		}
	}

	headTree, err := head.Tree()
	if err != nil {
		return "", Base{}, fmt.Errorf("failed to read HEAD tree: %w", err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return "", Base{}, fmt.Errorf("failed to diff %s..HEAD: %w", base.Ref, err)
	}

	var sb strings.Builder
	for _, change := range changes {
		line, err := nameStatusLine(change)
		if err != nil {
			return "", Base{}, err
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), base, nil
}

func (r *Repository) head() (*object.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNoHead
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	return commit, nil
}

func nameStatusLine(change *object.Change) (string, error) {
	action, err := change.Action()
	if err != nil {
		return "", fmt.Errorf("failed to classify change: %w", err)
	}

	switch action {
	case merkletrie.Insert:
		return "A\t" + change.To.Name, nil
	case merkletrie.Delete:
		return "D\t" + change.From.Name, nil
	default:
		if change.From.Name != change.To.Name {
			score := 100
			if change.From.TreeEntry.Hash != change.To.TreeEntry.Hash {
				if score, err = renameScore(change); err != nil {
					return "", err
				}
			}
			return fmt.Sprintf("R%03d\t%s\t%s", score, change.From.Name, change.To.Name), nil
		}
		return "M\t" + change.To.Name, nil
	}
}

func renameScore(change *object.Change) (int, error) {
	from, to, err := change.Files()
	if err != nil {
		return 0, fmt.Errorf("failed to load renamed files: %w", err)
	}
	a, err := from.Contents()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", change.From.Name, err)
	}
	b, err := to.Contents()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", change.To.Name, err)
	}
	return similarity(a, b), nil
}

// similarity is the share of bytes, by line, that survive from a to b, as a
// percentage of the larger file. Only identical content scores 100.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	larger := max(len(a), len(b))

	lines := make(map[string]int)
	for _, l := range strings.SplitAfter(a, "\n") {
		lines[l]++
	}
	common := 0
	for _, l := range strings.SplitAfter(b, "\n") {
		if lines[l] > 0 {
			lines[l]--
			common += len(l)
		}
	}
	return min(common*100/larger, 99)
}
