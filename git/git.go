package git

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

const shortHashLength = 7

// CommitReader reads HEAD of the repository containing path.
type CommitReader struct {
	path string
}

func NewCommitReader(path string) *CommitReader {
	if path == "" {
		path = "."
	}
	return &CommitReader{path: path}
}

func (r *CommitReader) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(r.path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", r.path, err)
	}
	return repo, nil
}

// LastCommit returns the HEAD commit and the tags pointing at it. The
// repository is opened on every call so the result reflects the working
// copy at that moment.
func (r *CommitReader) LastCommit() (*models.CommitMetadata, error) {
	repo, err := r.open()
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", head.Hash(), err)
	}

	tags, err := tagsAt(repo, head.Hash())
	if err != nil {
		return nil, err
	}

	hash := commit.Hash.String()
	return &models.CommitMetadata{
		Hash:      hash,
		ShortHash: hash[:shortHashLength],
		Committer: models.Person{
			Name:  commit.Committer.Name,
			Email: commit.Committer.Email,
		},
		CommittedDate: commit.Committer.When,
		Tags:          tags,
	}, nil
}

// tagsAt lists lightweight and annotated tags that resolve to hash.
func tagsAt(repo *git.Repository, hash plumbing.Hash) ([]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer iter.Close()

	tags := []string{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()

		tag, err := repo.TagObject(ref.Hash())
		switch {
		case err == nil:
			commit, err := tag.Commit()
			if err != nil {
				// annotated tag of a non-commit object
				return nil
			}
			target = commit.Hash
		case !errors.Is(err, plumbing.ErrObjectNotFound):
			return fmt.Errorf("failed to read tag %s: %w", ref.Name().Short(), err)
		}

		if target == hash {
			tags = append(tags, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(tags)
	return tags, nil
}
