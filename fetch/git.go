package fetch

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/Masterminds/vcs"

	soldeer "github.com/soldeerio/soldeer"
)

// GitResult is what a successful clone+checkout reports: the resolved
// version label and full rev, per spec §4.5 step 4.
type GitResult struct {
	Version string // "<label>/<short-rev>"; label is the pinned rev, branch or tag as given, or "None"
	Rev     string // full 40-char hash
}

// gitRunner is the entire subprocess contract with git (spec §9: isolated
// behind an interface so tests can substitute a fake; output parsing is
// limited to rev-parse HEAD).
type gitRunner interface {
	Clone(url, target string) error
	Checkout(dir, ref string) error
	Pull(dir string) error
	RevParseHEAD(dir string) (string, error)
}

// execGitRunner shells out to the system git binary, using Masterminds/vcs
// for the post-clone commands (checkout/pull/rev-parse) the way the
// teacher's gitRepo wrapper does, and a direct exec for the clone itself
// since vcs.GitRepo.Get does not pass --recursive.
type execGitRunner struct{}

func (execGitRunner) Clone(url, target string) error {
	cmd := exec.Command("git", "clone", "--recursive", url, target)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &soldeer.GitFailedError{Args: cmd.Args, Stderr: string(out)}
	}
	return nil
}

func (execGitRunner) Checkout(dir, ref string) error {
	repo, err := vcs.NewGitRepo("", dir)
	if err != nil {
		return err
	}
	if _, err := repo.RunFromDir("git", "checkout", ref); err != nil {
		return &soldeer.GitFailedError{Args: []string{"git", "checkout", ref}, Stderr: err.Error()}
	}
	return nil
}

func (execGitRunner) Pull(dir string) error {
	repo, err := vcs.NewGitRepo("", dir)
	if err != nil {
		return err
	}
	if _, err := repo.RunFromDir("git", "pull", "--ff-only"); err != nil {
		return &soldeer.GitFailedError{Args: []string{"git", "pull", "--ff-only"}, Stderr: err.Error()}
	}
	return nil
}

func (execGitRunner) RevParseHEAD(dir string) (string, error) {
	repo, err := vcs.NewGitRepo("", dir)
	if err != nil {
		return "", err
	}
	out, err := repo.RunFromDir("git", "rev-parse", "HEAD")
	if err != nil {
		return "", &soldeer.GitFailedError{Args: []string{"git", "rev-parse", "HEAD"}, Stderr: err.Error()}
	}
	return strings.TrimSpace(string(out)), nil
}

var defaultGitRunner gitRunner = execGitRunner{}

// Git clones url into target and checks out id, following spec §4.5's
// protocol: clone --recursive, then checkout by rev/branch/tag, or leave
// at the default branch HEAD for GitNone.
func Git(url, target string, id soldeer.GitIdentifier) (GitResult, error) {
	return gitWith(defaultGitRunner, url, target, id)
}

func gitWith(r gitRunner, url, target string, id soldeer.GitIdentifier) (GitResult, error) {
	if err := r.Clone(url, target); err != nil {
		return GitResult{}, soldeer.NewError(soldeer.KindGitFailed, url, err)
	}

	var label string
	switch id.Kind {
	case soldeer.GitRev:
		if err := r.Checkout(target, id.Value); err != nil {
			return GitResult{}, soldeer.NewError(soldeer.KindGitFailed, url, err)
		}
		label = id.Value
	case soldeer.GitBranch:
		if err := r.Checkout(target, id.Value); err != nil {
			return GitResult{}, soldeer.NewError(soldeer.KindGitFailed, url, err)
		}
		if err := r.Pull(target); err != nil {
			return GitResult{}, soldeer.NewError(soldeer.KindGitFailed, url, err)
		}
		label = id.Value
	case soldeer.GitTag:
		if err := r.Checkout(target, "tags/"+id.Value); err != nil {
			return GitResult{}, soldeer.NewError(soldeer.KindGitFailed, url, err)
		}
		label = id.Value
	default:
		label = "None"
	}

	rev, err := r.RevParseHEAD(target)
	if err != nil {
		return GitResult{}, soldeer.NewError(soldeer.KindGitFailed, url, err)
	}
	short := rev
	if len(short) > 7 {
		short = short[:7]
	}

	return GitResult{Version: fmt.Sprintf("%s/%s", label, short), Rev: rev}, nil
}
