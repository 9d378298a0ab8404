package repository

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/kballard/go-shellquote"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Names of the directories created inside the scratch directory.
	workingTreeDirectoryName = "repository"
	cacheDirectoryName       = "cache"

	controlDirectoryName = ".dvc"
)

// Fragments of messages printed by Git when a URL does not refer to a
// repository at all, as opposed to the repository being unreachable.
var notARepositoryMessages = []string{
	"not a git repository",
	"does not appear to be a git repository",
	"repository not found",
	"does not exist",
}

type gitProvider struct {
	gitPath      string
	remoteOpener RemoteOpener
	logger       *zap.Logger
}

// NewGitProvider creates a Provider that clones Git repositories by
// invoking the Git command line tool. Repositories are only recognized
// if they contain a control directory. Their contents are pulled from
// the remotes that are configured in that directory, which are opened
// through a RemoteOpener.
func NewGitProvider(gitPath string, remoteOpener RemoteOpener, logger *zap.Logger) Provider {
	return &gitProvider{
		gitPath:      gitPath,
		remoteOpener: remoteOpener,
		logger:       logger,
	}
}

// runGit runs a Git command, returning its standard error output if it
// fails.
func (p *gitProvider) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, p.gitPath, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	p.logger.Debug("Running Git", zap.String("command", shellquote.Join(cmd.Args...)))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", util.StatusFromContext(ctx)
		}
		return strings.TrimSpace(stderr.String()), err
	}
	return "", nil
}

func isNotARepositoryMessage(message string) bool {
	message = strings.ToLower(message)
	for _, fragment := range notARepositoryMessages {
		if strings.Contains(message, fragment) {
			return true
		}
	}
	return false
}

func (p *gitProvider) Open(ctx context.Context, url, revision, scratchDirectory string) (Repository, error) {
	workingTreePath := filepath.Join(scratchDirectory, workingTreeDirectoryName)
	if stderr, err := p.runGit(ctx, "clone", "--quiet", "--", url, workingTreePath); err != nil {
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		if isNotARepositoryMessage(stderr) {
			return nil, status.Errorf(codes.FailedPrecondition, "URL %#v does not refer to a repository: %s", url, stderr)
		}
		return nil, util.StatusWrapfWithCode(err, codes.Unavailable, "Failed to clone repository %#v: %s", url, stderr)
	}
	if revision != "" {
		if stderr, err := p.runGit(ctx, "-C", workingTreePath, "checkout", "--quiet", revision, "--"); err != nil {
			if _, ok := status.FromError(err); ok {
				return nil, err
			}
			return nil, util.StatusWrapfWithCode(err, codes.NotFound, "Failed to check out revision %#v of repository %#v: %s", revision, url, stderr)
		}
	}

	// Only clones containing a control directory are recognized.
	// Report this against the URL, as the clone is merely a
	// temporary artifact.
	controlDirectoryPath := filepath.Join(workingTreePath, controlDirectoryName)
	if fileInfo, err := os.Stat(controlDirectoryPath); err != nil || !fileInfo.IsDir() {
		return nil, status.Errorf(codes.FailedPrecondition, "URL %#v does not refer to a repository: no %s directory present", url, controlDirectoryName)
	}

	config, err := loadConfig(filepath.Join(controlDirectoryPath, "config"))
	if err != nil {
		return nil, err
	}
	index, err := loadIndex(workingTreePath)
	if err != nil {
		return nil, err
	}
	p.logger.Info(
		"Opened repository",
		zap.String("url", url),
		zap.String("revision", revision),
		zap.Int("outputs", len(index)))
	return newGitRepository(
		url,
		workingTreePath,
		filepath.Join(scratchDirectory, cacheDirectoryName),
		config,
		index,
		p.remoteOpener,
		p.logger.With(zap.String("repository", url))), nil
}
