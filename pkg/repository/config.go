package repository

import (
	"path/filepath"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/ini.v1"
)

// config contains the settings of a repository that are needed to
// pull contents from its default remote.
type config struct {
	defaultRemote string
	remoteURLs    map[string]string
}

// loadConfig loads the configuration file of a repository. A missing
// file yields an empty configuration.
func loadConfig(configPath string) (*config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Loose: true}, configPath)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.InvalidArgument, "Failed to load repository configuration %#v", configPath)
	}
	c := &config{
		defaultRemote: file.Section("core").Key("remote").String(),
		remoteURLs:    map[string]string{},
	}
	for _, section := range file.Sections() {
		// Sections are named 'remote "name"', optionally
		// surrounded by single quotes.
		name := strings.Trim(section.Name(), "'")
		kind, remoteName, ok := strings.Cut(name, " ")
		if !ok || kind != "remote" {
			continue
		}
		remoteName = strings.Trim(remoteName, `"`)
		if url := section.Key("url").String(); url != "" {
			c.remoteURLs[remoteName] = url
		}
	}

	// Relative paths of local remotes are relative to the
	// directory containing the configuration file.
	for remoteName, url := range c.remoteURLs {
		if !strings.Contains(url, "://") && !filepath.IsAbs(url) {
			c.remoteURLs[remoteName] = filepath.Join(filepath.Dir(configPath), url)
		}
	}
	return c, nil
}

// getDefaultRemoteURL returns the URL of the remote that is used for
// pulling contents.
func (c *config) getDefaultRemoteURL() (string, error) {
	if c.defaultRemote == "" {
		return "", status.Error(codes.FailedPrecondition, "Repository has no default remote configured")
	}
	url, ok := c.remoteURLs[c.defaultRemote]
	if !ok {
		return "", status.Errorf(codes.FailedPrecondition, "Default remote %#v of repository has no URL configured", c.defaultRemote)
	}
	return url, nil
}
