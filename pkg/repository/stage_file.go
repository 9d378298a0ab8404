package repository

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/karrick/godirwalk"

	"google.golang.org/grpc/codes"
	"gopkg.in/yaml.v3"
)

// StageFileSuffix is the suffix of the names of files that declare
// outputs tracked by a repository.
const StageFileSuffix = ".dvc"

// DefaultStageFileName is the name of the stage file that may be
// placed in any directory without being tied to a single output.
const DefaultStageFileName = "Dvcfile"

// IsStageFileName returns whether a file name is reserved for stage
// files. Such files can't be used as outputs.
func IsStageFileName(name string) bool {
	return name == DefaultStageFileName || strings.HasSuffix(name, StageFileSuffix)
}

type stageFileOutput struct {
	Path  string `yaml:"path"`
	MD5   string `yaml:"md5"`
	Cache *bool  `yaml:"cache"`
}

type stageFile struct {
	Outs []stageFileOutput `yaml:"outs"`
}

// indexEntry is an output declared by a stage file.
type indexEntry struct {
	relativePath string
	fingerprint  string
	cached       bool
}

// parseStageFile parses the contents of a stage file. Output paths are
// relative to the directory containing the stage file. The resulting
// entries have paths relative to the root of the working tree.
func parseStageFile(data []byte, stageDirectory string) ([]indexEntry, error) {
	var sf stageFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Invalid stage file")
	}
	entries := make([]indexEntry, 0, len(sf.Outs))
	for _, out := range sf.Outs {
		if out.Path == "" || path.IsAbs(out.Path) {
			// Outputs outside of the working tree are
			// never part of the cache of the repository.
			continue
		}
		relativePath := path.Join(stageDirectory, out.Path)
		if relativePath == ".." || strings.HasPrefix(relativePath, "../") {
			continue
		}
		entries = append(entries, indexEntry{
			relativePath: relativePath,
			fingerprint:  out.MD5,
			cached:       out.Cache == nil || *out.Cache,
		})
	}
	return entries, nil
}

// loadIndex scans the working tree for stage files, returning all
// outputs they declare, keyed by path relative to the root of the
// working tree. If multiple stage files declare the same output, the
// first one encountered in lexicographical order wins.
func loadIndex(workingTreePath string) (map[string]indexEntry, error) {
	index := map[string]indexEntry{}
	if err := godirwalk.Walk(workingTreePath, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if name := de.Name(); name == ".git" || name == ".dvc" {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !de.IsRegular() || !IsStageFileName(de.Name()) {
				return nil
			}
			data, err := os.ReadFile(osPathname)
			if err != nil {
				return util.StatusWrapfWithCode(err, codes.Internal, "Failed to read stage file %#v", osPathname)
			}
			relativeDirectory, err := filepath.Rel(workingTreePath, filepath.Dir(osPathname))
			if err != nil {
				return util.StatusWrapfWithCode(err, codes.Internal, "Failed to make path %#v relative", osPathname)
			}
			entries, err := parseStageFile(data, filepath.ToSlash(relativeDirectory))
			if err != nil {
				return util.StatusWrapf(err, "Failed to parse stage file %#v", osPathname)
			}
			for _, entry := range entries {
				if _, ok := index[entry.relativePath]; !ok {
					index[entry.relativePath] = entry
				}
			}
			return nil
		},
	}); err != nil {
		return nil, util.StatusWrapf(err, "Failed to scan working tree %#v for stage files", workingTreePath)
	}
	return index, nil
}
