package fetch

import (
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/buildbarn/bb-fetch/pkg/repository"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// outputBaseName returns the name of the output that is used when no
// file name is provided as part of the destination. The input may
// either be a path or a URL, in which case the path of the URL is
// used.
func outputBaseName(internalPath string) string {
	p := filepath.ToSlash(internalPath)
	if u, err := url.Parse(internalPath); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	return path.Base(path.Clean(p))
}

// ResolveOutputPath determines the absolute path at which the output of
// a fetch is stored. If no destination is provided, the output is
// placed in the current working directory. If the destination is an
// existing directory, the output is placed inside of it.
//
// InvalidArgument is returned if the name of the output is reserved
// for stage files. AlreadyExists is returned if a file is already
// present at the output path.
func ResolveOutputPath(internalPath, localDestination string) (string, error) {
	name := outputBaseName(internalPath)
	output := localDestination
	if output == "" {
		output = name
	} else if fileInfo, err := os.Stat(output); err == nil && fileInfo.IsDir() {
		output = filepath.Join(output, name)
	}

	absoluteOutput, err := filepath.Abs(output)
	if err != nil {
		return "", util.StatusWrapfWithCode(err, codes.InvalidArgument, "Failed to make output path %#v absolute", output)
	}
	if outputName := filepath.Base(absoluteOutput); repository.IsStageFileName(outputName) {
		return "", status.Errorf(codes.InvalidArgument, "Output %#v has a name that is reserved for stage files", absoluteOutput)
	}
	if _, err := os.Lstat(absoluteOutput); err == nil {
		return "", status.Errorf(codes.AlreadyExists, "Output %#v already exists", absoluteOutput)
	} else if !os.IsNotExist(err) {
		return "", util.StatusWrapfWithCode(err, codes.Internal, "Failed to inspect output %#v", absoluteOutput)
	}
	return absoluteOutput, nil
}
