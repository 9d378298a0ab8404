package location

import (
	"path/filepath"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Scheme is the tag of the storage backend a Location refers to. It
// selects which Client implementation is used to access the Location.
type Scheme string

const (
	// SchemeGDrive refers to a folder in Google Drive. The root is a
	// folder or shared drive ID.
	SchemeGDrive Scheme = "gdrive"
	// SchemeOSS refers to a bucket in Alibaba Cloud Object Storage
	// Service. The root is the bucket name.
	SchemeOSS Scheme = "oss"
	// SchemeLocal refers to a directory on the local file system.
	SchemeLocal Scheme = "local"
	// SchemeMemory refers to an in-process store. It is only useful
	// for testing.
	SchemeMemory Scheme = "memory"
)

var supportedSchemes = map[Scheme]struct{}{
	SchemeGDrive: {},
	SchemeOSS:    {},
	SchemeLocal:  {},
	SchemeMemory: {},
}

// localRoot is the root of every Location with SchemeLocal.
const localRoot = "/"

// Location is a parsed address of an item in a remote store. It
// consists of the scheme of the store, the name or opaque identifier
// of the top-level container, and a sequence of path segments relative
// to that container.
//
// Path segments are compared using exact, case sensitive string
// equality. The path never contains empty segments.
type Location struct {
	Scheme Scheme
	Root   string
	Path   []string
}

// Parse a Location from its textual form, "scheme://root/a/b/c".
// Strings without a scheme are interpreted as local file system paths.
func Parse(s string) (Location, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		absolute, err := filepath.Abs(s)
		if err != nil {
			return Location{}, util.StatusWrapfWithCode(err, codes.InvalidArgument, "Failed to make path %#v absolute", s)
		}
		return newLocalLocation(filepath.ToSlash(absolute))
	}
	if _, ok := supportedSchemes[Scheme(scheme)]; !ok {
		return Location{}, status.Errorf(codes.InvalidArgument, "Location %#v has unsupported scheme %#v", s, scheme)
	}
	if Scheme(scheme) == SchemeLocal {
		if !strings.HasPrefix(rest, "/") {
			return Location{}, status.Errorf(codes.InvalidArgument, "Local location %#v must use an absolute path", s)
		}
		return newLocalLocation(rest)
	}

	root, p, _ := strings.Cut(rest, "/")
	if root == "" {
		return Location{}, status.Errorf(codes.InvalidArgument, "Location %#v has no root", s)
	}
	segments, err := splitPath(p)
	if err != nil {
		return Location{}, util.StatusWrapf(err, "Invalid location %#v", s)
	}
	return Location{
		Scheme: Scheme(scheme),
		Root:   root,
		Path:   segments,
	}, nil
}

// MustParse is identical to Parse, except that it panics upon failure.
func MustParse(s string) Location {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

func newLocalLocation(p string) (Location, error) {
	segments, err := splitPath(strings.TrimPrefix(p, "/"))
	if err != nil {
		return Location{}, util.StatusWrapf(err, "Invalid local path %#v", p)
	}
	return Location{
		Scheme: SchemeLocal,
		Root:   localRoot,
		Path:   segments,
	}, nil
}

func splitPath(p string) ([]string, error) {
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil, nil
	}
	segments := strings.Split(p, "/")
	for _, segment := range segments {
		switch segment {
		case "":
			return nil, status.Error(codes.InvalidArgument, "Path contains an empty segment")
		case ".", "..":
			return nil, status.Errorf(codes.InvalidArgument, "Path contains segment %#v", segment)
		}
	}
	return segments, nil
}

// PathString returns the path of the Location, joined with slashes.
func (l Location) PathString() string {
	return strings.Join(l.Path, "/")
}

// Name returns the last segment of the path, or the empty string if
// the Location refers to the root.
func (l Location) Name() string {
	if len(l.Path) == 0 {
		return ""
	}
	return l.Path[len(l.Path)-1]
}

// IsRoot returns true if the Location refers to the top-level
// container itself.
func (l Location) IsRoot() bool {
	return len(l.Path) == 0
}

// Parent returns the Location of the containing folder. The boolean is
// false if the Location refers to the root, which has no parent.
func (l Location) Parent() (Location, bool) {
	if l.IsRoot() {
		return l, false
	}
	return Location{
		Scheme: l.Scheme,
		Root:   l.Root,
		Path:   l.Path[:len(l.Path)-1:len(l.Path)-1],
	}, true
}

// Child returns a new Location that has one or more segments appended
// to the path.
func (l Location) Child(segments ...string) Location {
	path := make([]string, 0, len(l.Path)+len(segments))
	path = append(path, l.Path...)
	path = append(path, segments...)
	return Location{
		Scheme: l.Scheme,
		Root:   l.Root,
		Path:   path,
	}
}

// SameContainer returns true if both Locations refer to the same
// top-level container of the same backend.
func (l Location) SameContainer(other Location) bool {
	return l.Scheme == other.Scheme && l.Root == other.Root
}

func (l Location) String() string {
	prefix := string(l.Scheme) + "://" + l.Root
	if l.Root == localRoot {
		prefix = string(l.Scheme) + "://"
	} else if l.IsRoot() {
		return prefix
	}
	return prefix + "/" + l.PathString()
}
