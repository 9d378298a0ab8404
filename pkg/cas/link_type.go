package cas

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LinkType is a strategy for materializing a file stored in a local
// cache at another location.
type LinkType int

const (
	// LinkTypeReflink creates a copy-on-write clone of the file.
	LinkTypeReflink LinkType = iota
	// LinkTypeHardlink creates a hard link to the file.
	LinkTypeHardlink
	// LinkTypeCopy copies the contents of the file.
	LinkTypeCopy
)

// DefaultLinkTypes is the order in which link types are attempted when
// nothing else is configured. Byte copying comes last, as it is
// supported by every file system.
var DefaultLinkTypes = []LinkType{LinkTypeReflink, LinkTypeHardlink, LinkTypeCopy}

var linkTypeNames = map[LinkType]string{
	LinkTypeReflink:  "reflink",
	LinkTypeHardlink: "hardlink",
	LinkTypeCopy:     "copy",
}

func (lt LinkType) String() string {
	if name, ok := linkTypeNames[lt]; ok {
		return name
	}
	return "unknown"
}

// ParseLinkType converts the name of a link type to a LinkType.
func ParseLinkType(name string) (LinkType, error) {
	for lt, ltName := range linkTypeNames {
		if ltName == name {
			return lt, nil
		}
	}
	return 0, status.Errorf(codes.InvalidArgument, "Unknown link type %#v", name)
}

// ParseLinkTypes converts a list of link type names to LinkTypes,
// preserving their order.
func ParseLinkTypes(names []string) ([]LinkType, error) {
	if len(names) == 0 {
		return nil, status.Error(codes.InvalidArgument, "No link types provided")
	}
	linkTypes := make([]LinkType, 0, len(names))
	for _, name := range names {
		lt, err := ParseLinkType(name)
		if err != nil {
			return nil, err
		}
		linkTypes = append(linkTypes, lt)
	}
	return linkTypes, nil
}
