package cas

import (
	"errors"
	"os"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	fileInstallerPrometheusMetrics sync.Once

	fileInstallerInstallationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "cas",
			Name:      "file_installer_installations_total",
			Help:      "Number of files installed from a local cache, per link type that was used.",
		},
		[]string{"link_type"})
)

// IsLinkUnsupported returns true if an error returned by a
// FileInstaller indicates that the link type is not supported for the
// files involved, meaning that a different link type may still succeed.
func IsLinkUnsupported(err error) bool {
	return status.Code(err) == codes.Unimplemented ||
		errors.Is(err, errors.ErrUnsupported) ||
		isLinkUnsupportedErrno(err)
}

// LinkTypeInstaller pairs a FileInstaller with the LinkType it
// implements.
type LinkTypeInstaller struct {
	LinkType  LinkType
	Installer FileInstaller
}

// NewLinkTypeInstallers returns the FileInstallers for a list of link
// types, in the same order. The list is truncated after LinkTypeCopy,
// and LinkTypeCopy is appended if not present, as byte copying is
// supported universally.
func NewLinkTypeInstallers(linkTypes []LinkType) []LinkTypeInstaller {
	var installers []LinkTypeInstaller
	for _, linkType := range linkTypes {
		installers = append(installers, LinkTypeInstaller{
			LinkType:  linkType,
			Installer: NewFileInstallerForLinkType(linkType),
		})
		if linkType == LinkTypeCopy {
			return installers
		}
	}
	return append(installers, LinkTypeInstaller{
		LinkType:  LinkTypeCopy,
		Installer: CopyingFileInstaller,
	})
}

type fallbackEntry struct {
	LinkTypeInstaller
	installations prometheus.Counter
}

type fallbackFileInstaller struct {
	entries []fallbackEntry
}

// NewFallbackFileInstaller creates a FileInstaller that attempts a
// series of FileInstallers in order of preference. For every file, the
// first one that supports linking it wins. Errors unrelated to lack of
// support are returned immediately.
//
// Existing files are never replaced. If a file is already present at
// the target, AlreadyExists is returned without attempting any of the
// FileInstallers.
func NewFallbackFileInstaller(installers []LinkTypeInstaller) FileInstaller {
	fileInstallerPrometheusMetrics.Do(func() {
		prometheus.MustRegister(fileInstallerInstallationsTotal)
	})

	entries := make([]fallbackEntry, 0, len(installers))
	for _, installer := range installers {
		entries = append(entries, fallbackEntry{
			LinkTypeInstaller: installer,
			installations:     fileInstallerInstallationsTotal.WithLabelValues(installer.LinkType.String()),
		})
	}
	return &fallbackFileInstaller{entries: entries}
}

func (fi *fallbackFileInstaller) Link(oldDirectory filesystem.Directory, oldName path.Component, newDirectory filesystem.Directory, newName path.Component) error {
	if _, err := newDirectory.Lstat(newName); err == nil {
		return status.Errorf(codes.AlreadyExists, "File %#v already exists", newName.String())
	} else if !os.IsNotExist(err) {
		return wrapLinkError(err, "Failed to check for existence of file %#v", newName.String())
	}

	var lastErr error
	for _, entry := range fi.entries {
		err := entry.Installer.Link(oldDirectory, oldName, newDirectory, newName)
		if err == nil {
			entry.installations.Inc()
			return nil
		}
		if !IsLinkUnsupported(err) {
			return wrapLinkError(err, "Failed to install file %#v using link type %s", newName.String(), entry.LinkType)
		}
		// Some implementations of cloning create the target
		// before discovering that cloning is not supported. The
		// target did not exist up front, so anything present now
		// is a leftover of this attempt.
		newDirectory.Remove(newName)
		lastErr = err
	}
	return wrapLinkError(lastErr, "None of the link types are supported for file %#v", newName.String())
}

// wrapLinkError converts errors returned by file systems to gRPC
// status codes. Errors that already carry one are left intact.
func wrapLinkError(err error, format string, args ...any) error {
	if _, ok := status.FromError(err); ok {
		return util.StatusWrapf(err, format, args...)
	}
	code := codes.Internal
	switch {
	case os.IsExist(err):
		code = codes.AlreadyExists
	case os.IsNotExist(err):
		code = codes.NotFound
	case os.IsPermission(err):
		code = codes.PermissionDenied
	}
	return util.StatusWrapfWithCode(err, code, format, args...)
}
