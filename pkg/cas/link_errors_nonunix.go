//go:build !darwin && !freebsd && !linux

package cas

func isLinkUnsupportedErrno(err error) bool {
	return false
}
