//go:build !windows

package fileutil

import "errors"

// moveToWindowsTrash is a stub; MoveToTrash only calls it on Windows.
func moveToWindowsTrash(path string) error {
	return errors.New("Windows Recycle Bin is not available on this platform")
}
