//go:build unix

package daemon

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// systemInfo returns the uname fields in `uname -a` order.
func systemInfo() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	fields := []string{
		unix.ByteSliceToString(u.Sysname[:]),
		unix.ByteSliceToString(u.Nodename[:]),
		unix.ByteSliceToString(u.Release[:]),
		unix.ByteSliceToString(u.Version[:]),
		unix.ByteSliceToString(u.Machine[:]),
	}
	return strings.Join(fields, " "), nil
}
