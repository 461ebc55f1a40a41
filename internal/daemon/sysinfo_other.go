//go:build !unix

package daemon

import "runtime"

func systemInfo() (string, error) {
	return runtime.GOOS + " " + runtime.GOARCH, nil
}
