//go:build !linux

package affinity

import "runtime"

func pin(cpu int) error {
	runtime.LockOSThread()
	return nil
}
