//go:build windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// inheritPipes marks the handles inheritable. Handle values are the same in
// the child.
func inheritPipes(cmd *exec.Cmd, user []*os.File, pipes ...*os.File) []uint64 {
	inherited := make([]syscall.Handle, 0, len(user)+len(pipes))
	for _, f := range user {
		inherited = append(inherited, syscall.Handle(f.Fd()))
	}
	handles := make([]uint64, len(pipes))
	for i, f := range pipes {
		inherited = append(inherited, syscall.Handle(f.Fd()))
		handles[i] = uint64(f.Fd())
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{AdditionalInheritedHandles: inherited}
	return handles
}
