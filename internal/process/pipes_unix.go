//go:build !windows

package process

import (
	"os"
	"os/exec"
)

// inheritPipes hands the files to the child as ExtraFiles. Entry i becomes
// descriptor 3+i in the child, user handles first.
func inheritPipes(cmd *exec.Cmd, user []*os.File, pipes ...*os.File) []uint64 {
	cmd.ExtraFiles = append(append([]*os.File{}, user...), pipes...)
	fds := make([]uint64, len(pipes))
	for i := range pipes {
		fds[i] = uint64(3 + len(user) + i)
	}
	return fds
}
