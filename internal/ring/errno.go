package ring

import "syscall"

// syscallErrno turns a positive CQE res magnitude into the syscall.Errno it
// encodes, following the io_uring convention of packing -errno into Res.
func syscallErrno(magnitude int32) error {
	if magnitude == 0 {
		return nil
	}
	return syscall.Errno(magnitude)
}
