package fs

import (
	"errors"
	"io/fs"
	"os"
	"syscall"

	"github.com/teranos/qntx-runtime/rterr"
)

// mapErrno maps the I/O backend's error to the wire {"code": -errno,
// "message": strerror(-errno)} shape nested in an ErrnoError (spec.md
// §7). Non-errno failures fall back to InternalError.
func mapErrno(err error) error {
	if err == nil {
		return nil
	}
	var perr *os.PathError
	var lerr *os.LinkError
	var errno syscall.Errno
	switch {
	case errors.As(err, &perr):
		err = perr.Err
	case errors.As(err, &lerr):
		err = lerr.Err
	}
	if errors.As(err, &errno) {
		return rterr.Errno(-int(errno), errno.Error())
	}
	if errors.Is(err, fs.ErrNotExist) {
		return rterr.NotFound("%v", err)
	}
	return rterr.Internal("%v", err)
}
