package dsnstore

import (
	"context"
	"errors"
	"io/fs"

	"github.com/koustreak/dsneditor/internal/errs"
)

// mapError converts file-system errors of the ini backend into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var own *errs.Error
	if errors.As(err, &own) {
		return own
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	case errors.Is(err, fs.ErrNotExist):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	default:
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}
}
