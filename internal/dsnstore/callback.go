package dsnstore

import (
	"context"

	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
)

// SaveCallback adapts store to the editor's saveDsn contract:
//
//	StatusNameInvalid  the string carries no usable DSN name
//	StatusInvalid      the string cannot be parsed
//	StatusDSNExists    the name is taken and FlagOverwrite is not set
//	StatusGeneric      the backend failed
//	StatusOK           stored
func SaveCallback(store Store) editor.Callback {
	return func(ctx context.Context, connStr string, flags editor.Flags) (int, string) {
		if connStr == "" {
			return editor.StatusIsNull, ""
		}
		_, err := store.Put(ctx, connStr, flags&editor.FlagOverwrite != 0)
		switch {
		case err == nil:
			return editor.StatusOK, ""
		case errs.IsAlreadyExists(err):
			return editor.StatusDSNExists, ""
		case errs.IsParseFailed(err):
			return editor.StatusInvalid, errs.Message(err)
		case errs.IsValidation(err):
			return editor.StatusNameInvalid, errs.Message(err)
		default:
			return editor.StatusGeneric, errs.Message(err)
		}
	}
}
