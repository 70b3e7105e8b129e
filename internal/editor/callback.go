package editor

import "context"

// Flags are passed to a Callback.
type Flags uint

// FlagOverwrite asks the save callback to replace an existing DSN.
const FlagOverwrite Flags = 1

// Status codes returned by the driver callbacks. Non-negative values mean
// success.
const (
	StatusOK          = 0
	StatusDSNExists   = -1
	StatusIsNull      = -2
	StatusInvalid     = -3
	StatusNameInvalid = -4
	StatusGeneric     = -127
)

// Callback is the contract of the driver's testConnection and saveDsn
// functions. It returns a status code and, optionally, a message to show to
// the user.
type Callback func(ctx context.Context, connStr string, flags Flags) (int, string)

// User-facing messages.
const (
	MsgOverwrite         = "The DSN already exists, are you sure you wish to overwrite it?"
	MsgInvalidName       = "Invalid DSN name"
	MsgSaveFailed        = "Saving the DSN failed"
	MsgConnectionSuccess = "Connection Success"
	MsgConnectionFailed  = "Connection Failed"
)
