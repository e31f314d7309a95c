package attendance

import "errors"

var (
	// ErrMissingFile means the backing sheet or roster file does not exist.
	ErrMissingFile = errors.New("attendance sheet not found")
	// ErrEmptyInput is returned by every write path given a barcode that normalizes to "".
	ErrEmptyInput = errors.New("empty barcode")
	// ErrNotFound means no learner carries the barcode.
	ErrNotFound = errors.New("barcode not found")
	// ErrDuplicateKey means a barcode appears on more than one learner.
	ErrDuplicateKey = errors.New("duplicate barcode")
	// ErrDeviceConflict means a device id is already enrolled under another role.
	ErrDeviceConflict = errors.New("device id enrolled with another role")
	// ErrMissingColumns means a roster table lacks one of Name, Surname, Barcode.
	ErrMissingColumns = errors.New("missing required roster columns")
)
