package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidLayer indicates the basin polygon layer could not be opened
	// or carries no usable identifier field. Fatal for the whole run.
	ErrInvalidLayer = errors.New("invalid basin layer")

	// ErrRasterMisalignment indicates a raster's grid or spatial reference
	// does not match what the statistics engine expects. Fatal for the date
	// being processed; other scheduled dates still attempt.
	ErrRasterMisalignment = errors.New("raster misaligned with basin layer")
)

// MissingBasinRowError reports a by-date table that exists but has no row
// for the requested basin. Recoverable: callers degrade the week-over-week
// change to null for that basin only.
type MissingBasinRowError struct {
	BasinID string
	Date    time.Time
}

func (e *MissingBasinRowError) Error() string {
	return fmt.Sprintf("no row for basin %s in by-date table %s", e.BasinID, e.Date.Format(DateLayout))
}

// StoreWriteError wraps a failed store write. Fatal for the date being
// processed; previously persisted dates are unaffected because stores write
// whole tables via temp-file-and-rename.
type StoreWriteError struct {
	Path string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s: %v", e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
