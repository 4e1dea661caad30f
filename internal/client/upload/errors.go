package upload

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors block the submission before any upload call is made and
// are shown inline. Per-file protocol errors (sign/transfer/finalize) are
// non-fatal to the batch and surfaced per file.

// ErrIdentificationRequired means files are attached but the author neither
// tagged a child nor set the no-child escape flag.
var ErrIdentificationRequired = errors.New("tagged children or the no-child flag required")

// ConsentMissingError lists the children whose photo consent is absent, in
// the order they appear in the available-children roster.
type ConsentMissingError struct {
	Names []string
}

func (e *ConsentMissingError) Error() string {
	return "photo consent missing for: " + strings.Join(e.Names, ", ")
}

// UnsupportedKindError marks a file that is neither image nor video.
type UnsupportedKindError struct {
	File        string
	ContentType string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("%s: unsupported kind %q", e.File, e.ContentType)
}

// UnsupportedFormatError marks an image/video whose exact MIME type is
// outside the allow-list.
type UnsupportedFormatError struct {
	File        string
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format %q", e.File, e.ContentType)
}

// FileTooLargeError marks a file above the per-file ceiling of its route.
type FileTooLargeError struct {
	File string
	Size int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s: file too large (%d bytes)", e.File, e.Size)
}

// BatchTooLargeError marks a proxied batch above the aggregate ceiling.
type BatchTooLargeError struct {
	Size int64
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("attachments too large (%d bytes total)", e.Size)
}

// SignError wraps a failed upload-sign call for one file.
type SignError struct {
	File string
	Err  error
}

func (e *SignError) Error() string { return fmt.Sprintf("%s: sign failed: %v", e.File, e.Err) }
func (e *SignError) Unwrap() error { return e.Err }

// TransferError wraps a failed object-storage transfer for one file.
type TransferError struct {
	File string
	Err  error
}

func (e *TransferError) Error() string { return fmt.Sprintf("%s: transfer failed: %v", e.File, e.Err) }
func (e *TransferError) Unwrap() error { return e.Err }

// FinalizeError wraps a failed finalize call for one file. The transferred
// object stays in storage (orphaned) but no media row exists for it.
type FinalizeError struct {
	File string
	Err  error
}

func (e *FinalizeError) Error() string { return fmt.Sprintf("%s: finalize failed: %v", e.File, e.Err) }
func (e *FinalizeError) Unwrap() error { return e.Err }
