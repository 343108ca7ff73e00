package vkgl

import (
	"errors"
	"fmt"
)

// Usage errors. They are always wrapped together with
// ErrorValidationFailed, so both errors.Is(err, ErrNotRecording) and
// ResultOf(err) == ErrorValidationFailed hold.
var (
	// ErrNotRecording is returned by Cmd* and End outside the Recording
	// state.
	ErrNotRecording = errors.New("vkgl: command buffer is not recording")

	// ErrNotExecutable is returned when a buffer that is not Executable is
	// submitted.
	ErrNotExecutable = errors.New("vkgl: command buffer is not executable")

	// ErrPending is returned when a pending buffer or fence is reset,
	// begun or resubmitted without simultaneous use.
	ErrPending = errors.New("vkgl: object is pending execution")

	// ErrResetNotAllowed is returned when a buffer is reset, or implicitly
	// reset by Begin, while its pool does not allow individual resets.
	ErrResetNotAllowed = errors.New("vkgl: command pool does not allow buffer reset")

	// ErrNoRenderPass is returned by commands that need an active render
	// pass when none is active.
	ErrNoRenderPass = errors.New("vkgl: no active render pass")

	// ErrRenderPassActive is returned by commands that are not allowed
	// inside a render pass, and by End while a pass is still open.
	ErrRenderPassActive = errors.New("vkgl: render pass is active")

	// ErrInheritanceRequired is returned when a secondary buffer continues
	// a render pass without inheritance info.
	ErrInheritanceRequired = errors.New("vkgl: render pass continue requires inheritance info")

	// ErrWrongLevel is returned when a command is recorded into, or a
	// buffer is used at, the wrong command buffer level.
	ErrWrongLevel = errors.New("vkgl: wrong command buffer level")

	// ErrSecondaryNotExecutable is returned by CmdExecuteCommands for a
	// secondary buffer that is not Executable.
	ErrSecondaryNotExecutable = errors.New("vkgl: secondary command buffer is not executable")

	// ErrInvalidated is returned when a buffer that references a destroyed
	// object or a freed secondary buffer is used.
	ErrInvalidated = errors.New("vkgl: command buffer references a destroyed object")

	// ErrBadArgument is returned for malformed command arguments such as
	// mismatched array lengths or out of range indices.
	ErrBadArgument = errors.New("vkgl: invalid argument")

	// ErrAlreadyRecording is returned by Begin on a buffer that is
	// already recording.
	ErrAlreadyRecording = errors.New("vkgl: command buffer is already recording")

	// ErrFenceInUse is returned when a signaled or pending fence is passed
	// to a submit or an acquire.
	ErrFenceInUse = errors.New("vkgl: fence is signaled or in use")

	// ErrDeviceDestroyed is returned by operations on a destroyed device.
	ErrDeviceDestroyed = errors.New("vkgl: device destroyed")
)

// usage wraps err as a validation failure of op.
func usage(op string, err error) error {
	return fmt.Errorf("vkgl: %s: %w: %w", op, ErrorValidationFailed, err)
}
