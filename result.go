package vkgl

import (
	"errors"
	"fmt"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/wgpu/hal"
)

// Result is a Vulkan result code. Success codes are zero or positive,
// error codes are negative. Result implements error so error codes can be
// wrapped and matched with errors.Is.
type Result int32

// Result codes with their VkResult values.
const (
	Success                   Result = 0
	NotReady                  Result = 1
	Timeout                   Result = 2
	Incomplete                Result = 5
	SuboptimalKHR             Result = 1000001003
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorDeviceLost           Result = -4
	ErrorUnknown              Result = -13
	ErrorOutOfDateKHR         Result = -1000001004
	ErrorValidationFailed     Result = -1000011001
)

// String returns the VkResult name of r.
func (r Result) String() string {
	switch r {
	case Success:
		return "VK_SUCCESS"
	case NotReady:
		return "VK_NOT_READY"
	case Timeout:
		return "VK_TIMEOUT"
	case Incomplete:
		return "VK_INCOMPLETE"
	case SuboptimalKHR:
		return "VK_SUBOPTIMAL_KHR"
	case ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case ErrorUnknown:
		return "VK_ERROR_UNKNOWN"
	case ErrorOutOfDateKHR:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case ErrorValidationFailed:
		return "VK_ERROR_VALIDATION_FAILED_EXT"
	default:
		return fmt.Sprintf("VkResult(%d)", int32(r))
	}
}

// Error implements the error interface.
func (r Result) Error() string {
	return r.String()
}

// IsError reports whether r is an error code.
func (r Result) IsError() bool {
	return r < 0
}

// ResultOf maps err to the result code a Vulkan entry point would return.
// A nil error is Success. Errors that carry no code map to ErrorUnknown.
func ResultOf(err error) Result {
	if err == nil {
		return Success
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	switch {
	case errors.Is(err, hal.ErrDeviceLost):
		return ErrorDeviceLost
	case errors.Is(err, hal.ErrSurfaceOutdated), errors.Is(err, hal.ErrSurfaceLost):
		return ErrorOutOfDateKHR
	case errors.Is(err, hal.ErrTimeout):
		return Timeout
	case errors.Is(err, hal.ErrNotReady):
		return NotReady
	case backend.IsOutOfMemory(err):
		return ErrorOutOfDeviceMemory
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return ErrorDeviceLost
	}
	return ErrorUnknown
}
