package darwin

import (
	"strconv"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// AXError values from AXError.h.
const (
	axSuccess              = 0
	axFailure              = -25200
	axIllegalArgument      = -25201
	axInvalidUIElement     = -25202
	axCannotComplete       = -25204
	axAttributeUnsupported = -25205
	axActionUnsupported    = -25206
	axNotImplemented       = -25208
	axAPIDisabled          = -25211
	axNoValue              = -25212
	axParamUnsupported     = -25213
)

// axError converts a non-zero AXError into a platform error. Returns nil on
// success.
func axError(op string, code int) error {
	if code == axSuccess {
		return nil
	}
	pc := strconv.Itoa(code)
	switch code {
	case axInvalidUIElement:
		return platform.NewError(platform.CodeElementDetached, "the element no longer exists").
			WithOperation(op).WithPlatformCode(pc)
	case axAPIDisabled:
		return platform.NewError(platform.CodePermissionDenied,
			"accessibility access is not granted: enable this program under System Settings > Privacy & Security > Accessibility").
			WithOperation(op).WithPlatformCode(pc)
	case axAttributeUnsupported, axActionUnsupported, axNotImplemented, axParamUnsupported:
		return platform.Unsupported(op).WithPlatformCode(pc)
	case axIllegalArgument:
		return platform.NewError(platform.CodeInvalidArgument, "the application rejected the argument").
			WithOperation(op).WithPlatformCode(pc)
	case axCannotComplete:
		// The target application is busy or not responding.
		return platform.NewPlatformError(op, "the application did not answer in time").
			WithPlatformCode(pc).WithRetryable(true)
	default:
		return platform.NewPlatformError(op, "accessibility call failed").WithPlatformCode(pc)
	}
}
