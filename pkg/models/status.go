package models

import "strconv"

// PageStatus tells whether a page could be fetched and analyzed
type PageStatus string

const (
	PageStatusSuccess PageStatus = "success"
	PageStatusError   PageStatus = "error"
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known value
func (s PageStatus) IsValid() bool {
	return s == PageStatusSuccess || s == PageStatusError
}

// OGImageStatus classifies the liveness of a page's og:image
type OGImageStatus string

const (
	OGImageUnknown     OGImageStatus = "unknown" // Present but not probed
	OGImageOK          OGImageStatus = "ok"
	OGImageNotFound    OGImageStatus = "404"
	OGImageRedirect    OGImageStatus = "redirect"
	OGImageUnreachable OGImageStatus = "unreachable"
)

// OGImageError returns the error-<code> class for an unexpected status
func OGImageError(code int) OGImageStatus {
	return OGImageStatus("error-" + strconv.Itoa(code))
}

// ClassifyOGImage maps a probe outcome to its class. reachable is false when no HTTP response was obtained.
func ClassifyOGImage(statusCode int, reachable bool) OGImageStatus {
	switch {
	case !reachable:
		return OGImageUnreachable
	case statusCode >= 200 && statusCode < 300:
		return OGImageOK
	case statusCode == 404:
		return OGImageNotFound
	case statusCode >= 300 && statusCode < 400:
		return OGImageRedirect
	default:
		return OGImageError(statusCode)
	}
}

// IsHealthy reports whether the status raises no issue
func (s OGImageStatus) IsHealthy() bool {
	return s == "" || s == OGImageOK || s == OGImageUnknown
}
