package blob

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes callers branch on. The client never
// retries internally; retry policy belongs to the caller.
var (
	// ErrConfiguration means credentials are missing or unusable. Fatal to
	// any cloud operation; no request is ever sent in this state.
	ErrConfiguration = errors.New("invalid blob store configuration")

	// ErrAuthRejected means the service rejected the request signature.
	// Retrying with the same signature is pointless, so it is surfaced as-is.
	ErrAuthRejected = errors.New("request signature rejected")

	// ErrNotFound means a GET targeted a blob that does not exist.
	ErrNotFound = errors.New("blob not found")
)

// StatusError carries an unexpected HTTP status along with the vendor error
// code and message when the response body could be parsed.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("unexpected status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// vendorError is the XML error body the service returns on failure
type vendorError struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// parseVendorError extracts the vendor error code and message from a response
// body. Both are empty if the body is not the expected XML shape.
func parseVendorError(body []byte) (string, string) {
	var ve vendorError
	if err := xml.Unmarshal(body, &ve); err != nil {
		return "", ""
	}
	return ve.Code, ve.Message
}
