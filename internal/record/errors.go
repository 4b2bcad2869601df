package record

import "errors"

// Error taxonomy shared by every component. Callers wrap these with
// fmt.Errorf("...: %w", ...) and test them with errors.Is.
var (
	// ErrInvalidCredential means the API key was rejected by the stats service.
	ErrInvalidCredential = errors.New("invalid api key")

	// ErrInvalidArgument means an unknown boss, content category or record type.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotConfigured means a user is missing an API key or tracked bosses.
	ErrNotConfigured = errors.New("user not configured")

	// ErrMalformedLink means a log link did not carry a parseable timestamp.
	ErrMalformedLink = errors.New("malformed log link")

	// ErrDeliveryFailed means a message could not be sent to one channel.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrUpstreamUnavailable means the stats service failed or timed out.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStaleEra means the event belongs to a superseded patch and was dropped.
	ErrStaleEra = errors.New("record for superseded era")
)
