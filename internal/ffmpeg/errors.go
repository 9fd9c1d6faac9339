package ffmpeg

import (
	"errors"
	"regexp"
)

// ErrEncoderUnavailable is returned when ffmpeg cannot open the requested
// video encoder.
var ErrEncoderUnavailable = errors.New("encoder unavailable")

// Pre-compiled regexes for classifying ffmpeg stderr output into retryable
// error categories. Checked in order by [RetryState.Advance]; the first
// matching pattern whose fix has not yet been applied wins.
var (
	reEncoderIssue = regexp.MustCompile(
		`(?i)Unknown encoder|Encoder not found|` +
			`Error while opening encoder|` +
			`Could not open encoder|` +
			`Error initializing output stream .*video`)

	reMuxQueueOverflow = regexp.MustCompile(
		`Too many packets buffered for output stream`)

	reTimestampIssue = regexp.MustCompile(
		`(?i)Non-monotonous DTS|non monotonically increasing dts|` +
			`invalid, non monotonically increasing dts|` +
			`DTS .*out of order|PTS .*out of order|` +
			`pts has no value|missing PTS|Timestamps are unset`)
)

// MatchEncoderIssue reports whether stderr shows the video encoder could not
// be opened.
func MatchEncoderIssue(stderr string) bool {
	return reEncoderIssue.MatchString(stderr)
}

// MatchMuxQueueOverflow reports whether stderr contains a mux queue overflow.
func MatchMuxQueueOverflow(stderr string) bool {
	return reMuxQueueOverflow.MatchString(stderr)
}

// MatchTimestampIssue reports whether stderr contains a timestamp discontinuity.
func MatchTimestampIssue(stderr string) bool {
	return reTimestampIssue.MatchString(stderr)
}
