package ffmpeg

import "github.com/backmassage/clipsweep/internal/video"

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone            RetryAction = iota
	RetryFallbackEncoder             // Switch libx264 to mpeg4.
	RetryIncreaseMux                 // Raise max_muxing_queue_size to 16384.
	RetryFixTimestamps               // Enable +genpts+discardcorrupt.
)

func (a RetryAction) String() string {
	switch a {
	case RetryFallbackEncoder:
		return "fallback encoder"
	case RetryIncreaseMux:
		return "increase mux queue"
	case RetryFixTimestamps:
		return "regenerate timestamps"
	default:
		return "none"
	}
}

const (
	maxAttempts      = 4
	muxQueueDefault  = 4096
	muxQueueEscalate = 16384
)

// RetryState tracks which fallback fixes have been applied across ffmpeg
// attempts of one compression pass.
type RetryState struct {
	Attempt     int
	MaxAttempts int

	Codec        video.Codec
	MuxQueueSize int
	TimestampFix bool
}

// NewRetryState starts at libx264 with the default mux queue. In strict mode
// no attempt beyond the first is made.
func NewRetryState(strict bool) *RetryState {
	rs := &RetryState{
		MaxAttempts:  maxAttempts,
		Codec:        video.CodecH264,
		MuxQueueSize: muxQueueDefault,
	}
	if strict {
		rs.MaxAttempts = 1
	}
	return rs
}

// Advance inspects stderr from a failed ffmpeg run, finds the first matching
// error pattern whose fix has not yet been applied, applies that fix, and
// returns the action taken. Returns RetryNone when no fixable pattern matches
// or the attempt limit is reached.
//
// Pattern evaluation order: encoder → mux queue → timestamp.
func (s *RetryState) Advance(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}

	if s.Codec != video.CodecMPEG4 && MatchEncoderIssue(stderr) {
		s.Codec = video.CodecMPEG4
		return RetryFallbackEncoder
	}
	if s.MuxQueueSize < muxQueueEscalate && MatchMuxQueueOverflow(stderr) {
		s.MuxQueueSize = muxQueueEscalate
		return RetryIncreaseMux
	}
	if !s.TimestampFix && MatchTimestampIssue(stderr) {
		s.TimestampFix = true
		return RetryFixTimestamps
	}

	return RetryNone
}
