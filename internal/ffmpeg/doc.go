// Package ffmpeg runs ffmpeg as a subprocess to decode clips into raw BGR24
// frames, encode raw frames into an output file, and re-encode a finished
// file in a secondary compression pass.
//
// Frames cross the process boundary as rawvideo over stdin/stdout pipes.
// Failed compression runs are classified from stderr and retried with one
// fix per attempt: encoder fallback, larger mux queue, timestamp regeneration.
package ffmpeg
