package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/backmassage/clipsweep/internal/video"
)

// DefaultBinary is the ffmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// rawFormat is the pixel layout of frames on the pipes.
const rawFormat = "bgr24"

// Encoder names per output codec.
var encoderNames = map[video.Codec]string{
	video.CodecH264:  "libx264",
	video.CodecMPEG4: "mpeg4",
}

// EncoderName returns the ffmpeg encoder for c.
func EncoderName(c video.Codec) string {
	if n, ok := encoderNames[c]; ok {
		return n
	}
	return string(c)
}

func preamble(verbose bool) []string {
	level := "error"
	if verbose {
		level = "info"
	}
	return []string{"-hide_banner", "-nostdin", "-y", "-loglevel", level}
}

// DecodeArgs builds the arguments that stream the first video stream of
// path to stdout as BGR24 frames. With opts.Fit the picture is scaled
// preserving aspect ratio and padded to exactly FitWidth×FitHeight.
// Rotation metadata is ignored so frames keep the probed stored size.
func DecodeArgs(path string, opts video.DecodeOptions) []string {
	args := preamble(false)
	args = append(args, "-noautorotate", "-i", path, "-map", "0:v:0", "-an", "-sn", "-dn")
	if opts.Fit() {
		args = append(args, "-vf", FitFilter(opts.FitWidth, opts.FitHeight))
	}
	return append(args,
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", rawFormat,
		"pipe:1",
	)
}

// FitFilter letterboxes into w×h.
func FitFilter(w, h int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		w, h, w, h)
}

// EncodeArgs builds the arguments that read BGR24 frames of spec's size from
// stdin and write a video-only file at path.
func EncodeArgs(path string, spec video.WriterSpec) []string {
	args := preamble(false)
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", rawFormat,
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", formatRate(spec.FPS),
		"-i", "pipe:0",
		"-an",
	)
	args = appendVideoCodec(args, spec.Codec, -1)
	return append(args, path)
}

// CompressArgs builds the secondary pass from src to dst under the current
// retry state. verbose raises ffmpeg's log level.
func CompressArgs(src, dst string, crf int, verbose bool, rs *RetryState) []string {
	args := preamble(verbose)
	if rs.TimestampFix {
		args = append(args, "-fflags", "+genpts+discardcorrupt")
	}
	args = append(args,
		"-i", src,
		"-map", "0:v:0",
		"-an", "-dn",
		"-max_muxing_queue_size", strconv.Itoa(rs.MuxQueueSize),
	)
	args = appendVideoCodec(args, rs.Codec, crf)
	if rs.TimestampFix {
		args = append(args, "-avoid_negative_ts", "make_zero")
	}
	return append(args, "-movflags", "+faststart", dst)
}

// NullEncodeArgs encodes a single synthetic frame to the null muxer; it
// succeeds only when the encoder for c can be opened.
func NullEncodeArgs(c video.Codec) []string {
	args := preamble(false)
	args = append(args,
		"-f", "lavfi",
		"-i", "color=c=black:s=64x64:d=0.1",
		"-frames:v", "1",
	)
	args = appendVideoCodec(args, c, -1)
	return append(args, "-f", "null", "-")
}

// appendVideoCodec adds codec arguments. crf < 0 keeps the encoder default
// quality.
func appendVideoCodec(args []string, c video.Codec, crf int) []string {
	switch c {
	case video.CodecH264:
		// yuv420p needs even dimensions.
		args = append(args,
			"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
		)
		if crf >= 0 {
			args = append(args, "-crf", strconv.Itoa(crf))
		}
	case video.CodecMPEG4:
		args = append(args,
			"-c:v", "mpeg4",
			"-q:v", "5",
			"-tag:v", "mp4v",
		)
	default:
		args = append(args, "-c:v", string(c))
	}
	return args
}

func formatRate(fps float64) string {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
