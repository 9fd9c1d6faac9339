package probe

import (
	"math"
	"time"

	"github.com/backmassage/clipsweep/internal/video"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   float64
	Size       int64
}

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index         int
	Codec         string
	PixFmt        string
	Width         int
	Height        int
	NbFrames      int
	Duration      float64
	AvgFrameRate  string
	RealFrameRate string
	IsAttachedPic bool
}

// ProbeResult is the parsed output of one ffprobe call. PrimaryVideo is the
// first non-attached-pic video stream (nil if none).
type ProbeResult struct {
	Format       FormatInfo
	PrimaryVideo *VideoStream
}

// FPS returns the primary stream frame rate, preferring avg_frame_rate and
// falling back to r_frame_rate. Zero when unknown.
func (p *ProbeResult) FPS() float64 {
	if p.PrimaryVideo == nil {
		return 0
	}
	if fps := ParseRate(p.PrimaryVideo.AvgFrameRate); fps > 0 {
		return fps
	}
	return ParseRate(p.PrimaryVideo.RealFrameRate)
}

// DurationSeconds returns the stream duration, falling back to the
// container duration.
func (p *ProbeResult) DurationSeconds() float64 {
	if p.PrimaryVideo != nil && p.PrimaryVideo.Duration > 0 {
		return p.PrimaryVideo.Duration
	}
	return p.Format.Duration
}

// FrameCount returns nb_frames when the container records it (mp4, avi) and
// otherwise estimates duration × fps (mkv does not carry a frame count).
func (p *ProbeResult) FrameCount() int {
	if p.PrimaryVideo == nil {
		return 0
	}
	if p.PrimaryVideo.NbFrames > 0 {
		return p.PrimaryVideo.NbFrames
	}
	return int(math.Round(p.DurationSeconds() * p.FPS()))
}

// ClipInfo converts the probe result into the shared clip description.
func (p *ProbeResult) ClipInfo(path string) video.ClipInfo {
	info := video.ClipInfo{Path: path}
	if p.PrimaryVideo == nil {
		return info
	}
	info.Width = p.PrimaryVideo.Width
	info.Height = p.PrimaryVideo.Height
	info.FPS = p.FPS()
	info.FrameCount = p.FrameCount()
	if info.FPS > 0 && info.FrameCount > 0 {
		info.Duration = time.Duration(float64(info.FrameCount) / info.FPS * float64(time.Second))
	} else {
		info.Duration = time.Duration(p.DurationSeconds() * float64(time.Second))
	}
	return info
}
