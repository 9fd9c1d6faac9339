package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/backmassage/clipsweep/internal/config"
	"github.com/backmassage/clipsweep/internal/logging"
	"github.com/backmassage/clipsweep/internal/metrics"
	"github.com/backmassage/clipsweep/internal/video"
	"github.com/backmassage/clipsweep/internal/video/videotest"
)

// --- Discover tests ---

func TestDiscover_FiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "00M01S_1.mp4")
	touch(t, dir, "00M02S_2.avi")
	touch(t, dir, "00M03S_3.mkv")
	touch(t, dir, "clip.mov")
	touch(t, dir, "readme.txt")
	touch(t, dir, "snapshot.jpg")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"00M01S_1.mp4", "00M02S_2.avi", "00M03S_3.mkv"}, basenames(files))
}

func TestDiscover_CaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "A.MP4")
	touch(t, dir, "b.Mkv")
	touch(t, dir, "c.AVI")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestDiscover_RecursiveWalkOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	touch(t, dir, "z.avi")
	touch(t, dir, "b.mp4")
	touch(t, filepath.Join(dir, "sub"), "c.mkv")
	touch(t, dir, "a.mp4")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4", "b.mp4", "c.mkv", "z.avi"}, basenames(files))
	assert.Equal(t, filepath.Join(dir, "sub", "c.mkv"), files[2])
}

func TestDiscover_ExcludesOwnOutput(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "00M01S_1.mp4")
	touch(t, dir, "concatenated_output.mp4")
	touch(t, dir, "concatenated_output.mp4.temp.mp4")

	out := filepath.Join(dir, "concatenated_output.mp4")
	files, err := Discover(dir, out, out+".temp.mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"00M01S_1.mp4"}, basenames(files))
}

func TestDiscover_EmptyDir(t *testing.T) {
	files, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestIsClip(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.mp4", true},
		{"a.MP4", true},
		{"dir/a.avi", true},
		{"a.mkv", true},
		{"a.mov", false},
		{"a.mp4.txt", false},
		{"mp4", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClip(tt.path))
		})
	}
}

// --- RunStats tests ---

func TestRunStats_Failed(t *testing.T) {
	assert.False(t, (&RunStats{DeleteFailed: 2, Unreadable: 1}).Failed())
	assert.True(t, (&RunStats{ConcatFailed: true}).Failed())
	assert.True(t, (&RunStats{Interrupted: true}).Failed())
	assert.True(t, (&RunStats{DiscoveryFailed: true}).Failed())
}

// --- Run tests (in-memory decoder and encoder) ---

const (
	testW   = 320
	testH   = 240
	testFPS = 10
)

type runFixture struct {
	dir    string
	opener *videotest.Opener
	enc    *videotest.Encoder
	cfg    config.Config
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.InputDir = dir
	cfg.ColorMode = config.ColorNever
	return &runFixture{
		dir:    dir,
		opener: videotest.NewOpener(),
		enc:    &videotest.Encoder{},
		cfg:    cfg,
	}
}

// add writes a placeholder file for name and registers its frames.
func (f *runFixture) add(t *testing.T, name string, c *videotest.Clip) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(p, make([]byte, 2048), 0o644))
	f.opener.Add(p, c)
	return p
}

func (f *runFixture) output() string {
	return filepath.Join(f.dir, config.DefaultOutputName)
}

func (f *runFixture) deps() Deps {
	return Deps{Opener: f.opener, Encoder: f.enc}
}

func (f *runFixture) run(ctx context.Context, deps Deps) RunStats {
	return Run(ctx, &f.cfg, logging.Discard(), deps)
}

func TestRun_DeletesStaticKeepsMoving(t *testing.T) {
	f := newRunFixture(t)
	moving := videotest.Moving(testW, testH, 10, testFPS)
	a := f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 10, testFPS))
	b := f.add(t, "00M20S_2.mp4", moving)
	touch(t, f.dir, "notes.txt")

	stats := f.run(context.Background(), f.deps())

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 1, stats.Kept)
	assert.Equal(t, int64(2048), stats.BytesFreed)
	assert.True(t, stats.Concatenated)
	assert.False(t, stats.Failed())

	assert.NoFileExists(t, a)
	assert.FileExists(t, b)
	assert.FileExists(t, f.output())

	out := f.enc.Output(f.output())
	require.NotNil(t, out)
	require.Len(t, out.Frames, len(moving.Frames))
	for i := range moving.Frames {
		assert.Same(t, moving.Frames[i], out.Frames[i], "frame %d", i)
	}
	assert.Equal(t, 10, stats.Frames)
}

func TestRun_EmptySurvivorSet(t *testing.T) {
	f := newRunFixture(t)
	f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 5, testFPS))
	f.add(t, "00M20S_2.mkv", videotest.Static(testW, testH, 5, testFPS))

	stats := f.run(context.Background(), f.deps())

	assert.Equal(t, 2, stats.Deleted)
	assert.False(t, stats.Concatenated)
	assert.False(t, stats.Failed())
	assert.NoFileExists(t, f.output())
	assert.Nil(t, f.enc.Output(f.output()))
}

func TestRun_PrimaryWriterFails(t *testing.T) {
	f := newRunFixture(t)
	moving := videotest.Moving(testW, testH, 6, testFPS)
	f.add(t, "00M20S_2.mp4", moving)
	f.enc.Fail = map[video.Codec]error{video.CodecH264: errors.New("libx264 unavailable")}

	stats := f.run(context.Background(), f.deps())

	require.True(t, stats.Concatenated)
	out := f.enc.Output(f.output())
	require.NotNil(t, out)
	assert.Equal(t, video.CodecMPEG4, out.Spec.Codec)
	require.Len(t, out.Frames, len(moving.Frames))
	for i := range moving.Frames {
		assert.Equal(t, moving.Frames[i].Pix, out.Frames[i].Pix, "frame %d", i)
	}
}

func TestRun_NoWriterKeepsDeletions(t *testing.T) {
	f := newRunFixture(t)
	a := f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 5, testFPS))
	b := f.add(t, "00M20S_2.mp4", videotest.Moving(testW, testH, 5, testFPS))
	f.enc.Fail = map[video.Codec]error{
		video.CodecH264:  errors.New("libx264 unavailable"),
		video.CodecMPEG4: errors.New("mpeg4 unavailable"),
	}

	stats := f.run(context.Background(), f.deps())

	assert.True(t, stats.ConcatFailed)
	assert.True(t, stats.Failed())
	assert.NoFileExists(t, a, "deletions are not rolled back")
	assert.FileExists(t, b)
	assert.NoFileExists(t, f.output())
}

func TestRun_NoConcat(t *testing.T) {
	f := newRunFixture(t)
	f.cfg.Concat = false
	f.add(t, "00M20S_2.mp4", videotest.Moving(testW, testH, 5, testFPS))

	stats := f.run(context.Background(), f.deps())

	assert.Equal(t, 1, stats.Kept)
	assert.False(t, stats.Concatenated)
	assert.NoFileExists(t, f.output())
}

func TestRun_DryRun(t *testing.T) {
	f := newRunFixture(t)
	f.cfg.DryRun = true
	f.cfg.Report = filepath.Join(t.TempDir(), "report.yaml")
	a := f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 5, testFPS))
	f.add(t, "00M20S_2.mp4", videotest.Moving(testW, testH, 5, testFPS))

	stats := f.run(context.Background(), f.deps())

	assert.Equal(t, 1, stats.Deleted)
	assert.Zero(t, stats.BytesFreed)
	assert.FileExists(t, a)
	assert.NoFileExists(t, f.output())

	rep, err := ReadReport(f.cfg.Report)
	require.NoError(t, err)
	assert.True(t, rep.DryRun)
	require.Len(t, rep.Clips, 2)
	assert.Equal(t, ActionWouldDelete, rep.Clips[0].Action)
	assert.Equal(t, ActionKept, rep.Clips[1].Action)
	assert.Nil(t, rep.Output)
}

func TestRun_UnreadableClipIsKept(t *testing.T) {
	f := newRunFixture(t)
	broken := f.add(t, "00M30S_3.mp4", &videotest.Clip{OpenErr: errors.New("moov atom not found")})
	f.add(t, "00M20S_2.mp4", videotest.Moving(testW, testH, 5, testFPS))

	stats := f.run(context.Background(), f.deps())

	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 1, stats.Unreadable)
	assert.Zero(t, stats.Deleted)
	assert.FileExists(t, broken)
	assert.True(t, stats.Concatenated, "the unreadable clip is skipped by the concatenator")
	assert.Equal(t, 5, stats.Frames)
}

// vanishingOpener removes a clip from disk while it is being classified,
// simulating a file deleted by another process before deletion.
type vanishingOpener struct {
	*videotest.Opener
	path string
}

func (o vanishingOpener) Open(ctx context.Context, path string, opts video.DecodeOptions) (video.Reader, error) {
	if path == o.path {
		_ = os.Remove(path)
	}
	return o.Opener.Open(ctx, path, opts)
}

func TestRun_VanishedClip(t *testing.T) {
	f := newRunFixture(t)
	gone := f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 5, testFPS))
	other := f.add(t, "00M11S_1.mp4", videotest.Static(testW, testH, 5, testFPS))

	deps := f.deps()
	deps.Opener = vanishingOpener{Opener: f.opener, path: gone}
	stats := f.run(context.Background(), deps)

	assert.Equal(t, 1, stats.DeleteFailed)
	assert.Equal(t, 1, stats.Deleted)
	assert.NoFileExists(t, other)
	assert.False(t, stats.Failed())
}

func TestRun_WorkerPool(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newRunFixture(t)
	f.cfg.Workers = 4
	f.cfg.Concat = false

	var static, moving []string
	for i := range 8 {
		if i%2 == 0 {
			static = append(static, f.add(t, clipName(i), videotest.Static(160, 120, 4, testFPS)))
		} else {
			moving = append(moving, f.add(t, clipName(i), videotest.Moving(testW, testH, 4, testFPS)))
		}
	}

	stats := f.run(context.Background(), f.deps())

	assert.Equal(t, 8, stats.Total)
	assert.Equal(t, 4, stats.Deleted)
	assert.Equal(t, 4, stats.Kept)
	for _, p := range static {
		assert.NoFileExists(t, p)
	}
	for _, p := range moving {
		assert.FileExists(t, p)
	}
}

func TestRun_CancelledDeletesNothing(t *testing.T) {
	f := newRunFixture(t)
	a := f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 5, testFPS))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats := f.run(ctx, f.deps())

	assert.True(t, stats.Interrupted)
	assert.True(t, stats.Failed())
	assert.FileExists(t, a)
	assert.NoFileExists(t, f.output())
}

type copyCompressor struct{ calls int }

func (c *copyCompressor) Compress(_ context.Context, src, dst string) error {
	c.calls++
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func TestRun_ReportAndMetrics(t *testing.T) {
	f := newRunFixture(t)
	f.cfg.Report = filepath.Join(t.TempDir(), "reports", "run.yaml")
	f.cfg.MetricsFile = filepath.Join(t.TempDir(), "clipsweep.prom")
	f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 5, testFPS))
	f.add(t, "00M20S_2.mp4", videotest.Moving(testW, testH, 5, testFPS))

	m, err := metrics.New()
	require.NoError(t, err)
	comp := &copyCompressor{}
	deps := f.deps()
	deps.Compressor = comp
	deps.Metrics = m

	stats := f.run(context.Background(), deps)
	require.True(t, stats.Compressed)
	assert.Equal(t, 1, comp.calls)
	assert.NoFileExists(t, f.output()+".temp.mp4")

	rep, err := ReadReport(f.cfg.Report)
	require.NoError(t, err)
	_, err = uuid.Parse(rep.RunID)
	assert.NoError(t, err)
	assert.Equal(t, f.dir, rep.Folder)
	assert.Equal(t, "0,0,150,40", rep.Detection.TimeBox)
	require.Len(t, rep.Clips, 2)
	assert.Equal(t, ActionDeleted, rep.Clips[0].Action)
	assert.False(t, rep.Clips[0].HasMotion)
	assert.Equal(t, ActionKept, rep.Clips[1].Action)
	assert.Equal(t, 1, rep.Clips[1].TriggerFrame)
	require.NotNil(t, rep.Output)
	assert.Equal(t, 5, rep.Output.Frames)
	assert.True(t, rep.Output.Compressed)
	assert.Equal(t, 1, rep.Summary.Deleted)

	data, err := os.ReadFile(f.cfg.MetricsFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `clipsweep_clips_total{outcome="deleted"} 1`)
	assert.Contains(t, text, `clipsweep_clips_total{outcome="kept"} 1`)
	assert.Contains(t, text, "clipsweep_concat_frames_total 5")
	assert.Contains(t, text, `clipsweep_compress_total{status="success"} 1`)
}

func TestRun_MissingFolder(t *testing.T) {
	f := newRunFixture(t)
	f.cfg.InputDir = filepath.Join(f.dir, "missing")

	stats := f.run(context.Background(), f.deps())
	assert.True(t, stats.DiscoveryFailed)
	assert.True(t, stats.Failed())
}

// --- Analyze tests ---

func TestAnalyze(t *testing.T) {
	f := newRunFixture(t)
	a := f.add(t, "00M10S_1.mp4", videotest.Static(testW, testH, 5, testFPS))
	b := f.add(t, "00M20S_2.mp4", videotest.Moving(testW, testH, 5, testFPS))
	f.add(t, "broken.mp4", &videotest.Clip{OpenErr: errors.New("invalid data")})

	n := Analyze(context.Background(), &f.cfg, logging.Discard(), f.opener.Info)
	assert.Equal(t, 2, n)
	assert.FileExists(t, a)
	assert.FileExists(t, b)
}

func TestComputeStats(t *testing.T) {
	assert.False(t, computeStats([]float64{1, 2, 3}).valid, "needs four samples")
	assert.False(t, computeStats([]float64{5, 5, 5, 5}).valid, "zero spread")

	b := computeStats([]float64{10, 10, 11, 12, 10, 11, 60})
	require.True(t, b.valid)
	assert.Equal(t, "", b.classify(11))
	assert.Equal(t, "extreme", b.classify(60))
	assert.Equal(t, "", b.classify(0), "unknown durations are never flagged")
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, percentile(sorted, 0), 1e-9)
	assert.InDelta(t, 2.5, percentile(sorted, 50), 1e-9)
	assert.InDelta(t, 4.0, percentile(sorted, 100), 1e-9)
	assert.Zero(t, percentile(nil, 50))
}

// --- Helpers ---

func clipName(i int) string {
	return fmt.Sprintf("00M%02dS_%d.mp4", i, i)
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
