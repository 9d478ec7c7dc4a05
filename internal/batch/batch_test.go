package batch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/quadfuse/internal/pseudo"
	"github.com/kiesman99/quadfuse/pkg/raster"
)

func writeTile(t *testing.T, path string, w, h int, v uint8) {
	t.Helper()
	r := raster.New(w, h, raster.Gray)
	for i := range r.Pix {
		r.Pix[i] = v
	}
	require.NoError(t, raster.Save(r, path, raster.DefaultBackground))
}

func writeGroup(t *testing.T, dir, prefix string, w, h int) {
	t.Helper()
	for i, suffix := range []string{"LU", "RU", "LD", "RD"} {
		writeTile(t, filepath.Join(dir, prefix+"_"+suffix+".bmp"), w, h, uint8(40*(i+1)))
	}
}

func newTestProcessor(buf *bytes.Buffer) *Processor {
	opts := DefaultOptions()
	opts.Workers = 2
	opts.Logger = log.New(buf, "", 0)
	return New(opts)
}

func TestCombine_SkipsBadGroupsAndContinues(t *testing.T) {
	dir := t.TempDir()
	writeGroup(t, dir, "good", 8, 6)
	writeGroup(t, dir, "other", 4, 4)

	// incomplete group
	writeTile(t, filepath.Join(dir, "partial_LU.bmp"), 4, 4, 1)
	writeTile(t, filepath.Join(dir, "partial_RU.bmp"), 4, 4, 1)

	// mismatched group
	writeGroup(t, dir, "skewed", 4, 4)
	writeTile(t, filepath.Join(dir, "skewed_RD.bmp"), 5, 4, 1)

	// no positional suffix
	writeTile(t, filepath.Join(dir, "notes.bmp"), 2, 2, 1)

	var logs bytes.Buffer
	rep, err := newTestProcessor(&logs).Combine(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, []string{filepath.Join(dir, "notes.bmp")}, rep.Ignored)
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, "partial", rep.Failures[0].Name)
	assert.True(t, errors.Is(rep.Failures[0].Err, raster.ErrMissingTile))
	assert.Equal(t, "skewed", rep.Failures[1].Name)
	assert.True(t, errors.Is(rep.Failures[1].Err, raster.ErrDimensionMismatch))
	assert.Contains(t, logs.String(), "skipping partial")

	out, err := raster.Load(filepath.Join(dir, CombinedDir, "good_combined.bmp"))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 12), out.Size())
	assert.Equal(t, uint8(40), out.At(0, 0)[0])
	assert.Equal(t, uint8(160), out.At(15, 11)[0])
}

func TestCombine_CaseInsensitiveSuffix(t *testing.T) {
	dir := t.TempDir()
	for i, suffix := range []string{"lu", "Ru", "LD", "rd"} {
		writeTile(t, filepath.Join(dir, "s_"+suffix+".BMP"), 2, 2, uint8(i))
	}
	var logs bytes.Buffer
	rep, err := newTestProcessor(&logs).Combine(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Succeeded)
}

func TestCombine_AllFail(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "a_LU.bmp"), 2, 2, 1)

	var logs bytes.Buffer
	rep, err := newTestProcessor(&logs).Combine(context.Background(), dir)
	require.NoError(t, err)
	var stageErr *StageError
	assert.True(t, errors.As(rep.Err(), &stageErr))
}

func TestCombine_MissingDir(t *testing.T) {
	var logs bytes.Buffer
	_, err := newTestProcessor(&logs).Combine(context.Background(), filepath.Join(t.TempDir(), "absent"))
	var ioErr *raster.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestCombine_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeGroup(t, dir, "a", 2, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var logs bytes.Buffer
	_, err := newTestProcessor(&logs).Combine(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPseudo_WritesChannelFolder(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "frame.bmp"), 3, 3, 90)

	var logs bytes.Buffer
	rep, err := newTestProcessor(&logs).Pseudo(context.Background(), dir, pseudo.Green, "")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Succeeded)

	out, err := raster.Load(filepath.Join(dir, "green_pseudo", "frame_green.bmp"))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 90, 0}, out.At(1, 1))
}

func TestPseudo_InvalidChannel(t *testing.T) {
	var logs bytes.Buffer
	_, err := newTestProcessor(&logs).Pseudo(context.Background(), t.TempDir(), pseudo.Channel("blue"), "")
	assert.True(t, errors.Is(err, raster.ErrInvalidArgument))
}

func TestPairFiles(t *testing.T) {
	pairs := PairFiles(
		[]string{"/r/a_red.bmp", "/r/b_red.bmp", "/r/lonely_red.bmp"},
		[]string{"/g/b_green.bmp", "/g/a_green.bmp", "/g/extra_green.bmp"},
	)
	require.Len(t, pairs, 2)
	assert.Equal(t, Pair{Base: "a", Red: "/r/a_red.bmp", Green: "/g/a_green.bmp"}, pairs[0])
	assert.Equal(t, "b", pairs[1].Base)
}

func TestPairFiles_StripsOnlyOwnChannel(t *testing.T) {
	pairs := PairFiles(
		[]string{"/r/x_green.bmp", "/r/y_red.bmp"},
		[]string{"/g/x_green.bmp", "/g/y_red.bmp"},
	)
	assert.Empty(t, pairs)

	pairs = PairFiles([]string{"/r/plain.bmp"}, []string{"/g/plain.bmp"})
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{Base: "plain", Red: "/r/plain.bmp", Green: "/g/plain.bmp"}, pairs[0])
}

func TestRun_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	writeGroup(t, dir, "cell", 4, 4)

	var logs bytes.Buffer
	reports, err := newTestProcessor(&logs).Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, reports, 4)

	overlayDir := filepath.Join(dir, CombinedDir, OverlayDir)
	assert.Equal(t, overlayDir, reports[3].OutputDir)
	require.Equal(t, 1, reports[3].Succeeded)

	name := "cell_combined_red_cell_combined_green_overlay.bmp"
	_, err = os.Stat(filepath.Join(overlayDir, name))
	require.NoError(t, err)

	out, err := raster.Load(filepath.Join(overlayDir, name))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 8), out.Size())
	assert.Contains(t, logs.String(), "brightness: 0.47")
}

func TestOverlay_DimensionMismatchSkipsPair(t *testing.T) {
	root := t.TempDir()
	red := filepath.Join(root, "red_pseudo")
	green := filepath.Join(root, "green_pseudo")
	require.NoError(t, os.MkdirAll(red, 0o755))
	require.NoError(t, os.MkdirAll(green, 0o755))

	writeTile(t, filepath.Join(red, "a_red.png"), 4, 4, 250)
	writeTile(t, filepath.Join(green, "a_green.png"), 4, 4, 250)
	writeTile(t, filepath.Join(red, "b_red.png"), 4, 4, 10)
	writeTile(t, filepath.Join(green, "b_green.png"), 5, 4, 10)

	var logs bytes.Buffer
	rep, err := newTestProcessor(&logs).Overlay(context.Background(), red, green, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, OverlayDir), rep.OutputDir)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Succeeded)
	require.Len(t, rep.Failures, 1)
	assert.True(t, errors.Is(rep.Failures[0].Err, raster.ErrDimensionMismatch))

	out, err := raster.Load(filepath.Join(root, OverlayDir, "a_red_a_green_overlay.png"))
	require.NoError(t, err)
	assert.Equal(t, raster.RGBA, out.Layout)
}
