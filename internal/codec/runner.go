// Package codec measures one codec configuration on one image by driving
// external encoder, decoder and metric binaries.
package codec

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	_ "image/jpeg" // originals may be JPEG
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harrison/codecbench/internal/models"
)

// ErrNoCommand is returned for codecs without configured commands.
var ErrNoCommand = errors.New("no command configured")

// Config configures a CommandRunner.
type Config struct {
	Codecs             map[models.Codec]Commands
	Metrics            map[models.DistortionMetric]Template
	MetricBinaryFolder string
	TempDir            string // parent of the runner's scratch folder; os.TempDir() if empty
}

// CommandRunner runs tasks with external commands. It is safe for concurrent
// use as long as each goroutine passes its own worker ID.
type CommandRunner struct {
	cfg     Config
	scratch string // private to this runner, holds the per-worker files
}

// NewCommandRunner creates a runner and its scratch folder under
// cfg.TempDir. Close removes the folder.
func NewCommandRunner(cfg Config) (*CommandRunner, error) {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	scratch, err := os.MkdirTemp(cfg.TempDir, "codecbench-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &CommandRunner{cfg: cfg, scratch: scratch}, nil
}

// Close removes the scratch folder.
func (r *CommandRunner) Close() error {
	if err := os.RemoveAll(r.scratch); err != nil {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	return nil
}

// Supports reports whether commands are configured for c.
func (r *CommandRunner) Supports(c models.Codec) bool {
	cmds, ok := r.cfg.Codecs[c]
	return ok && len(cmds.Encode) > 0 && len(cmds.Decode) > 0
}

// RunTask encodes the image of input, decodes it back and measures the
// distortion between both. With models.LoadFromDisk the encoding is read from
// input.EncodedPath and the encoding duration is left at zero.
func (r *CommandRunner) RunTask(ctx context.Context, input models.TaskInput, workerID int, mode models.EncodeMode) (models.TaskOutput, error) {
	cs := input.Settings
	if !r.Supports(cs.Codec) {
		return models.TaskOutput{}, fmt.Errorf("%s: %w", cs.Codec, ErrNoCommand)
	}
	cmds := r.cfg.Codecs[cs.Codec]

	original, frames, err := readImage(input.ImagePath)
	if err != nil {
		return models.TaskOutput{}, err
	}
	bounds := original.Bounds()
	output := models.TaskOutput{
		Input:       input,
		ImageWidth:  uint32(bounds.Dx()),
		ImageHeight: uint32(bounds.Dy()),
		NumFrames:   uint32(frames),
		BitDepth:    bitDepth(original),
	}

	scratch := filepath.Join(r.scratch, "worker"+strconv.Itoa(workerID))
	encodedPath := scratch + "." + cs.Codec.Extension()
	decodedPath := scratch + ".decoded.png"
	defer os.Remove(decodedPath)

	switch mode {
	case models.LoadFromDisk:
		if input.EncodedPath == "" {
			return models.TaskOutput{}, fmt.Errorf("no encoded file to load for %s", input.ImagePath)
		}
		encodedPath = input.EncodedPath
	case models.EncodeAndSave:
		if input.EncodedPath != "" {
			if err := os.MkdirAll(filepath.Dir(input.EncodedPath), 0755); err != nil {
				return models.TaskOutput{}, fmt.Errorf("failed to create encoded folder: %w", err)
			}
			encodedPath = input.EncodedPath
		}
		fallthrough
	default:
		if encodedPath != input.EncodedPath {
			defer os.Remove(encodedPath)
		}
		res, err := run(ctx, cmds.Encode.Expand(map[string]string{
			PlaceholderInput:       input.ImagePath,
			PlaceholderOutput:      encodedPath,
			PlaceholderQuality:     qualityArg(cs),
			PlaceholderEffort:      strconv.Itoa(cs.Effort),
			PlaceholderSubsampling: cs.Subsampling.String(),
		}))
		if err != nil {
			return models.TaskOutput{}, fmt.Errorf("encoding failed: %w", err)
		}
		output.EncodingDuration = res.Duration
	}

	info, err := os.Stat(encodedPath)
	if err != nil {
		return models.TaskOutput{}, fmt.Errorf("encoded file missing: %w", err)
	}
	if info.Size() == 0 {
		return models.TaskOutput{}, fmt.Errorf("encoded file %s is empty", encodedPath)
	}
	output.EncodedSize = uint64(info.Size())

	res, err := run(ctx, cmds.Decode.Expand(map[string]string{
		PlaceholderInput:  encodedPath,
		PlaceholderOutput: decodedPath,
	}))
	if err != nil {
		return models.TaskOutput{}, fmt.Errorf("decoding failed: %w", err)
	}
	// The decoder runs as one process, so its color conversion is not timed
	// apart and DecodingColorConversionDuration stays zero.
	output.DecodingDuration = res.Duration

	decoded, _, err := readImage(decodedPath)
	if err != nil {
		return models.TaskOutput{}, fmt.Errorf("decoded image: %w", err)
	}
	if decoded.Bounds().Size() != bounds.Size() {
		return models.TaskOutput{}, fmt.Errorf("decoded image is %v, expected %v", decoded.Bounds().Size(), bounds.Size())
	}

	if samePixels(original, decoded) {
		output.SetNoDistortion()
	} else if cs.Lossless() {
		return models.TaskOutput{}, fmt.Errorf("lossless encoding of %s is not pixel exact", input.ImagePath)
	} else if err := r.measureDistortions(ctx, input.ImagePath, decodedPath, &output); err != nil {
		return models.TaskOutput{}, err
	}

	if mode == models.EncodeAndSave && input.EncodedPath != "" && !cs.Codec.SupportedByBrowsers() {
		// Browsers cannot display the encoding itself, keep a viewable copy.
		if err := copyFile(decodedPath, input.EncodedPath+".png"); err != nil {
			return models.TaskOutput{}, err
		}
	}
	return output, nil
}

func (r *CommandRunner) measureDistortions(ctx context.Context, reference, distorted string, output *models.TaskOutput) error {
	for m := range output.Distortions {
		metric := models.DistortionMetric(m)
		tmpl, ok := r.cfg.Metrics[metric]
		if !ok || len(tmpl) == 0 {
			continue
		}
		args := resolveBinary(tmpl.Expand(map[string]string{
			PlaceholderReference: reference,
			PlaceholderDistorted: distorted,
		}), r.cfg.MetricBinaryFolder)
		res, err := run(ctx, args)
		if err != nil {
			return fmt.Errorf("%s failed: %w", metric, err)
		}
		score, err := lastNumber(res.Stdout)
		if err != nil {
			return fmt.Errorf("%s: %w", metric, err)
		}
		if metric.Bounded() && (math.IsInf(score, 1) || score > float64(models.NoDistortion)) {
			score = float64(models.NoDistortion)
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return fmt.Errorf("%s: invalid score %v", metric, score)
		}
		output.Distortions[m] = float32(score)
	}
	return nil
}

func qualityArg(cs models.CodecSettings) string {
	if cs.Lossless() {
		return "lossless"
	}
	return strconv.Itoa(cs.Quality)
}

// readImage decodes the image at path and counts its frames. Only GIF
// carries more than one frame among the supported formats.
func readImage(path string) (image.Image, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".gif") {
		g, err := gif.DecodeAll(f)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if len(g.Image) == 0 {
			return nil, 0, fmt.Errorf("%s has no frame", path)
		}
		return g.Image[0], len(g.Image), nil
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, 1, nil
}

func bitDepth(img image.Image) uint32 {
	switch img.ColorModel() {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model, color.Alpha16Model:
		return 16
	}
	return 8
}

// samePixels reports whether a and b have the same size and pixel values.
func samePixels(a, b image.Image) bool {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return false
	}
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return out.Close()
}
