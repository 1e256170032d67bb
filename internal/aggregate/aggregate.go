// Package aggregate merges repeated task measurements and groups results the
// way they are reported: one group per codec, subsampling and effort.
package aggregate

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/harrison/codecbench/internal/models"
)

// distortionTolerance is the largest difference between two distortion
// scores of repetitions of the same task.
const distortionTolerance = 0.001

// InconsistencyError is returned when repetitions of one task disagree on a
// value that does not depend on timing.
type InconsistencyError struct {
	A, B  models.TaskInput
	Field string
}

// Error implements the error interface for InconsistencyError.
func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("repetitions of %s %s disagree on %s", e.A.ImagePath, e.A.Settings, e.Field)
}

// Is reports whether target is models.ErrInternalConsistency.
func (e *InconsistencyError) Is(target error) bool {
	return target == models.ErrInternalConsistency
}

// SplitByCodecSettings groups results by codec, subsampling and effort, in
// that order. Within a group, repetitions sharing image and quality are merged
// into one output whose durations are the mean of the repetitions, and
// outputs are sorted by image path then quality.
func SplitByCodecSettings(results []models.TaskOutput) ([][]models.TaskOutput, error) {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b models.TaskOutput) int {
		return models.CompareBatch(a.Input.Settings, b.Input.Settings)
	})

	var groups [][]models.TaskOutput
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && models.CompareBatch(sorted[start].Input.Settings, sorted[end].Input.Settings) == 0 {
			end++
		}
		group, err := mergeRepetitions(sorted[start:end])
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
		start = end
	}
	return groups, nil
}

type imageAndQuality struct {
	imagePath string
	quality   int
}

func mergeRepetitions(results []models.TaskOutput) ([]models.TaskOutput, error) {
	type sum struct {
		output models.TaskOutput
		count  int
	}
	sums := make(map[imageAndQuality]*sum)
	var keys []imageAndQuality
	for _, r := range results {
		key := imageAndQuality{r.Input.ImagePath, r.Input.Settings.Quality}
		s, ok := sums[key]
		if !ok {
			sums[key] = &sum{output: r, count: 1}
			keys = append(keys, key)
			continue
		}
		if err := checkRepetitions(s.output, r); err != nil {
			return nil, err
		}
		if s.output.BitDepth == 0 {
			s.output.BitDepth = r.BitDepth
		}
		s.output.EncodingDuration += r.EncodingDuration
		s.output.DecodingDuration += r.DecodingDuration
		s.output.DecodingColorConversionDuration += r.DecodingColorConversionDuration
		s.count++
	}

	merged := make([]models.TaskOutput, 0, len(keys))
	for _, key := range keys {
		s := sums[key]
		o := s.output
		n := time.Duration(s.count)
		o.EncodingDuration /= n
		o.DecodingDuration /= n
		o.DecodingColorConversionDuration /= n
		merged = append(merged, o)
	}
	slices.SortFunc(merged, func(a, b models.TaskOutput) int {
		if c := cmp.Compare(a.Input.ImagePath, b.Input.ImagePath); c != 0 {
			return c
		}
		return cmp.Compare(a.Input.Settings.Quality, b.Input.Settings.Quality)
	})
	return merged, nil
}

func checkRepetitions(a, b models.TaskOutput) error {
	fail := func(field string) error {
		return &InconsistencyError{A: a.Input, B: b.Input, Field: field}
	}
	switch {
	case !a.Input.Equal(b.Input):
		return fail("encoded path")
	case a.ImageWidth != b.ImageWidth || a.ImageHeight != b.ImageHeight:
		return fail("image dimensions")
	case a.NumFrames != b.NumFrames:
		return fail("frame count")
	case a.BitDepth != 0 && b.BitDepth != 0 && a.BitDepth != b.BitDepth:
		// Zero when read back from the completed-task log.
		return fail("bit depth")
	case a.EncodedSize != b.EncodedSize:
		return fail("encoded size")
	}
	for m := range a.Distortions {
		if !SameDistortion(a.Distortions[m], b.Distortions[m]) {
			return fail(models.DistortionMetric(m).String())
		}
	}
	return nil
}

// SameDistortion reports whether a and b can be considered the same amount
// of loss. Scores at or above models.NoDistortion all mean lossless.
func SameDistortion(a, b float32) bool {
	if a >= models.NoDistortion {
		return b >= models.NoDistortion
	}
	if b >= models.NoDistortion {
		return false
	}
	return math.Abs(float64(a)-float64(b)) < distortionTolerance
}

// Summary condenses one group of aggregated results.
type Summary struct {
	Settings models.CodecSettings // quality is the one of the first result
	Results  int

	MeanBitsPerPixel     float64
	GeoMeanEncodedSize   float64 // bytes
	MeanEncodingDuration time.Duration
	MeanDecodingDuration time.Duration
	MeanDistortions      [models.NumDistortionMetrics]float64
}

// Summarize computes arithmetic means of the bits per pixel, durations and
// distortions of group, and the geometric mean of its encoded sizes.
func Summarize(group []models.TaskOutput) Summary {
	if len(group) == 0 {
		return Summary{}
	}
	s := Summary{Settings: group[0].Input.Settings, Results: len(group)}

	var bpp, logSize float64
	var encoding, decoding time.Duration
	for _, o := range group {
		if pixels := float64(o.ImageWidth) * float64(o.ImageHeight) * float64(max(o.NumFrames, 1)); pixels > 0 {
			bpp += float64(o.EncodedSize) * 8 / pixels
		}
		logSize += math.Log(float64(max(o.EncodedSize, 1)))
		encoding += o.EncodingDuration
		decoding += o.DecodingDuration
		for m, d := range o.Distortions {
			s.MeanDistortions[m] += float64(d)
		}
	}

	n := float64(len(group))
	s.MeanBitsPerPixel = bpp / n
	s.GeoMeanEncodedSize = math.Exp(logSize / n)
	s.MeanEncodingDuration = encoding / time.Duration(len(group))
	s.MeanDecodingDuration = decoding / time.Duration(len(group))
	for m := range s.MeanDistortions {
		s.MeanDistortions[m] /= n
	}
	return s
}
