package models

import (
	"cmp"
	"fmt"
)

// QualityLossless is the quality sentinel requesting lossless encoding.
const QualityLossless = -1

// MaxEffort is the highest effort accepted for any codec.
const MaxEffort = 10

// MaxFailures is the number of failed tasks tolerated before a run stops
// assigning new work.
const MaxFailures = 32

// CodecSettings identifies one codec configuration to test.
type CodecSettings struct {
	Codec       Codec
	Subsampling Subsampling
	Effort      int
	Quality     int // QualityLossless or within Codec.QualityRange()
}

// Lossless reports whether the settings request lossless encoding.
func (s CodecSettings) Lossless() bool {
	return s.Quality == QualityLossless
}

// String formats settings as codec/subsampling/effort/quality, for messages.
func (s CodecSettings) String() string {
	q := fmt.Sprintf("q%d", s.Quality)
	if s.Lossless() {
		q = "lossless"
	}
	return fmt.Sprintf("%s %s e%d %s", s.Codec, s.Subsampling, s.Effort, q)
}

// Validate checks the effort and quality against the codec's limits.
func (s CodecSettings) Validate() error {
	if _, ok := codecInfos[s.Codec]; !ok {
		return fmt.Errorf("%w: unknown codec %d", ErrInvalidConfiguration, int(s.Codec))
	}
	if s.Subsampling < SubsamplingDefault || s.Subsampling > Subsampling420 {
		return fmt.Errorf("%w: unknown subsampling %d", ErrInvalidConfiguration, int(s.Subsampling))
	}
	if s.Effort < 0 || s.Effort > MaxEffort {
		return fmt.Errorf("%w: effort %d of %s is outside [0:%d]", ErrInvalidConfiguration, s.Effort, s.Codec, MaxEffort)
	}
	if s.Lossless() {
		return nil
	}
	lo, hi, ok := s.Codec.QualityRange()
	if !ok {
		return fmt.Errorf("%w: %s only supports lossless encoding", ErrInvalidConfiguration, s.Codec)
	}
	if s.Quality < lo || s.Quality > hi {
		return fmt.Errorf("%w: quality %d of %s is outside [%d:%d]", ErrInvalidConfiguration, s.Quality, s.Codec, lo, hi)
	}
	return nil
}

// CompareCodecSettings orders settings by codec, subsampling, effort then quality.
func CompareCodecSettings(a, b CodecSettings) int {
	if c := CompareBatch(a, b); c != 0 {
		return c
	}
	return cmp.Compare(a.Quality, b.Quality)
}

// CompareBatch orders settings ignoring quality. Results sharing codec,
// subsampling and effort are reported together.
func CompareBatch(a, b CodecSettings) int {
	if c := cmp.Compare(a.Codec, b.Codec); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Subsampling, b.Subsampling); c != 0 {
		return c
	}
	return cmp.Compare(a.Effort, b.Effort)
}

// ComparisonSettings is the immutable configuration of one comparison run.
type ComparisonSettings struct {
	CodecSettings       []CodecSettings
	MetricBinaryFolder  string
	EncodedFolder       string // empty to keep encoded files in memory only
	Repetitions         int    // 0 runs each task once, 1 twice, and so on
	ExtraThreads        int    // 0 runs everything on the calling goroutine
	RandomOrder         bool
	RecomputeDistortion bool
	Quiet               bool
}

// NumWorkers returns the size of the worker pool.
func (s ComparisonSettings) NumWorkers() int {
	return 1 + s.ExtraThreads
}
