package models

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

// DistortionMetric indexes TaskOutput.Distortions.
type DistortionMetric int

const (
	MetricPSNR DistortionMetric = iota
	MetricSSIM
	MetricDSSIM
	MetricButteraugli
	MetricSSimulacra
	MetricSSimulacra2
	MetricP3Norm

	// NumDistortionMetrics is the number of distortion columns per task.
	NumDistortionMetrics = int(MetricP3Norm) + 1
)

var metricNames = [NumDistortionMetrics]string{
	"PSNR", "SSIM", "DSSIM", "Butteraugli", "SSimulacra", "SSimulacra2", "P3norm",
}

// String returns the display name of the metric.
func (m DistortionMetric) String() string {
	if m < 0 || int(m) >= NumDistortionMetrics {
		return "unknown"
	}
	return metricNames[m]
}

// Bounded reports whether valid scores never exceed NoDistortion.
// Butteraugli and SSIMULACRA 2 use other scales.
func (m DistortionMetric) Bounded() bool {
	return m != MetricButteraugli && m != MetricSSimulacra2
}

// NoDistortion is the score recorded when decoded pixels match the original
// exactly. It is expressed in dB like PSNR.
const NoDistortion float32 = 99

// EncodeMode tells a task runner where the encoded bytes come from.
type EncodeMode int

const (
	// EncodeOnly encodes in memory without touching the encoded path.
	EncodeOnly EncodeMode = iota
	// EncodeAndSave encodes and writes the result to the encoded path.
	EncodeAndSave
	// LoadFromDisk reuses a previously saved encoding.
	LoadFromDisk
)

// String returns the mode name.
func (m EncodeMode) String() string {
	switch m {
	case EncodeAndSave:
		return "encode-and-save"
	case LoadFromDisk:
		return "load-from-disk"
	}
	return "encode"
}

// TaskInput identifies one unit of work.
type TaskInput struct {
	Settings    CodecSettings
	ImagePath   string // original image
	EncodedPath string // may be empty to avoid saving to disk
}

// CompareTaskInputs is the single total order over task identity. It is used
// both to sort tasks and to decide that two tasks are the same, so the
// encoded path takes part even though it derives from the other fields.
func CompareTaskInputs(a, b TaskInput) int {
	if c := CompareCodecSettings(a.Settings, b.Settings); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ImagePath, b.ImagePath); c != 0 {
		return c
	}
	return cmp.Compare(a.EncodedPath, b.EncodedPath)
}

// Equal reports whether both inputs describe the same task.
func (t TaskInput) Equal(o TaskInput) bool {
	return CompareTaskInputs(t, o) == 0
}

// TaskOutput is the measured result of one successfully executed task.
type TaskOutput struct {
	Input TaskInput

	ImageWidth  uint32 // pixels
	ImageHeight uint32 // pixels
	NumFrames   uint32
	BitDepth    uint32 // not persisted in the completed-task log
	EncodedSize uint64 // bytes

	EncodingDuration time.Duration
	// DecodingDuration includes DecodingColorConversionDuration.
	DecodingDuration                time.Duration
	DecodingColorConversionDuration time.Duration

	Distortions [NumDistortionMetrics]float32
}

// SetNoDistortion marks every metric as an exact match.
func (o *TaskOutput) SetNoDistortion() {
	for m := range o.Distortions {
		o.Distortions[m] = NoDistortion
	}
}

// ParseDistortionMetric returns the metric whose name matches name, ignoring case.
func ParseDistortionMetric(name string) (DistortionMetric, error) {
	for m, n := range metricNames {
		if strings.EqualFold(n, name) {
			return DistortionMetric(m), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown distortion metric %q", ErrInvalidConfiguration, name)
}
