package aggregate

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/harrison/codecbench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(codec models.Codec, effort, quality int, image string) models.TaskInput {
	return models.TaskInput{
		Settings:  models.CodecSettings{Codec: codec, Effort: effort, Quality: quality},
		ImagePath: image,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestSplitByCodecSettings_Single(t *testing.T) {
	results := []models.TaskOutput{{
		Input:            input(models.CodecWebP, 0, 0, "img"),
		ImageWidth:       1,
		ImageHeight:      2,
		NumFrames:        1,
		EncodedSize:      3,
		EncodingDuration: time.Second,
		DecodingDuration: time.Second,
	}}

	groups, err := SplitByCodecSettings(results)
	require.NoError(t, err)
	assert.Equal(t, [][]models.TaskOutput{results}, groups)
}

func TestSplitByCodecSettings_AveragesRepetitions(t *testing.T) {
	singles := []models.TaskInput{
		input(models.CodecWebP, 0, 0, "imgA"),
		input(models.CodecWebP, 0, 0, "imgB"),
		input(models.CodecWebP, 1, 0, "imgA"),
		input(models.CodecWebP, 0, 100, "imgA"),
		input(models.CodecWebP2, 0, 0, "imgA"),
	}

	// Two repetitions per task: sizes and distortions match, timings differ.
	var results []models.TaskOutput
	size := uint64(1)
	encoding, decoding, colorConversion := 1.0, 1.0, 0.0
	distortion := float32(20)
	for _, in := range singles {
		for rep := 0; rep < 2; rep++ {
			o := models.TaskOutput{
				Input:                           in,
				ImageWidth:                      8,
				ImageHeight:                     9,
				NumFrames:                       1,
				EncodedSize:                     size,
				EncodingDuration:                seconds(encoding),
				DecodingDuration:                seconds(decoding),
				DecodingColorConversionDuration: seconds(colorConversion),
			}
			o.Distortions[models.MetricPSNR] = distortion
			results = append(results, o)
			encoding++
			decoding++
			if rep == 0 {
				colorConversion++
			}
		}
		size++
		distortion++
	}
	rng := rand.New(rand.NewPCG(1, 2))
	rng.Shuffle(len(results), func(i, j int) { results[i], results[j] = results[j], results[i] })

	groups, err := SplitByCodecSettings(results)
	require.NoError(t, err)

	expected := func(in models.TaskInput, size uint64, enc, dec, cc float64, psnr float32) models.TaskOutput {
		o := models.TaskOutput{
			Input:                           in,
			ImageWidth:                      8,
			ImageHeight:                     9,
			NumFrames:                       1,
			EncodedSize:                     size,
			EncodingDuration:                seconds(enc),
			DecodingDuration:                seconds(dec),
			DecodingColorConversionDuration: seconds(cc),
		}
		o.Distortions[models.MetricPSNR] = psnr
		return o
	}
	assert.Equal(t, [][]models.TaskOutput{
		{
			expected(singles[0], 1, 1.5, 1.5, 0.5, 20),
			expected(singles[3], 4, 7.5, 7.5, 3.5, 23),
			expected(singles[1], 2, 3.5, 3.5, 1.5, 21),
		},
		{expected(singles[2], 3, 5.5, 5.5, 2.5, 22)},
		{expected(singles[4], 5, 9.5, 9.5, 4.5, 24)},
	}, groups)
}

func TestSplitByCodecSettings_Inconsistent(t *testing.T) {
	base := models.TaskOutput{
		Input:            input(models.CodecAVIF, 6, 50, "img"),
		ImageWidth:       4,
		ImageHeight:      4,
		NumFrames:        1,
		EncodedSize:      100,
		EncodingDuration: time.Second,
		DecodingDuration: time.Second,
	}
	base.BitDepth = 8
	base.Distortions[models.MetricPSNR] = 35

	tests := []struct {
		name   string
		modify func(o *models.TaskOutput)
	}{
		{"width", func(o *models.TaskOutput) { o.ImageWidth = 5 }},
		{"frames", func(o *models.TaskOutput) { o.NumFrames = 2 }},
		{"bit depth", func(o *models.TaskOutput) { o.BitDepth = 10 }},
		{"size", func(o *models.TaskOutput) { o.EncodedSize = 101 }},
		{"distortion", func(o *models.TaskOutput) { o.Distortions[models.MetricPSNR] = 35.01 }},
		{"lossless against lossy", func(o *models.TaskOutput) { o.Distortions[models.MetricPSNR] = models.NoDistortion }},
		{"encoded path", func(o *models.TaskOutput) { o.Input.EncodedPath = "other.avif" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.modify(&other)
			groups, err := SplitByCodecSettings([]models.TaskOutput{base, other})
			assert.ErrorIs(t, err, models.ErrInternalConsistency)
			assert.Nil(t, groups)
		})
	}
}

func TestSplitByCodecSettings_TimingsMayDiffer(t *testing.T) {
	a := models.TaskOutput{
		Input:            input(models.CodecAVIF, 6, 50, "img"),
		ImageWidth:       4,
		ImageHeight:      4,
		NumFrames:        1,
		EncodedSize:      100,
		EncodingDuration: time.Second,
		DecodingDuration: 3 * time.Second,
	}
	a.Distortions[models.MetricPSNR] = 35
	b := a
	b.EncodingDuration = 2 * time.Second
	b.DecodingDuration = time.Second
	b.Distortions[models.MetricPSNR] = 35.0005

	groups, err := SplitByCodecSettings([]models.TaskOutput{a, b})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 1)
	assert.Equal(t, 1500*time.Millisecond, groups[0][0].EncodingDuration)
	assert.Equal(t, 2*time.Second, groups[0][0].DecodingDuration)
}

func TestSplitByCodecSettings_UnknownBitDepth(t *testing.T) {
	loaded := models.TaskOutput{
		Input:            input(models.CodecAVIF, 6, 50, "img"),
		ImageWidth:       4,
		ImageHeight:      4,
		NumFrames:        1,
		EncodedSize:      100,
		EncodingDuration: time.Second,
		DecodingDuration: time.Second,
	}
	measured := loaded
	measured.BitDepth = 10

	groups, err := SplitByCodecSettings([]models.TaskOutput{loaded, measured})
	require.NoError(t, err)
	assert.Equal(t, uint32(10), groups[0][0].BitDepth)
}

func TestSplitByCodecSettings_Empty(t *testing.T) {
	groups, err := SplitByCodecSettings(nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestSameDistortion(t *testing.T) {
	assert.True(t, SameDistortion(30, 30.0009))
	assert.False(t, SameDistortion(30, 30.002))
	assert.True(t, SameDistortion(99, 120))
	assert.False(t, SameDistortion(99, 98.9999))
	assert.False(t, SameDistortion(50, 99))
}

func TestSummarize(t *testing.T) {
	group := []models.TaskOutput{
		{
			Input:            input(models.CodecJPEGXL, 7, 90, "a"),
			ImageWidth:       4,
			ImageHeight:      2,
			NumFrames:        1,
			EncodedSize:      2,
			EncodingDuration: time.Second,
			DecodingDuration: 2 * time.Second,
		},
		{
			Input:            input(models.CodecJPEGXL, 7, 90, "b"),
			ImageWidth:       2,
			ImageHeight:      2,
			NumFrames:        1,
			EncodedSize:      8,
			EncodingDuration: 3 * time.Second,
			DecodingDuration: 4 * time.Second,
		},
	}
	group[0].Distortions[models.MetricPSNR] = 30
	group[1].Distortions[models.MetricPSNR] = 40

	s := Summarize(group)
	assert.Equal(t, group[0].Input.Settings, s.Settings)
	assert.Equal(t, 2, s.Results)
	// (2*8/8 + 8*8/4) / 2
	assert.InDelta(t, 9.0, s.MeanBitsPerPixel, 1e-9)
	// sqrt(2*8)
	assert.InDelta(t, 4.0, s.GeoMeanEncodedSize, 1e-9)
	assert.Equal(t, 2*time.Second, s.MeanEncodingDuration)
	assert.Equal(t, 3*time.Second, s.MeanDecodingDuration)
	assert.InDelta(t, 35.0, s.MeanDistortions[models.MetricPSNR], 1e-9)
	assert.False(t, math.IsNaN(s.MeanDistortions[models.MetricSSIM]))

	assert.Equal(t, Summary{}, Summarize(nil))
}
