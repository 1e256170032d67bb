package tasklog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/codecbench/internal/models"
)

// numNonDistortionFields is the number of fields before the distortions.
const numNonDistortionFields = 13

// Format serializes output as one completed-task log line, without the
// trailing newline. Lossless tasks carry no distortion fields.
func Format(o models.TaskOutput) string {
	in := o.Input
	fields := []string{
		Escape(in.Settings.Codec.String()),
		in.Settings.Subsampling.String(),
		strconv.Itoa(in.Settings.Effort),
		strconv.Itoa(in.Settings.Quality),
		Escape(in.ImagePath),
		strconv.FormatUint(uint64(o.ImageWidth), 10),
		strconv.FormatUint(uint64(o.ImageHeight), 10),
		strconv.FormatUint(uint64(o.NumFrames), 10),
		Escape(in.EncodedPath),
		strconv.FormatUint(o.EncodedSize, 10),
		formatSeconds(o.EncodingDuration),
		formatSeconds(o.DecodingDuration),
		formatSeconds(o.DecodingColorConversionDuration),
	}
	if !in.Settings.Lossless() {
		for _, d := range o.Distortions {
			fields = append(fields, strconv.FormatFloat(float64(d), 'g', -1, 32))
		}
	}
	return strings.Join(fields, ", ")
}

// Parse reads a line written by Format.
func Parse(line string) (models.TaskOutput, error) {
	fields := Split(line, ',')
	o, err := parseNonDistortion(line, fields)
	if err != nil {
		return models.TaskOutput{}, err
	}
	switch len(fields) {
	case numNonDistortionFields:
		// Lossless, or written without distortions.
		o.SetNoDistortion()
	case numNonDistortionFields + models.NumDistortionMetrics:
		for m := range o.Distortions {
			metric := models.DistortionMetric(m)
			v, err := strconv.ParseFloat(fields[numNonDistortionFields+m], 32)
			if err != nil {
				return models.TaskOutput{}, malformed(line, "bad %s value: %v", metric, err)
			}
			if metric.Bounded() && float32(v) > models.NoDistortion {
				return models.TaskOutput{}, malformed(line, "bad %s value %v", metric, v)
			}
			o.Distortions[m] = float32(v)
		}
	default:
		return models.TaskOutput{}, malformed(line,
			"expected %d fields but found %d, try --recompute-distortion",
			numNonDistortionFields+models.NumDistortionMetrics, len(fields))
	}
	return o, nil
}

// ParseNoDistortion reads the identity and timing fields of a line and
// ignores any distortion field. Distortions are left zeroed for the caller to
// recompute.
func ParseNoDistortion(line string) (models.TaskOutput, error) {
	return parseNonDistortion(line, Split(line, ','))
}

func parseNonDistortion(line string, fields []string) (models.TaskOutput, error) {
	if len(fields) < numNonDistortionFields {
		return models.TaskOutput{}, malformed(line, "expected %d+ fields but found %d", numNonDistortionFields, len(fields))
	}

	var o models.TaskOutput
	codecName, err := Unescape(fields[0])
	if err != nil {
		return o, malformed(line, "%v", err)
	}
	if o.Input.Settings.Codec, err = models.ParseCodec(codecName); err != nil {
		return o, malformed(line, "%v", err)
	}
	if o.Input.Settings.Subsampling, err = models.ParseSubsampling(fields[1]); err != nil {
		return o, malformed(line, "%v", err)
	}
	if o.Input.Settings.Effort, err = strconv.Atoi(fields[2]); err != nil {
		return o, malformed(line, "bad effort: %v", err)
	}
	if o.Input.Settings.Quality, err = strconv.Atoi(fields[3]); err != nil {
		return o, malformed(line, "bad quality: %v", err)
	}
	if err := o.Input.Settings.Validate(); err != nil {
		return o, malformed(line, "%v", err)
	}
	if o.Input.ImagePath, err = Unescape(fields[4]); err != nil {
		return o, malformed(line, "%v", err)
	}

	dims := [3]*uint32{&o.ImageWidth, &o.ImageHeight, &o.NumFrames}
	for i, dst := range dims {
		v, err := strconv.ParseUint(fields[5+i], 10, 32)
		if err != nil || v == 0 {
			return o, malformed(line, "bad image dimensions")
		}
		*dst = uint32(v)
	}

	if o.Input.EncodedPath, err = Unescape(fields[8]); err != nil {
		return o, malformed(line, "%v", err)
	}
	if o.EncodedSize, err = strconv.ParseUint(fields[9], 10, 64); err != nil || o.EncodedSize == 0 {
		return o, malformed(line, "bad encoded size")
	}
	if o.EncodingDuration, err = parseSeconds(fields[10]); err != nil || o.EncodingDuration <= 0 {
		return o, malformed(line, "bad encoding duration")
	}
	if o.DecodingDuration, err = parseSeconds(fields[11]); err != nil || o.DecodingDuration <= 0 {
		return o, malformed(line, "bad decoding duration")
	}
	if o.DecodingColorConversionDuration, err = parseSeconds(fields[12]); err != nil || o.DecodingColorConversionDuration < 0 {
		return o, malformed(line, "bad color conversion duration")
	}
	return o, nil
}

func malformed(line, format string, args ...any) error {
	return fmt.Errorf("%w: %s in %q", models.ErrMalformedEntry, fmt.Sprintf(format, args...), line)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'g', -1, 64)
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}

// Split cuts s at every delimiter found outside double-quoted strings and
// trims the surrounding whitespace of each field.
func Split(s string, delimiter byte) []string {
	var fields []string
	var current strings.Builder
	escaped := false
	quoted := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == delimiter && !quoted {
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		if c == '"' && !escaped {
			quoted = !quoted
		}
		escaped = !escaped && c == '\\'
		current.WriteByte(c)
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// Escape wraps s in double quotes, escaping embedded quotes with a backslash.
func Escape(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Unescape is the inverse of Escape.
func Unescape(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' || (len(s) > 2 && s[len(s)-2] == '\\') {
		return "", fmt.Errorf("%s is not properly escaped", s)
	}
	inner := s[1 : len(s)-1]
	return strings.ReplaceAll(inner, `\"`, `"`), nil
}
