// Package report writes the aggregated results of a comparison: one JSON file
// per codec configuration, an optional SQLite history and a human-readable
// summary.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/codecbench/internal/filelock"
	"github.com/harrison/codecbench/internal/models"
)

// BatchName returns the name shared by the results of one group, for example
// "webp_420_4".
func BatchName(cs models.CodecSettings) string {
	return fmt.Sprintf("%s_%s_%d", cs.Codec, cs.Subsampling, cs.Effort)
}

// JSONWriter writes each group to <folder>/<batch name>.json.
type JSONWriter struct {
	folder string
	now    func() time.Time
}

// NewJSONWriter creates a writer storing files in folder.
func NewJSONWriter(folder string) *JSONWriter {
	return &JSONWriter{folder: folder, now: time.Now}
}

// Report implements executor.Reporter.
func (w *JSONWriter) Report(groups [][]models.TaskOutput) error {
	if w.folder == "" {
		return fmt.Errorf("%w: no results folder", models.ErrInvalidConfiguration)
	}
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		data, err := w.marshal(group)
		if err != nil {
			return err
		}
		path := filepath.Join(w.folder, BatchName(group[0].Input.Settings)+".json")
		if err := filelock.AtomicWrite(path, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// resultsFile is the layout of a results file: descriptions and values of
// batch-wide constants, then descriptions of the per-image fields followed by
// one row of values per image.
type resultsFile struct {
	ConstantDescriptions []map[string]string `json:"constant_descriptions"`
	ConstantValues       []string            `json:"constant_values"`
	FieldDescriptions    []map[string]string `json:"field_descriptions"`
	FieldValues          [][]any             `json:"field_values"`
}

const timingWarning = " Warning: Timings are environment-dependent and inaccurate."
const metricWarning = " Warning: There is no scientific consensus on which objective distortion metric to use."

var metricDescriptions = [models.NumDistortionMetrics]string{
	"Distortion metric Peak Signal-to-Noise Ratio.",
	"Distortion metric Structural Similarity Index Measure.",
	"Distortion metric Structural Dissimilarity.",
	"Distortion metric Butteraugli.",
	"Distortion metric SSIMULACRA.",
	"Distortion metric SSIMULACRA2.",
	"Distortion metric P3-norm.",
}

func (w *JSONWriter) marshal(group []models.TaskOutput) ([]byte, error) {
	cs := group[0].Input.Settings
	lossless := true
	hasEncodedPath := true
	imagePaths := make([]string, len(group))
	encodedPaths := make([]string, len(group))
	for i, o := range group {
		if models.CompareBatch(o.Input.Settings, cs) != 0 {
			return nil, fmt.Errorf("%w: %s and %s in the same batch", models.ErrInternalConsistency, o.Input.Settings, cs)
		}
		lossless = lossless && o.Input.Settings.Lossless()
		hasEncodedPath = hasEncodedPath && o.Input.EncodedPath != ""
		imagePaths[i] = o.Input.ImagePath
		encodedPaths[i] = o.Input.EncodedPath
	}
	hasDecodedPath := hasEncodedPath && !cs.Codec.SupportedByBrowsers()

	imageParent := commonParent(imagePaths)
	encodedParent := commonParent(encodedPaths)

	f := resultsFile{
		ConstantDescriptions: []map[string]string{
			{"name": "Name of this batch"},
			{"codec": "Name of the codec used to generate this data"},
			{"time": "Timestamp of when this data was generated"},
			{"original_path": "Path to the original image"},
		},
		ConstantValues: []string{
			cs.Codec.PrettyName(lossless, cs.Subsampling, cs.Effort),
			cs.Codec.String(),
			w.now().Format("2006-01-02T15:04:05"),
			lastElementWithSeparator(imageParent) + "${original_name}",
		},
	}
	if hasEncodedPath {
		f.ConstantDescriptions = append(f.ConstantDescriptions, map[string]string{"encoded_path": "Path to the encoded image"})
		f.ConstantValues = append(f.ConstantValues, lastElementWithSeparator(encodedParent)+"${encoded_name}")
	}
	if hasDecodedPath {
		f.ConstantDescriptions = append(f.ConstantDescriptions, map[string]string{"decoded_path": "Path to the decoded image"})
		f.ConstantValues = append(f.ConstantValues, lastElementWithSeparator(encodedParent)+"${encoded_name}.png")
	}

	f.FieldDescriptions = []map[string]string{
		{"original_name": "Original image file name"},
		{"width": "Pixel columns in the image that was encoded"},
		{"height": "Pixel rows in the image that was encoded"},
		{"depth": "Bit depth of the image that was encoded, null when unknown because the result was loaded from the completed-task log"},
		{"frame_count": "Number of frames in the image that was encoded"},
	}
	if !lossless {
		f.FieldDescriptions = append(f.FieldDescriptions, map[string]string{"chroma_subsampling": "Compression chroma subsampling parameter"})
	}
	f.FieldDescriptions = append(f.FieldDescriptions, map[string]string{"effort": "Compression effort parameter"})
	if !lossless {
		f.FieldDescriptions = append(f.FieldDescriptions, map[string]string{"quality": "Compression quality parameter"})
	}
	if hasEncodedPath {
		f.FieldDescriptions = append(f.FieldDescriptions, map[string]string{"encoded_name": "Name of the encoded image"})
	}
	f.FieldDescriptions = append(f.FieldDescriptions,
		map[string]string{"encoded_size": "Size of the encoded image file in bytes"},
		map[string]string{"encoding_time": "Encoding duration in seconds." + timingWarning},
		map[string]string{"decoding_time": "Decoding duration in seconds." + timingWarning},
		map[string]string{"dec_time_no_col_conv": "Decoding duration in seconds without color conversion. " +
			"Equal to decoding_time when the decoder does not time its color conversion separately." + timingWarning},
	)
	if !lossless {
		for m, desc := range metricDescriptions {
			name := strings.ToLower(models.DistortionMetric(m).String())
			f.FieldDescriptions = append(f.FieldDescriptions, map[string]string{name: desc + metricWarning})
		}
	}

	f.FieldValues = make([][]any, 0, len(group))
	for _, o := range group {
		row := []any{
			relativeTo(imageParent, o.Input.ImagePath),
			o.ImageWidth,
			o.ImageHeight,
			bitDepthValue(o.BitDepth),
			o.NumFrames,
		}
		if !lossless {
			row = append(row, o.Input.Settings.Subsampling.String())
		}
		row = append(row, o.Input.Settings.Effort)
		if !lossless {
			row = append(row, o.Input.Settings.Quality)
		}
		if hasEncodedPath {
			row = append(row, relativeTo(encodedParent, o.Input.EncodedPath))
		}
		row = append(row,
			o.EncodedSize,
			o.EncodingDuration.Seconds(),
			o.DecodingDuration.Seconds(),
			(o.DecodingDuration - o.DecodingColorConversionDuration).Seconds(),
		)
		if !lossless {
			for _, d := range o.Distortions {
				row = append(row, d)
			}
		}
		f.FieldValues = append(f.FieldValues, row)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return append(data, '\n'), nil
}

// bitDepthValue returns nil, encoded as null, for an unknown bit depth.
func bitDepthValue(depth uint32) any {
	if depth == 0 {
		return nil
	}
	return depth
}

// commonParent returns the deepest folder containing every path.
func commonParent(paths []string) string {
	var common []string
	for i, p := range paths {
		parts := strings.Split(filepath.ToSlash(filepath.Dir(p)), "/")
		if i == 0 {
			common = parts
			continue
		}
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}
	return filepath.FromSlash(strings.Join(common, "/"))
}

// relativeTo strips parent from path.
func relativeTo(parent, path string) string {
	if parent == "" || parent == "." {
		return path
	}
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return path
	}
	return rel
}

// lastElementWithSeparator returns "dir/" for ".../dir" and "" for the
// current folder.
func lastElementWithSeparator(dir string) string {
	base := filepath.Base(dir)
	if dir == "" || base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base + string(filepath.Separator)
}
