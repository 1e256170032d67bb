// Package planner expands a comparison configuration into the flat list of
// tasks to execute.
package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harrison/codecbench/internal/models"
)

// PlanTasks returns one task per codec setting, image and repetition, in
// that nesting order. Repetitions of a task are identical, including their
// encoded path.
func PlanTasks(imagePaths []string, settings models.ComparisonSettings) ([]models.TaskInput, error) {
	if len(imagePaths) == 0 {
		return nil, fmt.Errorf("%w: no input image", models.ErrInvalidConfiguration)
	}
	if len(settings.CodecSettings) == 0 {
		return nil, fmt.Errorf("%w: no codec", models.ErrInvalidConfiguration)
	}
	if settings.Repetitions < 0 {
		return nil, fmt.Errorf("%w: negative repetition count %d", models.ErrInvalidConfiguration, settings.Repetitions)
	}
	for _, cs := range settings.CodecSettings {
		if err := cs.Validate(); err != nil {
			return nil, err
		}
	}

	perTask := 1 + settings.Repetitions
	tasks := make([]models.TaskInput, 0, len(settings.CodecSettings)*len(imagePaths)*perTask)
	for _, cs := range settings.CodecSettings {
		for _, imagePath := range imagePaths {
			encodedPath := EncodedPath(settings.EncodedFolder, imagePath, cs)
			for i := 0; i < perTask; i++ {
				tasks = append(tasks, models.TaskInput{
					Settings:    cs,
					ImagePath:   imagePath,
					EncodedPath: encodedPath,
				})
			}
		}
	}
	return tasks, nil
}

// EncodedPath returns where the encoding of imagePath with cs is saved, or
// an empty string when folder is empty. Example: "out/kodim01.420e6q075.webp".
func EncodedPath(folder, imagePath string, cs models.CodecSettings) string {
	if folder == "" {
		return ""
	}
	base := filepath.Base(imagePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteByte('.')
	// "444" alone would be misleading for lossless RGB so it is omitted.
	if !cs.Lossless() || cs.Subsampling != models.Subsampling444 {
		sb.WriteString(cs.Subsampling.String())
	}
	fmt.Fprintf(&sb, "e%d", cs.Effort)
	if cs.Lossless() {
		sb.WriteString("lossless")
	} else {
		fmt.Fprintf(&sb, "q%03d", cs.Quality)
	}
	sb.WriteByte('.')
	sb.WriteString(cs.Codec.Extension())
	return filepath.Join(folder, sb.String())
}
