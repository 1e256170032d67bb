package executor

import (
	"testing"

	"github.com/harrison/codecbench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(quality int, image string) models.TaskInput {
	return models.TaskInput{
		Settings:    models.CodecSettings{Codec: models.CodecWebP, Effort: 4, Quality: quality},
		ImagePath:   image,
		EncodedPath: "",
	}
}

func completedOf(inputs ...models.TaskInput) []models.TaskOutput {
	outputs := make([]models.TaskOutput, len(inputs))
	for i, in := range inputs {
		outputs[i] = fakeOutput(in)
	}
	return outputs
}

func TestReconcile(t *testing.T) {
	planned := []models.TaskInput{
		task(90, "b.png"),
		task(90, "a.png"),
		task(50, "b.png"),
		task(50, "a.png"),
	}

	tests := []struct {
		name      string
		completed []models.TaskOutput
		want      []models.TaskInput
	}{
		{
			name: "nothing completed",
			want: planned,
		},
		{
			name:      "everything completed",
			completed: completedOf(planned[3], planned[0], planned[2], planned[1]),
			want:      []models.TaskInput{},
		},
		{
			name:      "keeps planner order",
			completed: completedOf(planned[2]),
			want:      []models.TaskInput{planned[0], planned[1], planned[3]},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining, err := Reconcile(tt.completed, planned)
			require.NoError(t, err)
			assert.Equal(t, tt.want, remaining)
		})
	}
}

func TestReconcile_Repetitions(t *testing.T) {
	a := task(75, "a.png")
	b := task(75, "b.png")
	planned := []models.TaskInput{a, a, a, b, b, b}

	remaining, err := Reconcile(completedOf(a, b, a), planned)
	require.NoError(t, err)
	assert.Equal(t, []models.TaskInput{a, b, b}, remaining)

	// A fourth repetition of a cannot be matched.
	_, err = Reconcile(completedOf(a, a, a, a), planned)
	assert.ErrorIs(t, err, models.ErrConfigurationDrift)
}

func TestReconcile_Drift(t *testing.T) {
	planned := []models.TaskInput{task(75, "a.png"), task(75, "b.png")}

	t.Run("unknown task", func(t *testing.T) {
		_, err := Reconcile(completedOf(task(80, "a.png")), planned)
		require.ErrorIs(t, err, models.ErrConfigurationDrift)

		var drift *DriftError
		require.ErrorAs(t, err, &drift)
		assert.Contains(t, drift.Entry, `"a.png"`)
		assert.Contains(t, drift.Entry, ", 80,")
	})

	t.Run("encoded path differs", func(t *testing.T) {
		moved := task(75, "a.png")
		moved.EncodedPath = "elsewhere/a.webp"
		_, err := Reconcile(completedOf(moved), planned)
		assert.ErrorIs(t, err, models.ErrConfigurationDrift)
	})

	t.Run("more completed than planned", func(t *testing.T) {
		_, err := Reconcile(completedOf(planned[0], planned[1], planned[0]), planned)
		require.ErrorIs(t, err, models.ErrConfigurationDrift)
		assert.Contains(t, err.Error(), "3 completed tasks but only 2 planned")
	})
}
