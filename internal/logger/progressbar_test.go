package logger

import "testing"

// TestProgressBarRender verifies correct ASCII bar rendering
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{"empty progress", 0, 10, 10, "[          ] 0/10 (0%)"},
		{"half progress", 5, 10, 10, "[=====     ] 5/10 (50%)"},
		{"complete", 10, 10, 10, "[==========] 10/10 (100%)"},
		{"overflow is capped", 12, 10, 10, "[==========] 12/10 (100%)"},
		{"zero total", 0, 0, 4, "[    ] 0/0 (0%)"},
		{"invalid width uses default", 1, 2, 0, "[=====     ] 1/2 (50%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestProgressBarPercentage(t *testing.T) {
	pb := NewProgressBar(3, 10, false)
	pb.Update(1)
	if got := pb.Percentage(); got != 33 {
		t.Errorf("Percentage() = %d, want 33", got)
	}
	pb.Update(-1)
	if got := pb.Percentage(); got != 0 {
		t.Errorf("Percentage() = %d, want 0", got)
	}
}
