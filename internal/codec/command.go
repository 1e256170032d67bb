package codec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Placeholders recognized in command templates.
const (
	PlaceholderInput       = "{input}"
	PlaceholderOutput      = "{output}"
	PlaceholderQuality     = "{quality}"
	PlaceholderEffort      = "{effort}"
	PlaceholderSubsampling = "{subsampling}"
	PlaceholderReference   = "{reference}"
	PlaceholderDistorted   = "{distorted}"
)

// Template is a command line whose arguments may contain placeholders.
type Template []string

// Expand returns the command line with every placeholder of vars replaced.
func (t Template) Expand(vars map[string]string) []string {
	args := make([]string, len(t))
	for i, arg := range t {
		for placeholder, value := range vars {
			arg = strings.ReplaceAll(arg, placeholder, value)
		}
		args[i] = arg
	}
	return args
}

// Commands holds the encoder and decoder templates of one codec.
type Commands struct {
	Encode Template
	Decode Template // must write a PNG to {output}
}

// execResult holds the outcome of a single command invocation.
type execResult struct {
	Stdout   string
	Duration time.Duration
}

// run executes args and measures its wall time. Stderr is attached to the
// returned error.
func run(ctx context.Context, args []string) (execResult, error) {
	if len(args) == 0 {
		return execResult{}, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return execResult{}, fmt.Errorf("%s: %w", args[0], err)
		}
		return execResult{}, fmt.Errorf("%s: %w: %s", args[0], err, msg)
	}
	return execResult{Stdout: stdout.String(), Duration: duration}, nil
}

// resolveBinary looks for bare binary names in folder.
func resolveBinary(args []string, folder string) []string {
	if folder == "" || len(args) == 0 || strings.ContainsRune(args[0], filepath.Separator) {
		return args
	}
	resolved := append([]string{filepath.Join(folder, args[0])}, args[1:]...)
	return resolved
}

var numberPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?|[-+]?inf`)

// lastNumber returns the last number printed in output, which is how metric
// binaries report their score.
func lastNumber(output string) (float64, error) {
	matches := numberPattern.FindAllString(output, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no score in %q", strings.TrimSpace(output))
	}
	return strconv.ParseFloat(matches[len(matches)-1], 64)
}
