package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/codecbench/internal/codec"
	"github.com/harrison/codecbench/internal/fileutil"
	"github.com/harrison/codecbench/internal/models"
)

// CodecEntry describes the settings to test for one codec. Every combination
// of effort and quality is expanded into one models.CodecSettings.
type CodecEntry struct {
	// Codec is the codec name, as listed by "codecbench codecs"
	Codec string `yaml:"codec"`

	// Subsampling is one of 4XX (codec default), 444 or 420
	Subsampling string `yaml:"subsampling"`

	// Efforts lists the efforts to test, [0] if empty
	Efforts []int `yaml:"efforts"`

	// Qualities lists qualities as integers, "lossless" or "min:max[:step]"
	// ranges. Lossless-only codecs default to lossless.
	Qualities []string `yaml:"qualities"`
}

// CommandConfig holds the command templates of one codec.
type CommandConfig struct {
	Encode []string `yaml:"encode"`
	Decode []string `yaml:"decode"`
}

// Config represents codecbench configuration options
type Config struct {
	// Images lists original images, or folders whose images are all used
	Images []string `yaml:"images"`

	// RecursiveImages also collects images from subfolders of Images folders
	RecursiveImages bool `yaml:"recursive_images"`

	// ImagePattern keeps only folder images whose name, without extension,
	// matches this regex
	ImagePattern string `yaml:"image_pattern"`

	// CompletedTasksFile is the completed-task log used to resume runs
	CompletedTasksFile string `yaml:"completed_tasks_file"`

	// ResultsFolder receives one JSON file per codec batch and the summary
	ResultsFolder string `yaml:"results_folder"`

	// EncodedFolder keeps encoded images; empty keeps them in scratch files only
	EncodedFolder string `yaml:"encoded_folder"`

	// MetricBinaryFolder is searched for metric binaries given by name only
	MetricBinaryFolder string `yaml:"metric_binary_folder"`

	// TempDir is where each run creates its private scratch folder
	TempDir string `yaml:"temp_dir"`

	// Repetitions is the number of extra runs of every task
	Repetitions int `yaml:"repetitions"`

	// ExtraThreads is the number of workers besides the main one
	ExtraThreads int `yaml:"extra_threads"`

	// RandomOrder shuffles tasks instead of running them in planner order
	RandomOrder bool `yaml:"random_order"`

	// RecomputeDistortion reruns metrics on saved encodings of the log
	RecomputeDistortion bool `yaml:"recompute_distortion"`

	// Quiet disables progress and summary output
	Quiet bool `yaml:"quiet"`

	// ProgressInterval is the minimum time between progress lines, written
	// as a duration string such as "10s"
	ProgressInterval time.Duration `yaml:"-"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// ResultsDB is an optional SQLite database collecting every run
	ResultsDB string `yaml:"results_db"`

	// Codecs lists the configurations to compare
	Codecs []CodecEntry `yaml:"codecs"`

	// Commands maps codec names to their encoder and decoder
	Commands map[string]CommandConfig `yaml:"commands"`

	// Metrics maps distortion metric names to their command
	Metrics map[string][]string `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		CompletedTasksFile: "completed_tasks.csv",
		ResultsFolder:      "results",
		ProgressInterval:   30 * time.Second,
		LogLevel:           "info",
		LogDir:             ".codecbench/logs",
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	type yamlConfig struct {
		Config           `yaml:",inline"`
		ProgressInterval string `yaml:"progress_interval"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	file := yamlCfg.Config

	// Apply non-zero values from file (merging with defaults)
	if len(file.Images) > 0 {
		cfg.Images = file.Images
	}
	if file.RecursiveImages {
		cfg.RecursiveImages = true
	}
	if file.ImagePattern != "" {
		cfg.ImagePattern = file.ImagePattern
	}
	if file.CompletedTasksFile != "" {
		cfg.CompletedTasksFile = file.CompletedTasksFile
	}
	if file.ResultsFolder != "" {
		cfg.ResultsFolder = file.ResultsFolder
	}
	if file.EncodedFolder != "" {
		cfg.EncodedFolder = file.EncodedFolder
	}
	if file.MetricBinaryFolder != "" {
		cfg.MetricBinaryFolder = file.MetricBinaryFolder
	}
	if file.TempDir != "" {
		cfg.TempDir = file.TempDir
	}
	if file.Repetitions != 0 {
		cfg.Repetitions = file.Repetitions
	}
	if file.ExtraThreads != 0 {
		cfg.ExtraThreads = file.ExtraThreads
	}
	if file.RandomOrder {
		cfg.RandomOrder = true
	}
	if file.RecomputeDistortion {
		cfg.RecomputeDistortion = true
	}
	if file.Quiet {
		cfg.Quiet = true
	}
	if yamlCfg.ProgressInterval != "" {
		interval, err := time.ParseDuration(yamlCfg.ProgressInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid progress_interval format %q: %w", yamlCfg.ProgressInterval, err)
		}
		cfg.ProgressInterval = interval
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogDir != "" {
		cfg.LogDir = file.LogDir
	}
	if file.ResultsDB != "" {
		cfg.ResultsDB = file.ResultsDB
	}
	cfg.Codecs = file.Codecs
	cfg.Commands = file.Commands
	cfg.Metrics = file.Metrics

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .codecbench/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".codecbench", "config.yaml"))
}

// Overrides holds command-line values. Non-nil fields take precedence over
// the configuration file.
type Overrides struct {
	CompletedTasksFile  *string
	ResultsFolder       *string
	EncodedFolder       *string
	MetricBinaryFolder  *string
	ExtraThreads        *int
	Repetitions         *int
	RandomOrder         *bool
	RecomputeDistortion *bool
	Quiet               *bool
	LogLevel            *string
	LogDir              *string
	ResultsDB           *string
	Images              []string
}

// MergeWithFlags merges CLI flags into the configuration
func (c *Config) MergeWithFlags(o Overrides) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&c.CompletedTasksFile, o.CompletedTasksFile)
	setString(&c.ResultsFolder, o.ResultsFolder)
	setString(&c.EncodedFolder, o.EncodedFolder)
	setString(&c.MetricBinaryFolder, o.MetricBinaryFolder)
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.LogDir, o.LogDir)
	setString(&c.ResultsDB, o.ResultsDB)

	if o.ExtraThreads != nil {
		c.ExtraThreads = *o.ExtraThreads
	}
	if o.Repetitions != nil {
		c.Repetitions = *o.Repetitions
	}
	if o.RandomOrder != nil {
		c.RandomOrder = *o.RandomOrder
	}
	if o.RecomputeDistortion != nil {
		c.RecomputeDistortion = *o.RecomputeDistortion
	}
	if o.Quiet != nil {
		c.Quiet = *o.Quiet
	}
	if len(o.Images) > 0 {
		c.Images = o.Images
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.CompletedTasksFile == "" {
		return fmt.Errorf("%w: completed_tasks_file cannot be empty", models.ErrInvalidConfiguration)
	}
	if c.ExtraThreads < 0 {
		return fmt.Errorf("%w: extra_threads must be >= 0, got %d", models.ErrInvalidConfiguration, c.ExtraThreads)
	}
	if c.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions must be >= 0, got %d", models.ErrInvalidConfiguration, c.Repetitions)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("%w: progress_interval must be >= 0, got %v", models.ErrInvalidConfiguration, c.ProgressInterval)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("%w: invalid log_level %q, must be one of: trace, debug, info, warn, error", models.ErrInvalidConfiguration, c.LogLevel)
	}

	settings, err := c.ComparisonSettings()
	if err != nil {
		return err
	}
	if len(settings.CodecSettings) == 0 {
		return fmt.Errorf("%w: no codec to compare", models.ErrInvalidConfiguration)
	}

	cc, err := c.CodecConfig()
	if err != nil {
		return err
	}
	for _, cs := range settings.CodecSettings {
		if _, ok := cc.Codecs[cs.Codec]; !ok {
			return fmt.Errorf("%w: no commands configured for %s", models.ErrInvalidConfiguration, cs.Codec)
		}
	}
	return nil
}

// ComparisonSettings expands the codec entries into the settings of one run.
// Settings are sorted and deduplicated.
func (c *Config) ComparisonSettings() (models.ComparisonSettings, error) {
	var all []models.CodecSettings
	for i, entry := range c.Codecs {
		expanded, err := entry.expand()
		if err != nil {
			return models.ComparisonSettings{}, fmt.Errorf("codecs[%d]: %w", i, err)
		}
		all = append(all, expanded...)
	}
	slices.SortFunc(all, models.CompareCodecSettings)
	all = slices.CompactFunc(all, func(a, b models.CodecSettings) bool {
		return models.CompareCodecSettings(a, b) == 0
	})

	return models.ComparisonSettings{
		CodecSettings:       all,
		MetricBinaryFolder:  c.MetricBinaryFolder,
		EncodedFolder:       c.EncodedFolder,
		Repetitions:         c.Repetitions,
		ExtraThreads:        c.ExtraThreads,
		RandomOrder:         c.RandomOrder,
		RecomputeDistortion: c.RecomputeDistortion,
		Quiet:               c.Quiet,
	}, nil
}

func (e CodecEntry) expand() ([]models.CodecSettings, error) {
	c, err := models.ParseCodec(e.Codec)
	if err != nil {
		return nil, err
	}
	sub := models.SubsamplingDefault
	if e.Subsampling != "" {
		if sub, err = models.ParseSubsampling(e.Subsampling); err != nil {
			return nil, err
		}
	}

	efforts := e.Efforts
	if len(efforts) == 0 {
		efforts = []int{0}
	}

	var qualities []int
	if len(e.Qualities) == 0 {
		if _, _, lossy := c.QualityRange(); lossy {
			return nil, fmt.Errorf("%w: no quality given for %s", models.ErrInvalidConfiguration, c)
		}
		qualities = []int{models.QualityLossless}
	}
	for _, q := range e.Qualities {
		parsed, err := ParseQualities(q)
		if err != nil {
			return nil, err
		}
		qualities = append(qualities, parsed...)
	}

	var settings []models.CodecSettings
	for _, effort := range efforts {
		for _, quality := range qualities {
			cs := models.CodecSettings{Codec: c, Subsampling: sub, Effort: effort, Quality: quality}
			if err := cs.Validate(); err != nil {
				return nil, err
			}
			settings = append(settings, cs)
		}
	}
	return settings, nil
}

// ParseQualities parses "lossless", a single quality or an inclusive
// "min:max[:step]" range.
func ParseQualities(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "lossless" {
		return []int{models.QualityLossless}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return nil, fmt.Errorf("%w: invalid quality %q", models.ErrInvalidConfiguration, s)
	}
	values := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid quality %q", models.ErrInvalidConfiguration, s)
		}
		values[i] = v
	}
	if len(values) == 1 {
		return values, nil
	}

	lo, hi, step := values[0], values[1], 1
	if len(values) == 3 {
		step = values[2]
	}
	if step <= 0 || lo > hi {
		return nil, fmt.Errorf("%w: invalid quality range %q", models.ErrInvalidConfiguration, s)
	}
	var qualities []int
	for q := lo; q <= hi; q += step {
		qualities = append(qualities, q)
	}
	return qualities, nil
}

// CodecConfig converts the command templates for codec.NewCommandRunner.
func (c *Config) CodecConfig() (codec.Config, error) {
	cc := codec.Config{
		Codecs:             make(map[models.Codec]codec.Commands, len(c.Commands)),
		Metrics:            make(map[models.DistortionMetric]codec.Template, len(c.Metrics)),
		MetricBinaryFolder: c.MetricBinaryFolder,
		TempDir:            c.TempDir,
	}
	for name, cmds := range c.Commands {
		id, err := models.ParseCodec(name)
		if err != nil {
			return codec.Config{}, fmt.Errorf("commands: %w", err)
		}
		if len(cmds.Encode) == 0 || len(cmds.Decode) == 0 {
			return codec.Config{}, fmt.Errorf("%w: commands of %s need both encode and decode", models.ErrInvalidConfiguration, name)
		}
		cc.Codecs[id] = codec.Commands{Encode: cmds.Encode, Decode: cmds.Decode}
	}
	for name, tmpl := range c.Metrics {
		m, err := models.ParseDistortionMetric(name)
		if err != nil {
			return codec.Config{}, fmt.Errorf("metrics: %w", err)
		}
		cc.Metrics[m] = tmpl
	}
	return cc, nil
}

// ImagePaths resolves Images into a sorted list of image files. Folders are
// expanded with fileutil.ScanDirectory.
func (c *Config) ImagePaths() ([]string, error) {
	var paths []string
	for _, p := range c.Images {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfiguration, err)
		}
		if !info.IsDir() {
			paths = append(paths, p)
			continue
		}
		result, err := fileutil.ScanDirectory(p, fileutil.ScanOptions{
			Pattern:   c.ImagePattern,
			Recursive: c.RecursiveImages,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfiguration, err)
		}
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("failed to list %s: %w", p, result.Errors[0])
		}
		paths = append(paths, result.Files...)
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}
