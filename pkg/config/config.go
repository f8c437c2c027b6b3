// Package config layers command-line flags over an optional YAML file over
// built-in defaults into a single, validated Config for a linereverse run.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"
)

// Error reports an invalid configuration; Load returns it for every
// validation failure so callers can classify it as a fatal, non-retryable
// condition without inspecting the message.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("config: %s", e.Reason) }

const (
	minBufSize            = 4096
	defaultBufSize        = 4096
	defaultBufferCount    = 4
	defaultQueueCapacity  = 16
	defaultLogLevel       = "info"
	unpinnedCPU           = -1
)

// Config is the fully resolved, validated set of knobs a run is executed
// with. Every field has already passed the checks in Load; nothing below
// this package needs to re-validate it.
type Config struct {
	InputPath     string
	OutputPath    string
	BufSize       uint32
	BufferCount   uint8
	QueueCapacity uint16
	CPUAffinity   [3]int
	LogLevel      string
	ShowProgress  bool
}

// fileConfig mirrors the subset of Config that may come from a YAML file;
// pointer fields distinguish "absent from the file" from "explicitly zero"
// so flag defaults don't silently clobber a value the file did set.
type fileConfig struct {
	InputPath     *string `yaml:"input_path"`
	OutputPath    *string `yaml:"output_path"`
	BufSize       *uint32 `yaml:"buf_size"`
	BufferCount   *uint8  `yaml:"buffer_count"`
	QueueCapacity *uint16 `yaml:"queue_capacity"`
	CPUAffinity   *[3]int `yaml:"cpu_affinity"`
	LogLevel      *string `yaml:"log_level"`
	ShowProgress  *bool   `yaml:"progress"`
}

// Load parses args (typically os.Args[1:]) as flags, optionally merges a
// YAML file named by -config beneath those flags, applies defaults for
// anything still unset, and validates the result.
//
// Precedence, lowest to highest: built-in defaults, the YAML file, the
// command-line flags. A flag left at its zero value is treated as unset
// only when the caller never passed it; flag.Visit is used to tell "the
// user typed -buf-size 0" apart from "the user didn't mention buf-size".
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("linereverse", flag.ContinueOnError)

	in := fs.String("in", "", "path to the input file")
	out := fs.String("out", "", "path to the output file")
	configPath := fs.String("config", "", "optional YAML file with config defaults")
	bufSize := fs.Uint("buf-size", 0, "bytes per buffer (>= 4096)")
	bufferCount := fs.Uint("buffer-count", 0, "number of in-flight jobs J (N = 2J+1 buffers)")
	queueCapacity := fs.Uint("queue-capacity", 0, "SPSC queue capacity, power of two, > buffer-count")
	cpuReader := fs.Int("cpu-reader", 0, "CPU core to pin the reader goroutine to, -1 for unpinned")
	cpuWorker := fs.Int("cpu-worker", 1, "CPU core to pin the worker goroutine to, -1 for unpinned")
	cpuWriter := fs.Int("cpu-writer", 2, "CPU core to pin the writer goroutine to, -1 for unpinned")
	logLevel := fs.String("log-level", "", "zerolog level: debug, info, warn, error")
	progress := fs.Bool("progress", false, "show a progress bar while running")

	if err := fs.Parse(args); err != nil {
		return Config{}, &Error{Reason: fmt.Sprintf("parsing flags: %v", err)}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := Config{
		BufSize:       defaultBufSize,
		BufferCount:   defaultBufferCount,
		QueueCapacity: defaultQueueCapacity,
		CPUAffinity:   [3]int{0, 1, 2},
		LogLevel:      defaultLogLevel,
	}

	if *configPath != "" {
		fc, err := loadFile(*configPath)
		if err != nil {
			return Config{}, err
		}
		fc.applyTo(&cfg)
	}

	if set["in"] {
		cfg.InputPath = *in
	}
	if set["out"] {
		cfg.OutputPath = *out
	}
	if set["buf-size"] {
		cfg.BufSize = uint32(*bufSize)
	}
	if set["buffer-count"] {
		cfg.BufferCount = uint8(*bufferCount)
	}
	if set["queue-capacity"] {
		cfg.QueueCapacity = uint16(*queueCapacity)
	}
	if set["cpu-reader"] {
		cfg.CPUAffinity[0] = *cpuReader
	}
	if set["cpu-worker"] {
		cfg.CPUAffinity[1] = *cpuWorker
	}
	if set["cpu-writer"] {
		cfg.CPUAffinity[2] = *cpuWriter
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if set["progress"] {
		cfg.ShowProgress = *progress
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, &Error{Reason: fmt.Sprintf("reading config file %q: %v", path, err)}
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, &Error{Reason: fmt.Sprintf("parsing config file %q: %v", path, err)}
	}
	return fc, nil
}

func (fc fileConfig) applyTo(cfg *Config) {
	if fc.InputPath != nil {
		cfg.InputPath = *fc.InputPath
	}
	if fc.OutputPath != nil {
		cfg.OutputPath = *fc.OutputPath
	}
	if fc.BufSize != nil {
		cfg.BufSize = *fc.BufSize
	}
	if fc.BufferCount != nil {
		cfg.BufferCount = *fc.BufferCount
	}
	if fc.QueueCapacity != nil {
		cfg.QueueCapacity = *fc.QueueCapacity
	}
	if fc.CPUAffinity != nil {
		cfg.CPUAffinity = *fc.CPUAffinity
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.ShowProgress != nil {
		cfg.ShowProgress = *fc.ShowProgress
	}
}

func validate(cfg Config) error {
	if cfg.InputPath == "" {
		return &Error{Reason: "input path is required (-in)"}
	}
	if cfg.OutputPath == "" {
		return &Error{Reason: "output path is required (-out)"}
	}
	if cfg.BufSize < minBufSize {
		return &Error{Reason: fmt.Sprintf("buf_size %d below minimum %d", cfg.BufSize, minBufSize)}
	}
	if cfg.BufferCount < 1 {
		return &Error{Reason: "buffer_count must be at least 1"}
	}
	if !isPowerOfTwo(cfg.QueueCapacity) {
		return &Error{Reason: fmt.Sprintf("queue_capacity %d is not a power of two", cfg.QueueCapacity)}
	}
	if uint32(cfg.QueueCapacity) <= uint32(cfg.BufferCount) {
		return &Error{Reason: fmt.Sprintf("queue_capacity %d must exceed buffer_count %d", cfg.QueueCapacity, cfg.BufferCount)}
	}
	if err := validateAffinity(cfg.CPUAffinity); err != nil {
		return err
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &Error{Reason: fmt.Sprintf("log_level %q is not one of debug, info, warn, error", cfg.LogLevel)}
	}
	return nil
}

func isPowerOfTwo(v uint16) bool {
	return v >= 2 && v&(v-1) == 0
}

// validateAffinity rejects a pin request against a core index the host
// doesn't have. gopsutil is used here rather than runtime.NumCPU so a
// requested pin is checked against the true logical CPU count reported by
// the OS, matching what affinity.Pin will ultimately hand the kernel.
func validateAffinity(affinity [3]int) error {
	count, err := cpu.Counts(true)
	if err != nil {
		return &Error{Reason: fmt.Sprintf("determining logical CPU count: %v", err)}
	}
	for _, idx := range affinity {
		if idx == unpinnedCPU {
			continue
		}
		if idx < 0 || idx >= count {
			return &Error{Reason: fmt.Sprintf("cpu affinity index %d is out of range for %d logical CPUs", idx, count)}
		}
	}
	return nil
}
