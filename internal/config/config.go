// Package config loads and validates the lamp-monitor YAML configuration.
// Any fault here is fatal at startup; the daemon never enters the frame
// loop with a partial configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/lamp-monitor/internal/frame"
	"github.com/sweeney/lamp-monitor/internal/vision"
)

// Config is the complete daemon configuration.
type Config struct {
	Camera CameraConfig     `yaml:"camera"`
	Logic  LogicConfig      `yaml:"logic"`
	Notify NotifyConfig     `yaml:"notify"`
	ROIs   map[string][]int `yaml:"rois"`
}

// CameraConfig is passed through to the capture front-end.
type CameraConfig struct {
	// StreamURL is the MJPEG stream endpoint for network cameras.
	StreamURL string `yaml:"stream_url"`
	Size      []int  `yaml:"size"` // [width, height]
	FPS       int    `yaml:"fps"`
}

// LogicConfig holds classification and debounce tunables. Hue values are
// on the OpenCV [0,180] scale, saturation/value on [0,255].
type LogicConfig struct {
	FramesWindow        int     `yaml:"frames_window"`
	MinBrightnessV      int     `yaml:"min_brightness_v"`
	RedHueRange         [][]int `yaml:"red_hue_range"`
	RedSatMin           int     `yaml:"red_sat_min"`
	RedValMin           int     `yaml:"red_val_min"`
	GreenHueRange       []int   `yaml:"green_hue_range"`
	GreenSatMin         int     `yaml:"green_sat_min"`
	GreenValMin         int     `yaml:"green_val_min"`
	MorphologicalKernel int     `yaml:"morphological_kernel"`
	RedRatioThresh      float64 `yaml:"red_ratio_thresh"`
	GreenRatioThresh    float64 `yaml:"green_ratio_thresh"`
}

// NotifyConfig holds the alert endpoint settings.
type NotifyConfig struct {
	WorkerURL           string  `yaml:"worker_url"`
	Secret              string  `yaml:"secret"`
	MinIntervalSec      float64 `yaml:"min_interval_sec"`
	CollectionWindowSec float64 `yaml:"collection_window_sec"`
	BatchIntervalSec    float64 `yaml:"batch_interval_sec"`
	QueueSize           int     `yaml:"queue_size"`
}

// Defaults applied when keys are absent.
const (
	DefaultCollectionWindowSec = 2.0
	DefaultBatchIntervalSec    = 3.0
	DefaultQueueSize           = 8
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads, env-expands, parses, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded, err := expandEnv(string(data))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandEnv replaces ${VAR} references with environment values. An unset
// variable is an error so the daemon never signs with an empty secret.
func expandEnv(s string) (string, error) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("environment variable %q is not set", missing[0])
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.Notify.CollectionWindowSec == 0 {
		c.Notify.CollectionWindowSec = DefaultCollectionWindowSec
	}
	if c.Notify.BatchIntervalSec == 0 {
		c.Notify.BatchIntervalSec = DefaultBatchIntervalSec
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = DefaultQueueSize
	}
}

// Validate checks every tunable the core depends on.
func (c *Config) Validate() error {
	l := c.Logic
	if l.FramesWindow < 1 {
		return fmt.Errorf("logic.frames_window must be >= 1, got %d", l.FramesWindow)
	}
	if l.MorphologicalKernel < 1 || l.MorphologicalKernel%2 == 0 {
		return fmt.Errorf("logic.morphological_kernel must be odd and positive, got %d", l.MorphologicalKernel)
	}
	if l.RedRatioThresh <= 0 || l.RedRatioThresh > 1 {
		return fmt.Errorf("logic.red_ratio_thresh must be in (0,1], got %g", l.RedRatioThresh)
	}
	if l.GreenRatioThresh <= 0 || l.GreenRatioThresh > 1 {
		return fmt.Errorf("logic.green_ratio_thresh must be in (0,1], got %g", l.GreenRatioThresh)
	}
	if len(l.RedHueRange) == 0 {
		return fmt.Errorf("logic.red_hue_range must list at least one [min,max] pair")
	}
	for i, r := range l.RedHueRange {
		if err := validateHueRange(r); err != nil {
			return fmt.Errorf("logic.red_hue_range[%d]: %w", i, err)
		}
	}
	if err := validateHueRange(l.GreenHueRange); err != nil {
		return fmt.Errorf("logic.green_hue_range: %w", err)
	}

	n := c.Notify
	if n.WorkerURL == "" {
		return fmt.Errorf("notify.worker_url is required")
	}
	if !strings.HasPrefix(n.WorkerURL, "http://") && !strings.HasPrefix(n.WorkerURL, "https://") {
		return fmt.Errorf("notify.worker_url must be an http(s) URL, got %q", n.WorkerURL)
	}
	if n.Secret == "" {
		return fmt.Errorf("notify.secret is required")
	}
	if n.MinIntervalSec < 0 {
		return fmt.Errorf("notify.min_interval_sec must be >= 0, got %g", n.MinIntervalSec)
	}

	if len(c.ROIs) == 0 {
		return fmt.Errorf("rois must define at least one lamp")
	}
	if _, err := c.LampROIs(); err != nil {
		return err
	}
	return nil
}

func validateHueRange(r []int) error {
	if len(r) != 2 {
		return fmt.Errorf("want [min, max], got %v", r)
	}
	if r[0] < 0 || r[1] > 180 || r[0] > r[1] {
		return fmt.Errorf("bounds must satisfy 0 <= min <= max <= 180, got %v", r)
	}
	return nil
}

// LampROIs parses the "lamp_<id>" keys into a region map.
func (c *Config) LampROIs() (map[int]frame.Rect, error) {
	out := make(map[int]frame.Rect, len(c.ROIs))
	for key, coords := range c.ROIs {
		id, err := parseLampKey(key)
		if err != nil {
			return nil, err
		}
		if len(coords) != 4 {
			return nil, fmt.Errorf("rois.%s: want [x, y, width, height], got %v", key, coords)
		}
		r := frame.Rect{X: coords[0], Y: coords[1], W: coords[2], H: coords[3]}
		if r.X < 0 || r.Y < 0 || r.W <= 0 || r.H <= 0 {
			return nil, fmt.Errorf("rois.%s: invalid rectangle %+v", key, r)
		}
		out[id] = r
	}
	return out, nil
}

// LampIDs returns the configured lamp identities in ascending order.
func (c *Config) LampIDs() []int {
	ids := make([]int, 0, len(c.ROIs))
	for key := range c.ROIs {
		if id, err := parseLampKey(key); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func parseLampKey(key string) (int, error) {
	const prefix = "lamp_"
	if !strings.HasPrefix(key, prefix) {
		return 0, fmt.Errorf("rois key %q: want lamp_<id>", key)
	}
	id, err := strconv.Atoi(key[len(prefix):])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("rois key %q: lamp id must be a positive integer", key)
	}
	return id, nil
}

// Thresholds maps the logic section onto the classifier's tunables.
func (c *Config) Thresholds() vision.Thresholds {
	ranges := make([]vision.HueRange, len(c.Logic.RedHueRange))
	for i, r := range c.Logic.RedHueRange {
		ranges[i] = vision.HueRange{Min: r[0], Max: r[1]}
	}
	return vision.Thresholds{
		MinBrightnessV: c.Logic.MinBrightnessV,
		RedHueRanges:   ranges,
		RedSatMin:      c.Logic.RedSatMin,
		RedValMin:      c.Logic.RedValMin,
		RedRatio:       c.Logic.RedRatioThresh,
		GreenHueRange:  vision.HueRange{Min: c.Logic.GreenHueRange[0], Max: c.Logic.GreenHueRange[1]},
		GreenSatMin:    c.Logic.GreenSatMin,
		GreenValMin:    c.Logic.GreenValMin,
		GreenRatio:     c.Logic.GreenRatioThresh,
		KernelSize:     c.Logic.MorphologicalKernel,
	}
}
