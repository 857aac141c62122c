package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v2"
)

var (
	defaultConfig = Config{
		Cache:    defaultCache,
		Archives: defaultArchives,
		Loader:   defaultLoader,
		Preload:  defaultPreload,
		Scan:     defaultScan,
	}

	defaultCache = Cache{
		Capacity:  50,
		Strategy:  "lru",
		MaxMemory: 200 * MB,
		Adaptive:  defaultAdaptive,
	}

	defaultAdaptive = Adaptive{
		MinCapacity: 10,
		MaxCapacity: 200,
		Step:        5,
		AdjustEvery: 10,
	}

	defaultArchives = Archives{
		MaxOpen:        10,
		MaxArchiveSize: 500 * MB,
		MaxEntries:     10000,
	}

	defaultLoader = Loader{
		Workers:          0,
		QueueSize:        64,
		ThumbnailWidth:   280,
		ThumbnailHeight:  280,
		MaxThumbnailSize: 10 * MB,
		MaxImageSize:     100 * MB,
	}

	defaultPreload = Preload{
		Neighbors:     2,
		MaxQueued:     3,
		NextThumbnail: true,
		RateLimit:     20,
	}

	defaultScan = Scan{
		Workers: 4,
	}
)

// Config describes the image-archive engine configuration.
type Config struct {
	// Whether to print debug logs.
	LogDebug bool `yaml:"log_debug,omitempty"`

	// PerformanceMode trades quality and memory for speed: smaller
	// thumbnails, lower byte ceilings, smaller cache, shallower preload
	// and nearest-neighbor resampling.
	PerformanceMode bool `yaml:"performance_mode,omitempty"`

	Cache    Cache    `yaml:"cache,omitempty"`
	Archives Archives `yaml:"archives,omitempty"`
	Loader   Loader   `yaml:"loader,omitempty"`
	Preload  Preload  `yaml:"preload,omitempty"`
	Scan     Scan     `yaml:"scan,omitempty"`

	// Catches all undefined fields.
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = defaultConfig

	// Set c to the defaults and then overwrite it with the input.
	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}
	return checkOverflow(c.XXX, "config")
}

// Cache describes the decoded-image cache.
type Cache struct {
	// Maximum number of cached decoded images.
	Capacity int `yaml:"capacity,omitempty"`

	// Strategy is one of `lru`, `lfu`, `adaptive`.
	Strategy string `yaml:"strategy,omitempty"`

	// MaxMemory bounds the decoded-pixel byte estimate. Enforced by the
	// lfu strategy ahead of insertion.
	MaxMemory ByteSize `yaml:"max_memory,omitempty"`

	Adaptive Adaptive `yaml:"adaptive,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Cache) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = defaultCache

	type plain Cache
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	if c.Capacity <= 0 {
		return fmt.Errorf("`cache.capacity` must be positive")
	}
	switch c.Strategy {
	case "lru", "lfu", "adaptive":
	default:
		return fmt.Errorf("unknown `cache.strategy` %q; must be one of lru, lfu, adaptive", c.Strategy)
	}

	return checkOverflow(c.XXX, "cache")
}

// Adaptive tunes the self-adjusting lru strategy.
type Adaptive struct {
	MinCapacity int `yaml:"min_capacity,omitempty"`
	MaxCapacity int `yaml:"max_capacity,omitempty"`

	// Step is the capacity delta applied per adjustment.
	Step int `yaml:"step,omitempty"`

	// AdjustEvery is the number of puts between adjustments.
	AdjustEvery int `yaml:"adjust_every,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (a *Adaptive) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*a = defaultAdaptive

	type plain Adaptive
	if err := unmarshal((*plain)(a)); err != nil {
		return err
	}

	if a.MinCapacity <= 0 || a.MaxCapacity < a.MinCapacity {
		return fmt.Errorf("`adaptive` capacity bounds must satisfy 0 < min_capacity <= max_capacity")
	}
	if a.Step <= 0 || a.AdjustEvery <= 0 {
		return fmt.Errorf("`adaptive.step` and `adaptive.adjust_every` must be positive")
	}

	return checkOverflow(a.XXX, "adaptive")
}

// Archives describes the open-handle pool and archive acceptance limits.
type Archives struct {
	// Maximum number of archives kept open simultaneously.
	MaxOpen int `yaml:"max_open,omitempty"`

	// Archives larger than this are not classified or opened.
	MaxArchiveSize ByteSize `yaml:"max_archive_size,omitempty"`

	// Archives with more entries than this are rejected during scanning.
	MaxEntries int `yaml:"max_entries,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (a *Archives) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*a = defaultArchives

	type plain Archives
	if err := unmarshal((*plain)(a)); err != nil {
		return err
	}

	if a.MaxOpen <= 0 {
		return fmt.Errorf("`archives.max_open` must be positive")
	}

	return checkOverflow(a.XXX, "archives")
}

// Loader describes the decode worker pool and per-request byte ceilings.
type Loader struct {
	// Workers is the decode pool size. Zero means NumCPU+2.
	Workers int `yaml:"workers,omitempty"`

	// QueueSize bounds each of the two dispatch queues.
	QueueSize int `yaml:"queue_size,omitempty"`

	ThumbnailWidth  int `yaml:"thumbnail_width,omitempty"`
	ThumbnailHeight int `yaml:"thumbnail_height,omitempty"`

	// MaxThumbnailSize rejects members larger than this on thumbnail loads.
	MaxThumbnailSize ByteSize `yaml:"max_thumbnail_size,omitempty"`

	// MaxImageSize rejects members larger than this on full-resolution loads.
	MaxImageSize ByteSize `yaml:"max_image_size,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (l *Loader) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*l = defaultLoader

	type plain Loader
	if err := unmarshal((*plain)(l)); err != nil {
		return err
	}

	if l.Workers < 0 {
		return fmt.Errorf("`loader.workers` cannot be negative")
	}
	if l.QueueSize <= 0 {
		return fmt.Errorf("`loader.queue_size` must be positive")
	}
	if l.ThumbnailWidth <= 0 || l.ThumbnailHeight <= 0 {
		return fmt.Errorf("`loader.thumbnail_width` and `loader.thumbnail_height` must be positive")
	}

	return checkOverflow(l.XXX, "loader")
}

// PoolSize returns the effective decode worker count.
func (l *Loader) PoolSize() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return runtime.NumCPU() + 2
}

// Preload describes neighbor preloading.
type Preload struct {
	// Neighbors is how many members ahead and behind the current index
	// are preloaded.
	Neighbors int `yaml:"neighbors,omitempty"`

	// MaxQueued caps simultaneously queued preload tasks so interactive
	// loads are not starved.
	MaxQueued int `yaml:"max_queued,omitempty"`

	// NextThumbnail preloads the following archive's first thumbnail
	// while browsing.
	NextThumbnail bool `yaml:"next_thumbnail,omitempty"`

	// RateLimit caps preload submissions per second.
	RateLimit float64 `yaml:"rate_limit,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (p *Preload) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*p = defaultPreload

	type plain Preload
	if err := unmarshal((*plain)(p)); err != nil {
		return err
	}

	if p.Neighbors < 0 || p.MaxQueued < 0 {
		return fmt.Errorf("`preload.neighbors` and `preload.max_queued` cannot be negative")
	}
	if p.RateLimit <= 0 {
		return fmt.Errorf("`preload.rate_limit` must be positive")
	}

	return checkOverflow(p.XXX, "preload")
}

// Scan describes directory scanning for image-only archives.
type Scan struct {
	// Dirs are the directories searched for zip archives.
	Dirs []string `yaml:"dirs,omitempty"`

	// Workers is the number of archives analyzed concurrently.
	// Values below 2 select the serial scanner.
	Workers int `yaml:"workers,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (s *Scan) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*s = defaultScan

	type plain Scan
	if err := unmarshal((*plain)(s)); err != nil {
		return err
	}

	if s.Workers < 0 {
		return fmt.Errorf("`scan.workers` cannot be negative")
	}

	return checkOverflow(s.XXX, "scan")
}

// Performance-mode overrides, matching the reduced limits the viewer
// runs with when responsiveness is preferred over quality.
const (
	perfThumbnailSide    = 180
	perfCacheCapacity    = 25
	perfPreloadNeighbors = 1
	perfMaxThumbnailSize = 3 * MB
	perfMaxImageSize     = 30 * MB
)

// EffectiveConfig returns the configuration with the performance-mode
// profile applied when enabled. The receiver is never mutated; the
// profile is overlaid on a deep copy.
func (c *Config) EffectiveConfig() *Config {
	cp := deepcopy.Copy(c).(*Config)
	if !c.PerformanceMode {
		return cp
	}
	cp.Loader.ThumbnailWidth = perfThumbnailSide
	cp.Loader.ThumbnailHeight = perfThumbnailSide
	cp.Loader.MaxThumbnailSize = perfMaxThumbnailSize
	cp.Loader.MaxImageSize = perfMaxImageSize
	cp.Cache.Capacity = perfCacheCapacity
	cp.Preload.Neighbors = perfPreloadNeighbors
	cp.Preload.NextThumbnail = false
	return cp
}

// Default returns an independent copy of the built-in configuration.
func Default() *Config {
	return deepcopy.Copy(&defaultConfig).(*Config)
}

// LoadFile loads and validates configuration from the given path.
func LoadFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
