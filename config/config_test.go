package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v2"
)

var expectedConf = Config{
	LogDebug: true,
	Cache: Cache{
		Capacity:  100,
		Strategy:  "adaptive",
		MaxMemory: 1.5 * GB,
		Adaptive: Adaptive{
			MinCapacity: 20,
			MaxCapacity: 400,
			Step:        10,
			AdjustEvery: 25,
		},
	},
	Archives: Archives{
		MaxOpen:        4,
		MaxArchiveSize: 200 * MB,
		MaxEntries:     5000,
	},
	Loader: Loader{
		Workers:          8,
		QueueSize:        128,
		ThumbnailWidth:   320,
		ThumbnailHeight:  240,
		MaxThumbnailSize: 5 * MB,
		MaxImageSize:     50 * MB,
	},
	Preload: Preload{
		Neighbors:     3,
		MaxQueued:     5,
		NextThumbnail: true,
		RateLimit:     10,
	},
	Scan: Scan{
		Dirs:    []string{"/data/comics", "/data/photos"},
		Workers: 2,
	},
}

func TestLoadConfig(t *testing.T) {
	c, err := LoadFile("testdata/full.yml")
	if err != nil {
		t.Fatalf("Error parsing %s: %s", "testdata/full.yml", err)
	}

	if diff := cmp.Diff(&expectedConf, c); diff != "" {
		t.Fatalf("testdata/full.yml: unexpected config (-want +got):\n%s", diff)
	}
}

func TestDefaultValues(t *testing.T) {
	c, err := LoadFile("testdata/default.yml")
	if err != nil {
		t.Fatalf("Error parsing %s: %s", "testdata/default.yml", err)
	}

	want := defaultConfig
	want.Scan.Dirs = []string{"/data/comics"}
	if diff := cmp.Diff(&want, c); diff != "" {
		t.Fatalf("testdata/default.yml: unexpected config (-want +got):\n%s", diff)
	}
}

func TestBadConfig(t *testing.T) {
	testCases := []struct {
		name  string
		yml   string
		error string
	}{
		{
			"unknown top-level field",
			"cashe:\n  capacity: 10",
			"unknown fields in config: cashe",
		},
		{
			"unknown nested field",
			"cache:\n  capasity: 10",
			"unknown fields in cache: capasity",
		},
		{
			"non-positive capacity",
			"cache:\n  capacity: 0",
			"`cache.capacity` must be positive",
		},
		{
			"unknown strategy",
			"cache:\n  strategy: mru",
			"unknown `cache.strategy` \"mru\"; must be one of lru, lfu, adaptive",
		},
		{
			"inverted adaptive bounds",
			"cache:\n  adaptive:\n    min_capacity: 50\n    max_capacity: 10",
			"`adaptive` capacity bounds must satisfy 0 < min_capacity <= max_capacity",
		},
		{
			"non-positive max_open",
			"archives:\n  max_open: 0",
			"`archives.max_open` must be positive",
		},
		{
			"negative workers",
			"loader:\n  workers: -1",
			"`loader.workers` cannot be negative",
		},
		{
			"zero thumbnail side",
			"loader:\n  thumbnail_width: 0",
			"`loader.thumbnail_width` and `loader.thumbnail_height` must be positive",
		},
		{
			"negative preload neighbors",
			"preload:\n  neighbors: -2",
			"`preload.neighbors` and `preload.max_queued` cannot be negative",
		},
		{
			"bad byte size",
			"cache:\n  max_memory: 10q",
			"wrong size format",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c Config
			err := yaml.Unmarshal([]byte(tc.yml), &c)
			if err == nil {
				t.Fatalf("expected error for config: %q", tc.yml)
			}
			if !strings.Contains(err.Error(), tc.error) {
				t.Fatalf("unexpected error: %q; want substring %q", err, tc.error)
			}
		})
	}
}

func TestByteSize(t *testing.T) {
	testCases := []struct {
		yml  string
		want int64
	}{
		{"10B", 10},
		{"10K", 10 * 1024},
		{"10KB", 10 * 1024},
		{"1.5M", 1536 * 1024},
		{"2GB", 2 * 1024 * 1024 * 1024},
		{"1T", 1024 * 1024 * 1024 * 1024},
	}

	for _, tc := range testCases {
		var bs ByteSize
		if err := yaml.Unmarshal([]byte(tc.yml), &bs); err != nil {
			t.Fatalf("cannot parse %q: %s", tc.yml, err)
		}
		if bs.Bytes() != tc.want {
			t.Fatalf("parsed %q into %d bytes; want %d", tc.yml, bs.Bytes(), tc.want)
		}
	}
}

func TestPoolSize(t *testing.T) {
	l := Loader{Workers: 6}
	if n := l.PoolSize(); n != 6 {
		t.Fatalf("unexpected pool size %d; want 6", n)
	}
	l.Workers = 0
	if n := l.PoolSize(); n < 3 {
		t.Fatalf("unexpected auto pool size %d; want at least 3", n)
	}
}

func TestEffectiveConfig(t *testing.T) {
	c := Default()
	c.PerformanceMode = true

	eff := c.EffectiveConfig()
	if eff.Loader.ThumbnailWidth != 180 || eff.Loader.ThumbnailHeight != 180 {
		t.Fatalf("unexpected thumbnail bound %dx%d; want 180x180",
			eff.Loader.ThumbnailWidth, eff.Loader.ThumbnailHeight)
	}
	if eff.Loader.MaxThumbnailSize != 3*MB {
		t.Fatalf("unexpected max_thumbnail_size %v; want %v", eff.Loader.MaxThumbnailSize, 3*MB)
	}
	if eff.Loader.MaxImageSize != 30*MB {
		t.Fatalf("unexpected max_image_size %v; want %v", eff.Loader.MaxImageSize, 30*MB)
	}
	if eff.Cache.Capacity != 25 {
		t.Fatalf("unexpected cache capacity %d; want 25", eff.Cache.Capacity)
	}
	if eff.Preload.Neighbors != 1 || eff.Preload.NextThumbnail {
		t.Fatalf("unexpected preload profile: %+v", eff.Preload)
	}

	// The profile is an overlay; the source config keeps its values.
	if c.Cache.Capacity != defaultCache.Capacity {
		t.Fatalf("EffectiveConfig mutated the receiver: capacity=%d", c.Cache.Capacity)
	}

	c.PerformanceMode = false
	eff = c.EffectiveConfig()
	if diff := cmp.Diff(c, eff); diff != "" {
		t.Fatalf("EffectiveConfig without performance mode must be a plain copy (-want +got):\n%s", diff)
	}
}
