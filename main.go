package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zipix/zipix/archive"
	"github.com/zipix/zipix/cache"
	"github.com/zipix/zipix/config"
	"github.com/zipix/zipix/imgcodec"
	"github.com/zipix/zipix/loader"
	"github.com/zipix/zipix/log"
	"github.com/zipix/zipix/scan"
)

var (
	configFile = flag.String("config", "", "Engine configuration filename; defaults apply when empty")
	warm       = flag.Bool("warm", false, "Decode the first thumbnail of every valid archive into the cache")
)

func main() {
	flag.Parse()

	cfg, err := reloadConfig()
	if err != nil {
		log.Fatalf("error while loading config: %s", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)
	go func() {
		for {
			switch <-c {
			case syscall.SIGHUP:
				log.Infof("SIGHUP received. Going to reload config %s ...", *configFile)
				if _, err := reloadConfig(); err != nil {
					log.Errorf("error while reloading config: %s", err)
					continue
				}
				log.Infof("Reloading config %s: successful", *configFile)
			}
		}
	}()

	dirs := append([]string{}, cfg.Scan.Dirs...)
	dirs = append(dirs, flag.Args()...)
	if len(dirs) == 0 {
		log.Fatalf("no directories to scan; set `scan.dirs` or pass them as arguments")
	}

	store, err := cache.New(cache.Config{
		Name:                "images",
		Capacity:            cfg.Cache.Capacity,
		Strategy:            cache.StrategyKind(cfg.Cache.Strategy),
		MaxMemory:           cfg.Cache.MaxMemory.Bytes(),
		AdaptiveMinCapacity: cfg.Cache.Adaptive.MinCapacity,
		AdaptiveMaxCapacity: cfg.Cache.Adaptive.MaxCapacity,
		AdaptiveStep:        cfg.Cache.Adaptive.Step,
		AdaptiveAdjustEvery: cfg.Cache.Adaptive.AdjustEvery,
	})
	if err != nil {
		log.Fatalf("cannot create cache: %s", err)
	}

	pool := archive.NewPool(cfg.Archives.MaxOpen)
	router := loader.NewRouter()
	coord := loader.New(loader.Config{
		Workers:      cfg.Loader.PoolSize(),
		QueueSize:    cfg.Loader.QueueSize,
		FastResample: cfg.PerformanceMode,
	}, store, pool, imgcodec.NewStdDecoder(), router)
	defer func() {
		coord.Close()
		pool.Shutdown()
	}()

	scanner := scan.New(scan.Options{
		MaxArchiveSize: cfg.Archives.MaxArchiveSize.Bytes(),
		MaxEntries:     cfg.Archives.MaxEntries,
		Workers:        cfg.Scan.Workers,
	})
	reports, err := scanner.ScanDirs(dirs)
	if err != nil {
		log.Fatalf("scan failed: %s", err)
	}

	valid := 0
	for _, rep := range reports {
		if !rep.Valid {
			fmt.Printf("%s: not an image archive\n", rep.Path)
			continue
		}
		valid++
		fmt.Printf("%s: %d images, %s\n", rep.Path, rep.ImageCount, imgcodec.FormatSize(rep.Size))
	}
	log.Infof("scanned %d archives, %d valid", len(reports), valid)

	if *warm {
		preloader := loader.NewPreloader(loader.PreloaderConfig{
			Neighbors: cfg.Preload.Neighbors,
			MaxQueued: cfg.Preload.MaxQueued,
			RateLimit: cfg.Preload.RateLimit,
			MaxBytes:  cfg.Loader.MaxImageSize.Bytes(),
		}, coord, store)
		warmThumbnails(cfg, coord, preloader, reports)
	}

	st := store.Stats()
	fmt.Printf("cache: %d/%d entries, %d hits, %d misses, %s estimated\n",
		st.Size, st.Capacity, st.Hits, st.Misses, imgcodec.FormatSize(st.MemoryEstimate))
}

// warmThumbnails decodes the first member of every valid archive at
// thumbnail size, then preloads each archive's opening neighborhood,
// exercising the full pool/decode/cache/preload path.
func warmThumbnails(cfg *config.Config, coord *loader.Coordinator, preloader *loader.Preloader, reports []scan.Report) {
	var tasks []*loader.Task
	for _, rep := range reports {
		if !rep.Valid || len(rep.Members) == 0 {
			continue
		}
		t, err := coord.Submit(loader.Request{
			Archive:  rep.Path,
			Member:   rep.Members[0],
			MaxBytes: cfg.Loader.MaxThumbnailSize.Bytes(),
			Variant:  cache.ThumbnailVariant(cfg.Loader.ThumbnailWidth, cfg.Loader.ThumbnailHeight),
		})
		if err != nil {
			log.Errorf("cannot warm %q: %s", rep.Path, err)
			continue
		}
		tasks = append(tasks, t)
	}

	for _, t := range tasks {
		<-t.Done()
		res := t.Result()
		if !res.Success() {
			log.Errorf("warming %s: %s", res.Key, res.ErrorText())
			continue
		}
		log.Debugf("warmed %s (%dx%d)", res.Key, res.Image.Width(), res.Image.Height())
	}

	preloaded := 0
	for _, rep := range reports {
		if !rep.Valid || len(rep.Members) == 0 {
			continue
		}
		preloaded += preloader.PreloadAround(rep.Path, rep.Members, 0)
	}
	for preloader.Queued() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	log.Infof("warmed %d thumbnails, preloaded %d neighbors, %d decodes",
		len(tasks), preloaded, coord.DecodeCount())
}

func reloadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		log.Infof("Loading config: %s", *configFile)
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("cannot load config %q: %s", *configFile, err)
		}
		cfg = loaded
		log.Infof("Loading config %q: successful", *configFile)
	}

	log.SetDebug(cfg.LogDebug)
	return cfg.EffectiveConfig(), nil
}
