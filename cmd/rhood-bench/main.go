// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rhood-bench times inserts and finds against the rhood containers using
// datasets produced by rhood-datagen. With -store it places a node map in a
// file-backed region instead of the heap. Options can also come from a TOML
// file via -config; explicitly passed flags win.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/rhoodlabs/rhood"
	"github.com/rhoodlabs/rhood/mem"
)

type benchConfig struct {
	Op        string `toml:"op"`
	Keys      string `toml:"keys"`
	InsertIn  string `toml:"insert_in"`
	FindIn    string `toml:"find_in"`
	Batch     int    `toml:"batch"`
	Repeats   int    `toml:"repeats"`
	Store     string `toml:"store"`
	StoreSize int64  `toml:"store_size"`
	Seed      uint64 `toml:"seed"`
}

func defaultConfig() benchConfig {
	return benchConfig{
		Op:        "insert",
		Keys:      "int64",
		Batch:     1 << 16,
		Repeats:   3,
		StoreSize: 1 << 30,
		Seed:      123,
	}
}

func loadConfig() (benchConfig, error) {
	cfg := defaultConfig()

	configPath := flag.String("config", "", "TOML config file")
	op := flag.String("op", cfg.Op, "benchmark: insert or find")
	keys := flag.String("keys", cfg.Keys, "key type: int64 or string")
	insertIn := flag.String("in", cfg.InsertIn, "insert dataset path (required)")
	findIn := flag.String("find-in", cfg.FindIn, "find dataset path (find op)")
	batch := flag.Int("batch", cfg.Batch, "keys per timed batch")
	repeats := flag.Int("repeats", cfg.Repeats, "benchmark repetitions")
	store := flag.String("store", "", "region file path; empty runs on the heap")
	storeSize := flag.Int64("store-size", cfg.StoreSize, "region file size in bytes")
	seed := flag.Uint64("seed", cfg.Seed, "hash seed for region-backed runs")
	flag.Parse()

	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	// Explicit flags override the file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["op"] || cfg.Op == "" {
		cfg.Op = *op
	}
	if set["keys"] || cfg.Keys == "" {
		cfg.Keys = *keys
	}
	if set["in"] || cfg.InsertIn == "" {
		cfg.InsertIn = *insertIn
	}
	if set["find-in"] || cfg.FindIn == "" {
		cfg.FindIn = *findIn
	}
	if set["batch"] || cfg.Batch == 0 {
		cfg.Batch = *batch
	}
	if set["repeats"] || cfg.Repeats == 0 {
		cfg.Repeats = *repeats
	}
	if set["store"] {
		cfg.Store = *store
	}
	if set["store-size"] || cfg.StoreSize == 0 {
		cfg.StoreSize = *storeSize
	}
	if set["seed"] {
		cfg.Seed = *seed
	}

	if cfg.InsertIn == "" {
		return cfg, fmt.Errorf("-in is required")
	}
	if cfg.Keys != "int64" && cfg.Keys != "string" {
		return cfg, fmt.Errorf("unknown key type %q", cfg.Keys)
	}
	if cfg.Op != "insert" && cfg.Op != "find" {
		return cfg, fmt.Errorf("unknown op %q", cfg.Op)
	}
	if cfg.Op == "find" && cfg.FindIn == "" {
		return cfg, fmt.Errorf("-find-in is required for the find op")
	}
	return cfg, nil
}

type stats struct {
	Min    float64
	Mean   float64
	Max    float64
	StdDev float64
}

// runBenchmark runs fn n times and reports seconds per run.
func runBenchmark(n int, fn func() (float64, error)) (stats, error) {
	times := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		t, err := fn()
		if err != nil {
			return stats{}, err
		}
		times = append(times, t)
	}

	s := stats{Min: math.MaxFloat64}
	var sum float64
	for _, t := range times {
		s.Min = math.Min(s.Min, t)
		s.Max = math.Max(s.Max, t)
		sum += t
	}
	s.Mean = sum / float64(n)
	var sumSq float64
	for _, t := range times {
		sumSq += (t - s.Mean) * (t - s.Mean)
	}
	s.StdDev = math.Sqrt(sumSq / float64(n))
	return s, nil
}

// readBatch reads up to batch lines into out, returning an empty slice when
// the input is done.
func readBatch(sc *bufio.Scanner, batch int, out []string) []string {
	out = out[:0]
	for len(out) < batch && sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

// keyedMap abstracts the containers the driver times.
type keyedMap interface {
	insertLine(line string) error
	findLine(line string) bool
	len() int
}

type int64Map struct{ m *rhood.Map[int64, int64] }

func (t int64Map) insertLine(line string) error {
	k, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return err
	}
	_, err = t.m.Insert(k, k)
	return err
}

func (t int64Map) findLine(line string) bool {
	k, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return false
	}
	return t.m.Contains(k)
}

func (t int64Map) len() int { return t.m.Len() }

type stringMap struct{ m *rhood.Map[string, string] }

func (t stringMap) insertLine(line string) error {
	_, err := t.m.Insert(line, line)
	return err
}

func (t stringMap) findLine(line string) bool { return t.m.Contains(line) }

func (t stringMap) len() int { return t.m.Len() }

type int64NodeMap struct{ m *rhood.NodeMap[int64, int64] }

func (t int64NodeMap) insertLine(line string) error {
	k, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return err
	}
	_, err = t.m.Insert(k, k)
	return err
}

func (t int64NodeMap) findLine(line string) bool {
	k, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return false
	}
	return t.m.Contains(k)
}

func (t int64NodeMap) len() int { return t.m.Len() }

// newContainer builds the container under test. A region-backed run requires
// int64 keys: strings cannot live in a region.
func newContainer(cfg benchConfig) (keyedMap, func(), error) {
	if cfg.Store == "" {
		if cfg.Keys == "int64" {
			m, err := rhood.NewMap[int64, int64]()
			return int64Map{m}, func() {}, err
		}
		m, err := rhood.NewMap[string, string]()
		return stringMap{m}, func() {}, err
	}

	if cfg.Keys != "int64" {
		return nil, nil, fmt.Errorf("region-backed runs support int64 keys only")
	}
	buf, closeBuf, err := mapFile(cfg.Store, cfg.StoreSize)
	if err != nil {
		return nil, nil, err
	}
	region, err := mem.InitRegion(buf)
	if err != nil {
		closeBuf()
		return nil, nil, err
	}
	m, err := rhood.NewNodeMap[int64, int64](
		rhood.WithStore(region),
		rhood.WithHasher(rhood.Int64Hasher(cfg.Seed)),
	)
	if err != nil {
		closeBuf()
		return nil, nil, err
	}
	region.SetRoot(m.Root())
	return int64NodeMap{m}, closeBuf, nil
}

func timedRun(cfg benchConfig, path string, apply func(keyedMap, []string) error) (float64, error) {
	c, done, err := newContainer(cfg)
	if err != nil {
		return 0, err
	}
	defer done()

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	batch := make([]string, 0, cfg.Batch)
	var elapsed float64
	for {
		batch = readBatch(sc, cfg.Batch, batch)
		if len(batch) == 0 {
			break
		}
		start := time.Now()
		if err := apply(c, batch); err != nil {
			return 0, err
		}
		elapsed += time.Since(start).Seconds()
	}
	return elapsed, sc.Err()
}

func insertAll(c keyedMap, lines []string) error {
	for _, l := range lines {
		if err := c.insertLine(l); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := loadConfig()
	if err != nil {
		flag.Usage()
		log.Fatalw("invalid options", "error", err)
	}

	var s stats
	switch cfg.Op {
	case "insert":
		s, err = runBenchmark(cfg.Repeats, func() (float64, error) {
			return timedRun(cfg, cfg.InsertIn, insertAll)
		})
	case "find":
		s, err = runBenchmark(cfg.Repeats, func() (float64, error) {
			c, done, err := newContainer(cfg)
			if err != nil {
				return 0, err
			}
			defer done()
			// Build untimed, then time the finds.
			f, err := os.Open(cfg.InsertIn)
			if err != nil {
				return 0, err
			}
			sc := bufio.NewScanner(f)
			for sc.Scan() {
				if err := c.insertLine(sc.Text()); err != nil {
					f.Close()
					return 0, err
				}
			}
			f.Close()
			if err := sc.Err(); err != nil {
				return 0, err
			}

			ff, err := os.Open(cfg.FindIn)
			if err != nil {
				return 0, err
			}
			defer ff.Close()
			fsc := bufio.NewScanner(ff)
			hits := 0
			start := time.Now()
			for fsc.Scan() {
				if c.findLine(fsc.Text()) {
					hits++
				}
			}
			elapsed := time.Since(start).Seconds()
			if err := fsc.Err(); err != nil {
				return 0, err
			}
			log.Infow("find pass", "hits", hits, "table_size", c.len())
			return elapsed, nil
		})
	}
	if err != nil {
		log.Fatalw("benchmark failed", "error", err)
	}

	log.Infow("benchmark done",
		"op", cfg.Op,
		"keys", cfg.Keys,
		"store", cfg.Store,
		"repeats", cfg.Repeats,
		"min_s", s.Min,
		"mean_s", s.Mean,
		"max_s", s.Max,
		"stddev_s", s.StdDev,
	)
}
