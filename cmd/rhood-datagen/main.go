// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rhood-datagen writes benchmark datasets: newline-delimited key files for
// insert benchmarks, paired insert/find files with a configurable hit rate,
// and mixed operation files where each line is a key and an insert/erase
// flag. Key shards are generated in parallel and written in shard order, so
// output is deterministic for a given seed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

const charList = "0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz"

type options struct {
	mode       string
	keyType    string
	numInserts uint64
	numFinds   uint64
	hitRate    float64
	dupRatio   float64
	eraseRatio float64
	strLen     uint
	seed       uint64
	workers    int
	insertOut  string
	findOut    string
}

func parseOptions() (options, error) {
	var o options
	flag.StringVar(&o.mode, "mode", "insert", "dataset kind: insert, find, or mixed")
	flag.StringVar(&o.keyType, "keys", "int64", "key type: int64 or string")
	flag.Uint64Var(&o.numInserts, "n", 0, "number of insert keys (required)")
	flag.Uint64Var(&o.numFinds, "finds", 0, "number of find keys (find mode)")
	flag.Float64Var(&o.hitRate, "hit-rate", 0.5, "fraction of find keys drawn from the insert set")
	flag.Float64Var(&o.dupRatio, "dup-ratio", 0, "fraction of duplicate insert keys")
	flag.Float64Var(&o.eraseRatio, "erase-ratio", 0.1, "fraction of erase operations (mixed mode)")
	flag.UintVar(&o.strLen, "strlen", 32, "length of string keys")
	flag.Uint64Var(&o.seed, "seed", 123, "random seed")
	flag.IntVar(&o.workers, "workers", 4, "parallel generator workers")
	flag.StringVar(&o.insertOut, "out", "inserts.txt", "insert dataset output path")
	flag.StringVar(&o.findOut, "find-out", "finds.txt", "find dataset output path (find mode)")
	flag.Parse()

	if o.numInserts == 0 {
		return o, fmt.Errorf("-n is required")
	}
	if o.keyType != "int64" && o.keyType != "string" {
		return o, fmt.Errorf("unknown key type %q", o.keyType)
	}
	switch o.mode {
	case "insert", "mixed":
	case "find":
		if o.numFinds == 0 {
			return o, fmt.Errorf("-finds is required in find mode")
		}
		if o.hitRate < 0 || o.hitRate > 1 {
			return o, fmt.Errorf("-hit-rate must be in [0, 1]")
		}
	default:
		return o, fmt.Errorf("unknown mode %q", o.mode)
	}
	return o, nil
}

func randomString(n uint, rng *rand.Rand) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = charList[rng.Intn(len(charList))]
	}
	return string(b)
}

// genKeys produces n keys in shuffled order, a dupRatio fraction of which
// repeat other keys in the result.
// Shards run on the pool; each shard derives its rng from the seed and the
// shard index so the result does not depend on scheduling.
func genKeys(o options, n uint64, pool *ants.Pool) ([]string, error) {
	keys := make([]string, n)
	numOriginal := uint64(float64(n) * (1.0 - o.dupRatio))
	if numOriginal == 0 {
		numOriginal = n
	}

	const shardSize = 1 << 16
	var wg sync.WaitGroup
	for shard, lo := 0, uint64(0); lo < numOriginal; shard, lo = shard+1, lo+shardSize {
		hi := lo + shardSize
		if hi > numOriginal {
			hi = numOriginal
		}
		shard, lo, hi := shard, lo, hi
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(o.seed + uint64(shard)))
			for i := lo; i < hi; i++ {
				if o.keyType == "int64" {
					keys[i] = fmt.Sprintf("%d", int64(rng.Uint64()))
				} else {
					keys[i] = randomString(o.strLen, rng)
				}
			}
		})
		if err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()

	rng := rand.New(rand.NewSource(o.seed ^ 0x9e3779b97f4a7c15))
	for i := numOriginal; i < n; i++ {
		keys[i] = keys[rng.Uint64n(numOriginal)]
	}
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	return keys, nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// genFinds draws find keys from the insert set at the hit rate and fills the
// rest with fresh keys.
func genFinds(o options, inserts []string, pool *ants.Pool) ([]string, error) {
	misses := options{
		keyType:  o.keyType,
		strLen:   o.strLen,
		seed:     o.seed ^ 0x5bf03635,
		dupRatio: 0,
	}
	fresh, err := genKeys(misses, o.numFinds, pool)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(o.seed + 1))
	finds := make([]string, o.numFinds)
	for i := range finds {
		if rng.Float64() < o.hitRate {
			finds[i] = inserts[rng.Uint64n(uint64(len(inserts)))]
		} else {
			finds[i] = fresh[i]
		}
	}
	return finds, nil
}

// genMixed tags each key with 1 for insert or 0 for erase; erased keys are
// drawn from the prefix already emitted.
func genMixed(o options, keys []string) []string {
	rng := rand.New(rand.NewSource(o.seed + 2))
	lines := make([]string, len(keys))
	for i, k := range keys {
		if i > 0 && rng.Float64() < o.eraseRatio {
			lines[i] = keys[rng.Intn(i)] + " 0"
		} else {
			lines[i] = k + " 1"
		}
	}
	return lines
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	o, err := parseOptions()
	if err != nil {
		flag.Usage()
		log.Fatalw("invalid options", "error", err)
	}

	pool, err := ants.NewPool(o.workers)
	if err != nil {
		log.Fatalw("create worker pool", "error", err)
	}
	defer pool.Release()

	inserts, err := genKeys(o, o.numInserts, pool)
	if err != nil {
		log.Fatalw("generate insert keys", "error", err)
	}

	switch o.mode {
	case "insert":
		if err := writeLines(o.insertOut, inserts); err != nil {
			log.Fatalw("write insert dataset", "error", err)
		}
	case "find":
		finds, err := genFinds(o, inserts, pool)
		if err != nil {
			log.Fatalw("generate find keys", "error", err)
		}
		if err := writeLines(o.insertOut, inserts); err != nil {
			log.Fatalw("write insert dataset", "error", err)
		}
		if err := writeLines(o.findOut, finds); err != nil {
			log.Fatalw("write find dataset", "error", err)
		}
	case "mixed":
		if err := writeLines(o.insertOut, genMixed(o, inserts)); err != nil {
			log.Fatalw("write mixed dataset", "error", err)
		}
	}

	log.Infow("dataset written",
		"mode", o.mode,
		"keys", o.keyType,
		"inserts", o.numInserts,
		"finds", o.numFinds,
		"out", o.insertOut,
	)
}
