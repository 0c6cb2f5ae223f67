package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"

	"github.com/imazen/mozjpeg-oxide/mozjpeg"
)

// randSource feeds a layout with pseudorandom coefficient blocks, with the
// energy concentrated in the low frequencies.
type randSource struct {
	layout *mozjpeg.ComponentLayout
	rng    *rand.Rand
	cmp    int
	x, y   uint32
}

func newRandSource(layout *mozjpeg.ComponentLayout, seed int64) *randSource {
	return &randSource{layout: layout, rng: rand.New(rand.NewSource(seed))}
}

func (s *randSource) Next() (int, uint32, uint32, [64]int16, error) {
	for s.cmp < len(s.layout.Components) {
		ci := &s.layout.Components[s.cmp]
		if s.y >= ci.Bcv {
			s.cmp++
			s.x, s.y = 0, 0
			continue
		}
		cmp, x, y := s.cmp, s.x, s.y

		var raster [64]int16
		raster[0] = int16(s.rng.Intn(2048) - 1024)
		for i := 1; i < 64; i++ {
			switch {
			case i < 10:
				raster[i] = int16(s.rng.Intn(256) - 128)
			case i < 32:
				if s.rng.Intn(3) == 0 {
					raster[i] = int16(s.rng.Intn(64) - 32)
				}
			default:
				if s.rng.Intn(12) == 0 {
					raster[i] = int16(s.rng.Intn(16) - 8)
				}
			}
		}

		s.x++
		if s.x >= ci.Bch {
			s.x = 0
			s.y++
		}
		return cmp, x, y, raster, nil
	}
	return 0, 0, 0, [64]int16{}, io.EOF
}

type runResult struct {
	seed            int64
	sequentialSize  int
	progressiveSize int
	scanCount       int
	trialsRun       int
	symbolsCoded    uint64
	errMsg          string
}

func main() {
	width := flag.Uint("width", 256, "Image width in pixels")
	height := flag.Uint("height", 256, "Image height in pixels")
	quality := flag.Int("quality", 75, "Quality 1..100")
	sampling := flag.String("sampling", "420", "Chroma sampling: 444, 420, 422 or gray")
	seeds := flag.Int("seeds", 16, "Number of random images to encode")
	workers := flag.Int("workers", 8, "Number of parallel workers")
	exhaustive := flag.Bool("exhaustive", false, "Evaluate every approximation depth")
	verbose := flag.Bool("v", false, "Per-image scan breakdown")
	flag.Parse()

	var factors []mozjpeg.SamplingFactor
	switch *sampling {
	case "444":
		factors = mozjpeg.Sampling444
	case "420":
		factors = mozjpeg.Sampling420
	case "422":
		factors = mozjpeg.Sampling422
	case "gray":
		factors = mozjpeg.SamplingGray
	default:
		fmt.Fprintf(os.Stderr, "Unknown sampling %q\n", *sampling)
		os.Exit(1)
	}

	fmt.Printf("Encoding %d random %dx%d images (quality %d, %s) with %d workers...\n",
		*seeds, *width, *height, *quality, *sampling, *workers)

	var processed, failed int64
	var totalSequential, totalProgressive, totalTrials, totalSymbols int64
	var mu sync.Mutex
	var failures []string

	jobs := make(chan int64, *seeds)
	var wg sync.WaitGroup

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range jobs {
				result := encodeOne(seed, uint32(*width), uint32(*height), *quality, factors, *exhaustive, *verbose)
				atomic.AddInt64(&processed, 1)

				if result.errMsg != "" {
					atomic.AddInt64(&failed, 1)
					mu.Lock()
					failures = append(failures, result.errMsg)
					mu.Unlock()
					continue
				}

				atomic.AddInt64(&totalSequential, int64(result.sequentialSize))
				atomic.AddInt64(&totalProgressive, int64(result.progressiveSize))
				atomic.AddInt64(&totalTrials, int64(result.trialsRun))
				atomic.AddInt64(&totalSymbols, int64(result.symbolsCoded))
			}
		}()
	}

	for seed := int64(1); seed <= int64(*seeds); seed++ {
		jobs <- seed
	}
	close(jobs)
	wg.Wait()

	fmt.Println()
	ok := processed - failed
	fmt.Printf("Results: %d encoded, %d failed\n", ok, failed)
	if ok > 0 && totalSequential > 0 {
		ratio := float64(totalProgressive) / float64(totalSequential)
		fmt.Printf("Progressive/sequential entropy ratio: %.4f (%d / %d bytes)\n",
			ratio, totalProgressive, totalSequential)
		fmt.Printf("Average trials per image: %.1f\n", float64(totalTrials)/float64(ok))
		fmt.Printf("Huffman symbols coded per image: %.0f\n", float64(totalSymbols)/float64(ok))
	}

	if len(failures) > 0 && len(failures) <= 20 {
		fmt.Println("\nFailed runs:")
		for _, f := range failures {
			fmt.Println("  " + f)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func encodeOne(seed int64, width, height uint32, quality int, factors []mozjpeg.SamplingFactor, exhaustive, verbose bool) runResult {
	result := runResult{seed: seed}

	var policy mozjpeg.DepthPolicy
	if exhaustive {
		policy = mozjpeg.ExhaustiveDepthPolicy{}
	}

	sequentialCfg := mozjpeg.Config{
		Width:    width,
		Height:   height,
		Sampling: factors,
		Quality:  quality,
		Trellis:  mozjpeg.DefaultTrellisOptions(),
	}
	progressiveCfg := sequentialCfg
	progressiveCfg.Progressive = true
	progressiveCfg.DepthPolicy = policy

	seqSize, _, err := encodeWith(sequentialCfg, seed)
	if err != nil {
		result.errMsg = fmt.Sprintf("seed %d: sequential: %v", seed, err)
		return result
	}

	progSize, progResult, err := encodeWith(progressiveCfg, seed)
	if err != nil {
		result.errMsg = fmt.Sprintf("seed %d: progressive: %v", seed, err)
		return result
	}

	result.sequentialSize = seqSize
	result.progressiveSize = progSize
	result.scanCount = progResult.ScanCount
	result.trialsRun = progResult.TrialsRun
	result.symbolsCoded = progResult.Stats.TotalSymbols()

	if verbose {
		fmt.Printf("seed %d: sequential %d bytes, progressive %d bytes in %d scans (%d trials, %d symbols)\n",
			seed, seqSize, progSize, progResult.ScanCount, progResult.TrialsRun, progResult.Stats.TotalSymbols())
		for i, sc := range progResult.Scans {
			fmt.Printf("  scan %2d: components %v band %2d..%2d approx %d/%d\n",
				i, sc.Components, sc.Ss, sc.Se, sc.Ah, sc.Al)
		}
	}

	return result
}

func encodeWith(cfg mozjpeg.Config, seed int64) (int, *mozjpeg.EncodeResult, error) {
	enc, err := mozjpeg.NewEncoder(cfg)
	if err != nil {
		return 0, nil, err
	}
	result, err := enc.Encode(newRandSource(enc.Layout(), seed), io.Discard)
	if err != nil {
		return 0, nil, err
	}
	return result.EntropySize, result, nil
}
