package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/config"
	"github.com/xtding233/honing-forecast/internal/payload"
	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/service"
	"github.com/xtding233/honing-forecast/internal/solver"
	"github.com/xtding233/honing-forecast/internal/tail"
)

const (
	exitOK    = 0
	exitUsage = 1
	exitIO    = 2
)

// Entry is the outcome of one payload file.
type Entry struct {
	File        string              `json:"file"`
	Mode        string              `json:"mode"`
	Seconds     float64             `json:"seconds"`
	Chance      *float64            `json:"chance,omitempty"`
	Error       string              `json:"error,omitempty"`
	Performance *solver.Performance `json:"performance,omitempty"`
}

// Report aggregates every entry; Total recomputes the ratios over the summed
// counters.
type Report struct {
	Payloads int                `json:"payloads"`
	Failed   int                `json:"failed"`
	Seconds  float64            `json:"seconds"`
	Total    solver.Performance `json:"total"`
	Entries  []Entry            `json:"entries"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arena", flag.ContinueOnError)
	fs.SetOutput(stderr)
	workers := fs.Int("workers", 1, "payloads solved in parallel")
	rulesDir := fs.String("rules", "", "rules directory (default: embedded rules)")
	profile := fs.String("profile", "", "rules profile")
	quiet := fs.Bool("quiet", false, "hide the progress bar")
	level := fs.String("log-level", "warn", "log level")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: arena [flags] <path_to_payloads>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 || *workers < 1 {
		if err == nil {
			fs.Usage()
		}
		return exitUsage
	}
	if err := config.SetupLogging(*level, "console", stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	files, err := payloadFiles(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitIO
	}
	bodies := make([][]byte, len(files))
	for i, f := range files {
		if bodies[i], err = os.ReadFile(f); err != nil {
			fmt.Fprintln(stderr, err)
			return exitIO
		}
	}

	svc := service.New(rules.NewLoader(*rulesDir), nil, *profile)
	var bar *pb.ProgressBar
	if !*quiet {
		bar = pb.New(len(files))
		bar.SetWriter(stderr)
		bar.Set(pb.CleanOnFinish, true)
		bar.Start()
	}
	start := time.Now()
	entries := solveAll(context.Background(), svc, files, bodies, *workers, func() {
		if bar != nil {
			bar.Increment()
		}
	})
	if bar != nil {
		bar.Finish()
	}

	rep := aggregate(entries)
	rep.Seconds = time.Since(start).Seconds()
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintln(stderr, err)
		return exitIO
	}
	return exitOK
}

// payloadFiles lists the *.json files in dir in name order.
func payloadFiles(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, de := range des {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, de.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func solveAll(ctx context.Context, svc *service.Service, files []string, bodies [][]byte, workers int, done func()) []Entry {
	entries := make([]Entry, len(files))
	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entries[i] = solveOne(ctx, svc, files[i], bodies[i])
				mu.Lock()
				done()
				mu.Unlock()
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return entries
}

func solveOne(ctx context.Context, svc *service.Service, file string, body []byte) Entry {
	e := Entry{File: filepath.Base(file)}
	start := time.Now()

	req, err := payload.Parse(body)
	if err != nil {
		e.Error = err.Error()
		return e
	}
	e.Mode = string(req.Mode)
	reply, err := svc.Solve(ctx, req, nil)
	if err != nil {
		log.Warn().Err(err).Str("file", e.File).Msg("solve failed")
		e.Error = err.Error()
		e.Seconds = time.Since(start).Seconds()
		return e
	}
	switch r := reply.(type) {
	case solver.ChanceResult:
		e.Chance, e.Performance = &r.Chance, &r.Performance
	case payload.CostReply:
		e.Chance, e.Performance = &r.RealizedChance, &r.Performance
	case solver.HistogramResult:
		e.Chance = &r.Chance
	}
	e.Seconds = time.Since(start).Seconds()
	return e
}

func aggregate(entries []Entry) Report {
	rep := Report{Payloads: len(entries), Entries: entries}
	var sum tail.Counters
	iters, restarts := 0, 0
	for _, e := range entries {
		if e.Error != "" {
			rep.Failed++
		}
		if e.Performance == nil {
			continue
		}
		sum.Add(e.Performance.Counters)
		iters += e.Performance.Iterations
		restarts += e.Performance.Restarts
	}
	rep.Total = solver.NewPerformance(sum, nil)
	rep.Total.Iterations, rep.Total.Restarts = iters, restarts
	return rep
}
