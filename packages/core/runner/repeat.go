package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

const (
	// latency histogram range in microseconds: 1us to 60s
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// RepeatOptions controls Repeat.
type RepeatOptions struct {
	Count    int
	Interval time.Duration
}

// RepeatSummary aggregates a repeat run. Latencies cover successful sends
// only.
type RepeatSummary struct {
	Results      []*Result
	Errors       []error
	Total        int
	Succeeded    int
	Failed       int
	Passed       int
	StatusCounts map[int]int
	Duration     time.Duration
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration
	P95          time.Duration
	P99          time.Duration
}

// latencies wraps the histogram the summary percentiles come from.
type latencies struct {
	histogram *hdrhistogram.Histogram
}

func newLatencies() *latencies {
	return &latencies{histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)}
}

func (l *latencies) record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = l.histogram.RecordValue(us)
}

func (l *latencies) fill(s *RepeatSummary) {
	if l.histogram.TotalCount() == 0 {
		return
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	s.Min = us(l.histogram.Min())
	s.Max = us(l.histogram.Max())
	s.Mean = time.Duration(l.histogram.Mean() * float64(time.Microsecond))
	s.P50 = us(l.histogram.ValueAtQuantile(50))
	s.P95 = us(l.histogram.ValueAtQuantile(95))
	s.P99 = us(l.histogram.ValueAtQuantile(99))
}

// Repeat sends raw Count times in sequence, at most once per Interval.
// Placeholders are resolved once, so a fill-vars prompt happens once. A
// cancelled context ends the run and returns what was collected.
func (r *Runner) Repeat(ctx context.Context, raw *http.Request, ropts RepeatOptions, opts *SendOptions) (*RepeatSummary, error) {
	if ropts.Count < 1 {
		return nil, fmt.Errorf("repeat count must be at least 1, got %d", ropts.Count)
	}
	if opts == nil {
		opts = &SendOptions{}
	}

	p, err := r.Prepare(raw, opts)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if ropts.Interval > 0 {
		limit = rate.Every(ropts.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	summary := &RepeatSummary{StatusCounts: map[int]int{}}
	lat := newLatencies()
	start := time.Now()

	var runErr error
	for i := 0; i < ropts.Count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}

		summary.Total++
		result, err := r.Execute(ctx, p, opts)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err)
			continue
		}

		summary.Succeeded++
		summary.Results = append(summary.Results, result)
		summary.StatusCounts[result.Response.StatusCode]++
		if result.Passed() {
			summary.Passed++
		}
		lat.record(result.Response.Duration)
	}

	summary.Duration = time.Since(start)
	lat.fill(summary)
	return summary, runErr
}
