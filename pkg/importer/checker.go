package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const checkWorkers = 4

// CheckReport summarizes one CheckAll pass. Local sources are not counted.
type CheckReport struct {
	OK      int
	Failed  int
	Skipped int
}

// Checker probes the remote URL of every stored source and records whether
// it is reachable, so a dead upstream shows up before the next import.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// NewChecker creates a Checker that runs every interval. A nil logger
// uses slog.Default.
func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start checks immediately, then every interval until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll probes every remote source with a small worker pool and records
// each result.
func (c *Checker) CheckAll(ctx context.Context) CheckReport {
	var report CheckReport
	sources, err := c.sources.List(ctx)
	if err != nil {
		c.logger.Error("source check: list failed", "error", err)
		return report
	}

	jobs := make(chan Source)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for range checkWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				status, checkErr := c.probe(ctx, src.SourceURL)
				if err := c.sources.RecordCheck(ctx, src.AdapterID, status, checkErr); err != nil {
					c.logger.Error("source check: record failed", "adapter", src.AdapterID, "error", err)
				}

				mu.Lock()
				if checkErr == nil && status >= 200 && status < 400 {
					report.OK++
				} else {
					report.Failed++
					c.logger.Warn("lexicon source unreachable",
						"adapter", src.AdapterID,
						"lexicon", src.LexiconID,
						"url", src.SourceURL,
						"status", status,
						"error", checkErr,
					)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, src := range sources {
		if !isRemote(src.SourceURL) {
			report.Skipped++
			continue
		}
		select {
		case jobs <- src:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	c.logger.Info("source check complete", "ok", report.OK, "failed", report.Failed, "skipped", report.Skipped)
	return report
}

// probe sends HEAD, falling back to a one-byte ranged GET for servers that
// refuse HEAD. On network error the status is 0.
func (c *Checker) probe(ctx context.Context, url string) (int, error) {
	status, err := c.do(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.do(ctx, http.MethodGet, url)
	}
	if err == nil && status >= 400 {
		err = fmt.Errorf("HTTP %d", status)
	}
	return status, err
}

func (c *Checker) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// isRemote reports whether url is checked over HTTP. Local paths are not.
func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
