package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dalfonso89/openexchangerates/internal/config"
	"github.com/dalfonso89/openexchangerates/internal/logger"
	"github.com/dalfonso89/openexchangerates/internal/platform"
	"github.com/dalfonso89/openexchangerates/openexchangerates"
)

// LoadTestConfig holds configuration for load testing
type LoadTestConfig struct {
	ConcurrentUsers int
	RequestsPerUser int
	TestDuration    time.Duration
	RampUpDuration  time.Duration
	ThinkTime       time.Duration
	Base            string
	Symbols         []string
}

// LoadTestResult holds the result of a single LatestRates call
type LoadTestResult struct {
	UserID    int
	RequestID int
	Duration  time.Duration
	Err       error
	Timestamp time.Time
}

// LoadTestSummary holds the summary of load test results
type LoadTestSummary struct {
	TotalRequests       int
	SuccessfulRequests  int
	FailedRequests      int
	FailuresByType      map[openexchangerates.ErrorType]int
	TotalDuration       time.Duration
	AverageResponseTime time.Duration
	MinResponseTime     time.Duration
	MaxResponseTime     time.Duration
	RequestsPerSecond   float64
	ErrorRate           float64
	ResponseTime95th    time.Duration
	ResponseTime99th    time.Duration
}

func main() {
	ctx, stop := platform.NewShutdownContext(context.Background())
	defer stop()

	if err := newLoadTestCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newLoadTestCommand() *cobra.Command {
	var loadConfig LoadTestConfig
	var symbols string

	cmd := &cobra.Command{
		Use:          "loadtest",
		Short:        "Call LatestRates concurrently through one shared client",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadConfig.ConcurrentUsers <= 0 || loadConfig.RequestsPerUser <= 0 {
				return fmt.Errorf("users and requests must be positive")
			}
			if symbols != "" {
				loadConfig.Symbols = strings.Split(symbols, ",")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			client, err := openexchangerates.New(cfg.AppID,
				openexchangerates.WithBaseURL(cfg.BaseURL),
				openexchangerates.WithTimeout(cfg.Timeout),
				openexchangerates.WithLogger(logger.NewWithOutput(cfg.LogLevel, cmd.ErrOrStderr())),
			)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Starting load test against %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "Concurrent Users: %d\n", loadConfig.ConcurrentUsers)
			fmt.Fprintf(out, "Requests per User: %d\n", loadConfig.RequestsPerUser)
			fmt.Fprintf(out, "Ramp-up Duration: %v\n", loadConfig.RampUpDuration)
			fmt.Fprintf(out, "Think Time: %v\n", loadConfig.ThinkTime)
			fmt.Fprintf(out, "Test Duration: %v\n\n", loadConfig.TestDuration)

			summary := runLoadTest(cmd.Context(), client, loadConfig)
			printSummary(out, summary)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&loadConfig.ConcurrentUsers, "users", 10, "Number of concurrent users")
	flags.IntVar(&loadConfig.RequestsPerUser, "requests", 100, "Number of requests per user")
	flags.DurationVar(&loadConfig.TestDuration, "duration", 0, "Test duration (0 = run until all requests complete)")
	flags.DurationVar(&loadConfig.RampUpDuration, "rampup", 5*time.Second, "Ramp-up duration")
	flags.DurationVar(&loadConfig.ThinkTime, "think", 100*time.Millisecond, "Think time between requests")
	flags.StringVar(&loadConfig.Base, "base", "", "Base currency")
	flags.StringVar(&symbols, "symbols", "", "Comma separated currency codes")
	return cmd
}

// ratesClient is the subset of the client the load test drives
type ratesClient interface {
	LatestRates(ctx context.Context, options openexchangerates.RatesOptions) (*openexchangerates.RatesResponse, error)
}

func runLoadTest(ctx context.Context, client ratesClient, loadConfig LoadTestConfig) LoadTestSummary {
	results := make(chan LoadTestResult, loadConfig.ConcurrentUsers*loadConfig.RequestsPerUser)

	if loadConfig.TestDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, loadConfig.TestDuration)
		defer cancel()
	}

	options := openexchangerates.RatesOptions{Base: loadConfig.Base, Symbols: loadConfig.Symbols}
	rampUpDelay := loadConfig.RampUpDuration / time.Duration(loadConfig.ConcurrentUsers)
	startTime := time.Now()

	// Failures are recorded as results, so no user ever cancels the group
	var group errgroup.Group
	for userID := 0; userID < loadConfig.ConcurrentUsers; userID++ {
		uid := userID
		group.Go(func() error {
			if !sleep(ctx, time.Duration(uid)*rampUpDelay) {
				return nil
			}

			for reqID := 0; reqID < loadConfig.RequestsPerUser; reqID++ {
				if ctx.Err() != nil {
					return nil
				}

				start := time.Now()
				_, err := client.LatestRates(ctx, options)
				results <- LoadTestResult{
					UserID:    uid,
					RequestID: reqID,
					Duration:  time.Since(start),
					Err:       err,
					Timestamp: start,
				}

				if loadConfig.ThinkTime > 0 && !sleep(ctx, loadConfig.ThinkTime) {
					return nil
				}
			}
			return nil
		})
	}

	_ = group.Wait()
	close(results)

	return processResults(results, time.Since(startTime))
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func processResults(results <-chan LoadTestResult, totalDuration time.Duration) LoadTestSummary {
	summary := LoadTestSummary{
		TotalDuration:  totalDuration,
		FailuresByType: make(map[openexchangerates.ErrorType]int),
	}
	var responseTimes []time.Duration

	for result := range results {
		summary.TotalRequests++
		responseTimes = append(responseTimes, result.Duration)

		if result.Err == nil {
			summary.SuccessfulRequests++
		} else {
			summary.FailedRequests++
			summary.FailuresByType[openexchangerates.TypeOf(result.Err)]++
		}
	}

	if summary.TotalRequests == 0 {
		return summary
	}

	summary.ErrorRate = float64(summary.FailedRequests) / float64(summary.TotalRequests) * 100
	if totalDuration > 0 {
		summary.RequestsPerSecond = float64(summary.TotalRequests) / totalDuration.Seconds()
	}

	sort.Slice(responseTimes, func(i, j int) bool { return responseTimes[i] < responseTimes[j] })

	var totalResponseTime time.Duration
	for _, rt := range responseTimes {
		totalResponseTime += rt
	}
	summary.MinResponseTime = responseTimes[0]
	summary.MaxResponseTime = responseTimes[len(responseTimes)-1]
	summary.AverageResponseTime = totalResponseTime / time.Duration(len(responseTimes))
	summary.ResponseTime95th = percentile(responseTimes, 95)
	summary.ResponseTime99th = percentile(responseTimes, 99)

	return summary
}

// percentile expects sorted input
func percentile(times []time.Duration, p int) time.Duration {
	if len(times) == 0 {
		return 0
	}
	index := int(float64(len(times)) * float64(p) / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}
	return times[index]
}

func printSummary(out io.Writer, summary LoadTestSummary) {
	fmt.Fprintln(out, "=== Load Test Results ===")
	fmt.Fprintf(out, "Total Requests: %d\n", summary.TotalRequests)
	if summary.TotalRequests == 0 {
		return
	}
	fmt.Fprintf(out, "Successful Requests: %d (%.2f%%)\n", summary.SuccessfulRequests,
		float64(summary.SuccessfulRequests)/float64(summary.TotalRequests)*100)
	fmt.Fprintf(out, "Failed Requests: %d (%.2f%%)\n", summary.FailedRequests, summary.ErrorRate)
	for errorType, count := range summary.FailuresByType {
		fmt.Fprintf(out, "  %s: %d\n", errorType, count)
	}
	fmt.Fprintf(out, "Total Duration: %v\n", summary.TotalDuration)
	fmt.Fprintf(out, "Requests per Second: %.2f\n", summary.RequestsPerSecond)
	fmt.Fprintf(out, "Average Response Time: %v\n", summary.AverageResponseTime)
	fmt.Fprintf(out, "Min Response Time: %v\n", summary.MinResponseTime)
	fmt.Fprintf(out, "Max Response Time: %v\n", summary.MaxResponseTime)
	fmt.Fprintf(out, "95th Percentile Response Time: %v\n", summary.ResponseTime95th)
	fmt.Fprintf(out, "99th Percentile Response Time: %v\n", summary.ResponseTime99th)

	fmt.Fprintln(out, "\n=== Performance Assessment ===")
	if summary.ErrorRate > 5.0 {
		fmt.Fprintf(out, "High error rate: %.2f%% (target: < 5%%)\n", summary.ErrorRate)
	} else {
		fmt.Fprintf(out, "Error rate: %.2f%% (good)\n", summary.ErrorRate)
	}
	if summary.AverageResponseTime > 2*time.Second {
		fmt.Fprintf(out, "High average response time: %v (target: < 2s)\n", summary.AverageResponseTime)
	} else {
		fmt.Fprintf(out, "Average response time: %v (good)\n", summary.AverageResponseTime)
	}
}
