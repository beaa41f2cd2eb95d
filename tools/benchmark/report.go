package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ScenarioResult holds the latency distribution of one scenario
type ScenarioResult struct {
	Name     string
	Runs     int
	Failures int
	Elapsed  time.Duration
	Min      time.Duration
	Max      time.Duration
	Mean     time.Duration
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
}

// Report is the output of a benchmark run
type Report struct {
	Config       *Config
	SeedDuration time.Duration
	Results      []ScenarioResult
}

func summarize(name string, latencies []time.Duration, failures int, elapsed time.Duration) ScenarioResult {
	result := ScenarioResult{
		Name:     name,
		Runs:     len(latencies),
		Failures: failures,
		Elapsed:  elapsed,
	}
	if len(latencies) == 0 {
		return result
	}

	var total time.Duration
	result.Min = latencies[0]
	for _, l := range latencies {
		total += l
		if l < result.Min {
			result.Min = l
		}
		if l > result.Max {
			result.Max = l
		}
	}
	result.Mean = total / time.Duration(len(latencies))
	result.P50 = percentile(latencies, 50)
	result.P95 = percentile(latencies, 95)
	result.P99 = percentile(latencies, 99)
	return result
}

func printReport(report *Report) {
	store := "memory"
	if report.Config.DSN != "" {
		store = "postgres"
	}
	fmt.Printf("Store:        %s\n", store)
	fmt.Printf("Stamps:       %d\n", report.Config.Stamps)
	fmt.Printf("Collections:  %d\n", report.Config.Collections)
	fmt.Printf("Concurrency:  %d\n", report.Config.Concurrency)
	fmt.Printf("Seed time:    %s\n\n", formatDuration(report.SeedDuration))

	fmt.Printf("%-28s %8s %10s %10s %10s %10s %10s %10s\n",
		"SCENARIO", "RUNS", "ERRORS", "RATE", "MEAN", "P50", "P95", "P99")
	fmt.Println(strings.Repeat("-", 104))
	for _, r := range report.Results {
		fmt.Printf("%-28s %8d %10s %10s %10s %10s %10s %10s\n",
			r.Name,
			r.Runs,
			percentageString(r.Failures, r.Runs),
			formatRate(r.Runs, r.Elapsed),
			formatDuration(r.Mean),
			formatDuration(r.P50),
			formatDuration(r.P95),
			formatDuration(r.P99),
		)
	}
}

func writeMarkdownReport(filepath string, report *Report) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	// Write header
	_, _ = fmt.Fprintf(file, "# Read Model Benchmark Report\n\n")
	_, _ = fmt.Fprintf(file, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	_, _ = fmt.Fprintf(file, "## Fixture\n\n")
	_, _ = fmt.Fprintf(file, "| Property | Value |\n")
	_, _ = fmt.Fprintf(file, "|----------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Stamps** | %d |\n", report.Config.Stamps)
	_, _ = fmt.Fprintf(file, "| **Collections** | %d |\n", report.Config.Collections)
	_, _ = fmt.Fprintf(file, "| **Users** | %d |\n", report.Config.Users)
	_, _ = fmt.Fprintf(file, "| **Concurrency** | %d |\n", report.Config.Concurrency)
	_, _ = fmt.Fprintf(file, "| **Seed Time** | %s |\n", formatDuration(report.SeedDuration))
	_, _ = fmt.Fprintf(file, "\n")

	if len(report.Results) == 0 {
		_, _ = fmt.Fprintf(file, "*No scenarios ran.*\n")
		return nil
	}

	_, _ = fmt.Fprintf(file, "## Scenarios\n\n")
	_, _ = fmt.Fprintf(file, "| Scenario | Runs | Errors | Rate | Min | Mean | P50 | P95 | P99 | Max |\n")
	_, _ = fmt.Fprintf(file, "|----------|------|--------|------|-----|------|-----|-----|-----|-----|\n")
	for _, r := range report.Results {
		_, _ = fmt.Fprintf(file, "| %s | %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.Name,
			r.Runs,
			percentageString(r.Failures, r.Runs),
			formatRate(r.Runs, r.Elapsed),
			formatDuration(r.Min),
			formatDuration(r.Mean),
			formatDuration(r.P50),
			formatDuration(r.P95),
			formatDuration(r.P99),
			formatDuration(r.Max),
		)
	}

	return nil
}
