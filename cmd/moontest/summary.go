package main

import (
	"fmt"
	"io"
	"time"

	"github.com/bobmcallan/moontest/internal/models"
)

// printSummary writes one block per test and returns how many carry an error.
func printSummary(w io.Writer, results []*models.TestResult) int {
	failed := 0
	for _, r := range results {
		status := "OK"
		if r.Error != nil {
			status = "ERROR"
			failed++
		}

		duration := "-"
		if r.EndTime != nil {
			duration = r.EndTime.Sub(r.StartTime).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%-5s %s (%s) %s\n", status, r.Test.Name, duration, r.Test.URL)

		for i, qr := range r.QueryResults {
			fmt.Fprintf(w, "  [%d] Q: %s\n", i+1, qr.Query.Question)
			fmt.Fprintf(w, "      expected: %s\n", qr.Query.ExpectedResponse)
			fmt.Fprintf(w, "      actual:   %s\n", qr.ActualResponse)
			fmt.Fprintf(w, "      screenshots: %d\n", len(qr.Screenshots))
		}
		if r.Error != nil {
			fmt.Fprintf(w, "  error: %s (after %d of %d queries)\n", *r.Error, len(r.QueryResults), len(r.Test.Queries))
		}
	}
	fmt.Fprintf(w, "\n%d test(s), %d with errors\n", len(results), failed)
	return failed
}
