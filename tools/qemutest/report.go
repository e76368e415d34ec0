package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	yaml "gopkg.in/yaml.v2"
)

var (
	okColor         = color.New(color.FgGreen, color.Bold)
	failedColor     = color.New(color.FgRed, color.Bold)
	incompleteColor = color.New(color.FgYellow)
	detailColor     = color.New(color.FgCyan)
)

func statusColor(status Status) *color.Color {
	switch status {
	case StatusOK:
		return okColor
	case StatusFailed:
		return failedColor
	default:
		return incompleteColor
	}
}

// printSummary writes a colored per-test summary followed by the overall
// verdict.
func printSummary(w io.Writer, report *Report) {
	for _, result := range report.Tests {
		fmt.Fprintf(w, "%-24s ", result.Name)
		statusColor(result.Status).Fprintf(w, "[%s]\n", result.Status)
		for _, line := range result.Output {
			detailColor.Fprintf(w, "    %s\n", line)
		}
	}

	if missing := report.ExpectedTests - len(report.Tests); missing > 0 {
		incompleteColor.Fprintf(w, "%d test(s) did not run\n", missing)
	}

	if report.TimedOut {
		failedColor.Fprintf(w, "qemu timed out after %s\n", report.Duration)
	}

	if report.Passed {
		okColor.Fprintf(w, "PASS")
	} else {
		failedColor.Fprintf(w, "FAIL")
	}
	fmt.Fprintf(w, " %s (exit code %d, %s)\n", report.Image, report.ExitCode, report.Duration)
}

// writeReport stores report as YAML at path.
func writeReport(path string, report *Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
