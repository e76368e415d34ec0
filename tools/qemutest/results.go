package main

import (
	"strconv"
	"strings"
	"time"
)

// Status is the outcome of a single kernel test.
type Status string

// The list of test outcomes reported by the kernel.
const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"

	// StatusIncomplete marks a test that started but never reported a
	// result, e.g. because QEMU hung or was killed.
	StatusIncomplete Status = "incomplete"
)

const (
	testSeparator = "...\t"
	okMarker      = "[ok]"
	failedMarker  = "[failed]"
	runningPrefix = "Running "
)

// TestResult describes a test reported over the serial line.
type TestResult struct {
	Name   string   `yaml:"name"`
	Status Status   `yaml:"status"`
	Output []string `yaml:"output,omitempty"`
}

// Report summarizes a complete QEMU run.
type Report struct {
	Image         string        `yaml:"image"`
	ExitCode      int           `yaml:"exit_code"`
	TimedOut      bool          `yaml:"timed_out"`
	Passed        bool          `yaml:"passed"`
	Duration      time.Duration `yaml:"duration"`
	ExpectedTests int           `yaml:"expected_tests"`
	Tests         []TestResult  `yaml:"tests"`
}

// resultParser turns the kernel's serial output into test results. A test
// line has the form "name...\t[ok]" and is written once the test has
// returned, so diagnostics printed while it runs (a trap handler dumping the
// frame, a panic banner) precede it. These are kept as pending output and
// attached to the test if it fails.
//
// When the name and the marker are written separately, diagnostics can end
// up between the two, leaving the marker on a line of its own.
type resultParser struct {
	expected int
	results  []TestResult

	// open is true while the last test has not reported a status or has
	// failed and may still emit diagnostics.
	open bool

	// pending holds the lines seen since the last test line.
	pending []string
}

func (p *resultParser) feed(line string) {
	line = strings.TrimRight(line, "\r")

	if strings.HasPrefix(line, runningPrefix) {
		if count, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, runningPrefix), " tests")); err == nil {
			p.expected = count
			p.pending = nil
			return
		}
	}

	if idx := strings.Index(line, testSeparator); idx > 0 && !strings.ContainsAny(line[:idx], " \t") {
		result := TestResult{Name: line[:idx], Status: StatusIncomplete}
		switch marker := strings.TrimSpace(line[idx+len(testSeparator):]); marker {
		case okMarker:
			result.Status = StatusOK
		case failedMarker:
			result.Status = StatusFailed
			result.Output = p.pending
		case "":
		default:
			// a handler wrote to the line before the test reported
			result.Output = []string{marker}
		}

		p.pending = nil
		p.results = append(p.results, result)
		p.open = result.Status != StatusOK
		return
	}

	if !p.open {
		if p.expected != 0 && line != "" {
			p.pending = append(p.pending, line)
		}
		return
	}

	last := &p.results[len(p.results)-1]
	switch {
	case line == failedMarker:
		last.Status = StatusFailed
	case line == okMarker && last.Status == StatusIncomplete:
		last.Status = StatusOK
		p.open = false
	case line != "":
		last.Output = append(last.Output, line)
	}
}

// passed returns true if every expected test reported StatusOK.
func (p *resultParser) passed() bool {
	if len(p.results) < p.expected {
		return false
	}

	for _, result := range p.results {
		if result.Status != StatusOK {
			return false
		}
	}

	return true
}
