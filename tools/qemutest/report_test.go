package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func TestPrintSummary(t *testing.T) {
	defer func(orig bool) { color.NoColor = orig }(color.NoColor)
	color.NoColor = true

	specs := []struct {
		report *Report
		exp    []string
	}{
		{
			&Report{
				Image:         "kernel.iso",
				ExitCode:      33,
				Passed:        true,
				Duration:      1500 * time.Millisecond,
				ExpectedTests: 1,
				Tests:         []TestResult{{Name: "breakpoint", Status: StatusOK}},
			},
			[]string{"breakpoint", "[ok]", "PASS kernel.iso (exit code 33, 1.5s)"},
		},
		{
			&Report{
				Image:         "kernel.iso",
				ExitCode:      35,
				ExpectedTests: 3,
				Tests: []TestResult{
					{Name: "breakpoint", Status: StatusOK},
					{Name: "example_mapping", Status: StatusFailed, Output: []string{"Error: [vmm] page is already mapped"}},
				},
			},
			[]string{"[failed]", "    Error: [vmm] page is already mapped", "1 test(s) did not run", "FAIL kernel.iso (exit code 35"},
		},
		{
			&Report{
				Image:    "kernel.iso",
				ExitCode: -1,
				TimedOut: true,
				Duration: 30 * time.Second,
				Tests:    []TestResult{{Name: "breakpoint", Status: StatusIncomplete}},
			},
			[]string{"[incomplete]", "qemu timed out after 30s", "FAIL"},
		},
	}

	for specIndex, spec := range specs {
		var buf bytes.Buffer
		printSummary(&buf, spec.report)

		for _, exp := range spec.exp {
			if !strings.Contains(buf.String(), exp) {
				t.Errorf("[spec %d] expected summary to contain %q; got:\n%s", specIndex, exp, buf.String())
			}
		}
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yml")
	report := &Report{
		Image:    "kernel.iso",
		ExitCode: 33,
		Passed:   true,
		Duration: 2 * time.Second,
		Tests:    []TestResult{{Name: "breakpoint", Status: StatusOK}},
	}

	if err := writeReport(path, report); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, exp := range []string{"image: kernel.iso", "exit_code: 33", "passed: true", "duration: 2s", "- name: breakpoint", "status: ok"} {
		if !bytes.Contains(data, []byte(exp)) {
			t.Errorf("expected report to contain %q; got:\n%s", exp, data)
		}
	}

	if err = writeReport(filepath.Join(t.TempDir(), "missing", "report.yml"), report); err == nil {
		t.Fatal("expected an error when the report directory does not exist")
	}
}
