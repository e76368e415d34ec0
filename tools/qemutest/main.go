// Command qemutest boots a kernel image built with selftest=on under QEMU,
// collects the test results the kernel reports over the serial port and
// exits with a non-zero status if any test failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[qemutest] error: %s\n", err.Error())
	os.Exit(1)
}

func main() {
	var (
		configFile = flag.String("config", "qemutest.yml", "path to the YAML configuration file")
		image      = flag.String("image", "", "kernel image; overrides the image key of the configuration file")
		verbose    = flag.Bool("v", false, "echo the serial output of the kernel")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		exit(err)
	}

	if *image != "" {
		cfg.Image = *image
	}

	if err = cfg.validate(); err != nil {
		exit(err)
	}

	var console io.Writer
	if *verbose {
		console = os.Stdout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := run(ctx, cfg, console)
	if err != nil {
		exit(err)
	}

	printSummary(os.Stdout, report)

	if cfg.Report != "" {
		if err = writeReport(cfg.Report, report); err != nil {
			exit(err)
		}
	}

	if !report.Passed {
		os.Exit(1)
	}
}
