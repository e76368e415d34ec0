package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// run boots the configured image, streams the serial output through the
// result parser and echoes it to console when console is not nil. QEMU runs
// in its own process group so the whole group can be killed once the timeout
// expires.
func run(ctx context.Context, cfg Config, console io.Writer) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.Command(cfg.QEMU, cfg.qemuArgs()...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout

	start := time.Now()
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cfg.QEMU, err)
	}

	var (
		parser   resultParser
		timedOut bool
		waitErr  error
		exited   = make(chan struct{})
	)

	g := new(errgroup.Group)

	// Pump the serial output and reap QEMU once the pipe is drained.
	g.Go(func() error {
		defer close(exited)

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			parser.feed(line)
			if console != nil {
				fmt.Fprintln(console, line)
			}
		}

		scanErr := scanner.Err()
		waitErr = cmd.Wait()
		return scanErr
	})

	// Kill the process group if QEMU outlives the timeout.
	g.Go(func() error {
		select {
		case <-exited:
			return nil
		case <-ctx.Done():
			timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
			return killProcessGroup(cmd.Process.Pid)
		}
	})

	if err = g.Wait(); err != nil && !timedOut {
		return nil, err
	}

	exitCode := 0
	var exitErr *exec.ExitError
	switch {
	case errors.As(waitErr, &exitErr):
		exitCode = exitErr.ExitCode()
	case waitErr != nil:
		return nil, waitErr
	}

	report := &Report{
		Image:         cfg.Image,
		ExitCode:      exitCode,
		TimedOut:      timedOut,
		Duration:      time.Since(start).Round(time.Millisecond),
		ExpectedTests: parser.expected,
		Tests:         parser.results,
	}
	report.Passed = !timedOut && exitCode == cfg.SuccessExitCode && parser.passed()

	return report, nil
}

func killProcessGroup(pid int) error {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}

	return nil
}
