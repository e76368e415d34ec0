package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config controls how the kernel image is booted under QEMU.
type Config struct {
	// QEMU is the emulator binary.
	QEMU string `yaml:"qemu"`

	// Image is the bootable ISO built with selftest=on in its boot
	// command line.
	Image string `yaml:"image"`

	// Memory is passed to QEMU's -m option.
	Memory string `yaml:"memory"`

	// Timeout bounds the complete run; QEMU is killed when it expires.
	Timeout time.Duration `yaml:"timeout"`

	// SuccessExitCode is the status QEMU reports when the kernel writes
	// the success code to the debug exit device: (0x10 << 1) | 1.
	SuccessExitCode int `yaml:"success_exit_code"`

	// ExtraArgs are appended to the generated QEMU command line.
	ExtraArgs []string `yaml:"extra_args"`

	// Report is an optional path for a YAML report of the run.
	Report string `yaml:"report"`
}

func defaultConfig() Config {
	return Config{
		QEMU:            "qemu-system-x86_64",
		Memory:          "128M",
		Timeout:         60 * time.Second,
		SuccessExitCode: 33,
	}
}

// loadConfig reads the YAML file at path on top of the default settings.
// Unknown keys are rejected.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err = yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %s", path, err)
	}

	return cfg, nil
}

func (cfg Config) validate() error {
	switch {
	case cfg.QEMU == "":
		return errors.New("qemu binary not specified")
	case cfg.Image == "":
		return errors.New("kernel image not specified")
	case cfg.Timeout <= 0:
		return fmt.Errorf("invalid timeout %s", cfg.Timeout)
	}

	return nil
}

// qemuArgs returns the QEMU command line. Serial output goes to stdout and
// the isa-debug-exit device lets the kernel choose QEMU's exit status.
func (cfg Config) qemuArgs() []string {
	args := []string{
		"-cdrom", cfg.Image,
		"-m", cfg.Memory,
		"-device", "isa-debug-exit,iobase=0xf4,iosize=0x04",
		"-serial", "stdio",
		"-display", "none",
		"-no-reboot",
	}

	return append(args, cfg.ExtraArgs...)
}
