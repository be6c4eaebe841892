package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"liftmill/host/monitor"
	"liftmill/host/serial"
)

var (
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	configPath = flag.String("config", "", "YAML config file")
	stepsPerMM = flag.Uint64("steps-per-mm", 0, "Steps per millimeter (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	port, err := serial.Open(&serial.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: 100,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	fmt.Printf("Monitoring carriage on %s (%d baud)\n", cfg.Device, cfg.Baud)

	stream := monitor.NewStream(port)
	for {
		status, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: read failed: %v\n", err)
			os.Exit(1)
		}

		if status.HasCurrent {
			fmt.Printf("%-8s  target %2dmm (%d steps)  current %2dmm (%d steps)\n",
				status.State,
				status.TargetMM(cfg.StepsPerMM), status.Target,
				status.CurrentMM(cfg.StepsPerMM), status.Current)
		} else {
			fmt.Printf("%-8s  target %2dmm (%d steps)\n",
				status.State,
				status.TargetMM(cfg.StepsPerMM), status.Target)
		}
	}
}

func loadConfig() (*monitor.Config, error) {
	cfg := &monitor.Config{}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}
		cfg, err = monitor.LoadConfig(data)
		if err != nil {
			return nil, err
		}
	}

	if *device != "" {
		cfg.Device = *device
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}
	if *stepsPerMM != 0 {
		if err := cfg.OverrideStepsPerMM(*stepsPerMM); err != nil {
			return nil, err
		}
	}

	if cfg.Device == "" {
		return nil, errors.New("no serial device: pass -device or -config")
	}
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.StepsPerMM == 0 {
		cfg.StepsPerMM = 200
	}

	return cfg, nil
}
