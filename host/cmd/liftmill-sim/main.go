package main

import (
	"flag"
	"fmt"
	"os"

	"liftmill/core"
	"liftmill/sim"
)

var (
	configPath = flag.String("config", "", "YAML scenario file (default scenario if omitted)")
	verbose    = flag.Bool("verbose", false, "Print firmware debug output")
)

func main() {
	flag.Parse()

	scenarioYAML := []byte("{}")
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		scenarioYAML = data
	}

	scenario, err := sim.LoadScenario(scenarioYAML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		core.SetDebugWriter(func(s string) { fmt.Println("[fw] " + s) })
		core.SetDebugEnabled(true)
	}

	rig, err := sim.NewRig(scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := rig.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: simulation fault: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ran %d ticks\n", scenario.RunTicks)
	if result.Calibrated {
		fmt.Printf("calibrated after %d ticks\n", result.TicksToCalibrate)
		fmt.Printf("target  %dmm (%d steps)\n",
			result.TargetSteps/scenario.StepsPerMM, result.TargetSteps)
		fmt.Printf("current %dmm (%d steps)\n",
			result.CurrentSteps/scenario.StepsPerMM, result.CurrentSteps)
	} else {
		fmt.Println("homing never completed")
	}
	fmt.Printf("carriage at %d steps, %d frames shown\n",
		result.CarriagePosition, result.FramesShown)

	if result.Calibrated && result.TargetSteps != result.CurrentSteps {
		fmt.Println("warning: did not converge within the run")
		os.Exit(2)
	}
}
