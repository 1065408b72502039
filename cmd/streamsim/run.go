package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DaveBerkeley/streamfab/logger"
	"github.com/DaveBerkeley/streamfab/scenario"
)

var runConfig struct {
	ScenarioPath string
	Verbose      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load a scenario file, build its fabric, and print the resulting traces",
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Nop()
		if runConfig.Verbose {
			log = logger.New(logger.Options{Stdout: true, Level: string(logger.LevelInfo)})
		}

		spec, err := scenario.Load(runConfig.ScenarioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load scenario: %v\n", err)
			os.Exit(1)
		}
		log.Infof("loaded scenario %q (component=%s ticks=%d)", spec.Name, spec.Component, spec.Ticks)

		built, err := scenario.Build(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build scenario: %v\n", err)
			os.Exit(1)
		}

		results := built.Run()
		for name, packets := range results {
			for i, packet := range packets {
				if len(packet) == 0 {
					continue
				}
				fmt.Printf("%s[%d]: ", name, i)
				for _, beat := range packet {
					fmt.Printf("%v ", beat.Fields)
				}
				fmt.Println()
			}
		}
	},
	Example: "  streamsim run --scenario ./scenarios/sum_signed.yaml",
}

func init() {
	runCmd.Flags().StringVar(&runConfig.ScenarioPath, "scenario", "", "Path to a scenario YAML file")
	runCmd.Flags().BoolVar(&runConfig.Verbose, "verbose", false, "Log scenario load/build steps to stdout")
	_ = runCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(runCmd)
}
