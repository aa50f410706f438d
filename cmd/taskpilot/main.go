package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	maxSteps   int
	headless   bool
)

var rootCmd = &cobra.Command{
	Use:   "taskpilot",
	Short: "TaskPilot - an LLM agent that works through tasks one action at a time",
	Long: `TaskPilot runs tasks with a language model that picks one action per step
(search, scrape, browse, run commands, ask the user...) until the task is done.

Use "serve" to attach it to chat gateways, or "run" for a single task on the console.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat gateways, the scheduler and the live status",
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run a single task on the console",
	Long: `Runs one task to completion on the console. When the agent asks a question
the answer is read from the terminal.

Example:
  taskpilot run "Find the three most recent Go releases and summarise them"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&maxSteps, "max-steps", 0, "steps per turn before asking the user (default from config)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "run the browser action without a window")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
