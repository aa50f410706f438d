package actions

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const maxShellOutput = 20000

type ShellAction struct {
	Timeout time.Duration
	// Dir is the working directory of commands; empty means the process cwd.
	Dir string
}

func NewShellAction() *ShellAction {
	return &ShellAction{Timeout: 2 * time.Minute}
}

func (s *ShellAction) Name() string {
	return "shell"
}

func (s *ShellAction) Description() string {
	return "Execute system shell commands. Use with caution. Access to full shell environment."
}

func (s *ShellAction) Category() string { return "system" }

func (s *ShellAction) Schema() Schema {
	return Params(Param{Name: "command", Description: "The shell command to execute"})
}

func (s *ShellAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	command := strings.TrimSpace(StringArg(args, "command"))
	if command == "" {
		return Failure(fmt.Errorf("empty command"), "Ran an empty shell command")
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = s.Dir
	output, err := cmd.CombinedOutput()

	result := strings.TrimSpace(string(output))
	if result == "" {
		result = "(no output)"
	}
	if len(result) > maxShellOutput {
		result = result[:maxShellOutput] + "\n... (truncated)"
	}

	if err != nil {
		return Failure(fmt.Errorf("command failed with error: %v\nOutput: %s", err, result), fmt.Sprintf("Command failed: %s", command))
	}
	return Success(result, fmt.Sprintf("Ran: %s", command))
}
