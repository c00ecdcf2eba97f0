package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const killGrace = 2 * time.Second

// ExecWith builds a command that is sent an interrupt when ctx is done and
// killed if it is still running killGrace later.
func ExecWith(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = killGrace
	return cmd
}

// CmdCombinedOutput runs cmd with stdout and stderr merged. On failure the
// first output line is folded into the error.
func CmdCombinedOutput(cmd *exec.Cmd) ([]byte, error) {
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if line := FirstLine(out.String()); line != "" {
			return out.Bytes(), fmt.Errorf("%s: %w: %s", cmd.Args[0], err, line)
		}
		return out.Bytes(), fmt.Errorf("%s: %w", cmd.Args[0], err)
	}
	return out.Bytes(), nil
}

// BinaryVersion returns the first line of `name -version`.
func BinaryVersion(ctx context.Context, name string) (string, error) {
	out, err := CmdCombinedOutput(ExecWith(ctx, name, "-version"))
	if err != nil {
		return "", err
	}
	return FirstLine(string(out)), nil
}
