package plinstall

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Executor runs external commands (unzip, tar, mv, the package manager),
// elevating through sudo when ShouldRunAsRoot is set.
type Executor struct {
	Context         context.Context // cancellation kills the whole process group
	ShouldRunAsRoot bool            // the command MUST be executed with root privileges
	Interactive     bool            // the command may prompt on the terminal
	Stdout          io.Writer       // defaults to os.Stdout
	Stderr          io.Writer       // defaults to os.Stderr
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// runInteractiveCommand keeps the child on our TTY so sudo can read a password.
func runInteractiveCommand(ctx context.Context, name string, arg ...string) error {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ensureSudo checks the sudo ticket with `sudo -nv` and re-authenticates
// interactively only when it has expired.
func (e *Executor) ensureSudo() error {
	if os.Geteuid() == 0 || !e.ShouldRunAsRoot {
		return nil
	}
	check := exec.CommandContext(e.Context, "sudo", "-nv")
	check.Stdout = io.Discard
	check.Stderr = io.Discard
	if err := check.Run(); err == nil {
		return nil
	}

	arrowf(os.Stdout, colSuccess, "Administrator rights are needed. Authenticating with sudo")
	if err := runInteractiveCommand(e.Context, "sudo", "-v"); err != nil {
		return fmt.Errorf("sudo authentication failed: %w", err)
	}
	return nil
}

// Run executes cmd, wrapping it in sudo -E when needed. Non-interactive
// children get their own process group so cancellation kills the whole tree.
func (e *Executor) Run(cmd *exec.Cmd) error {
	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = e.Stdout
		if cmd.Stdout == nil {
			cmd.Stdout = os.Stdout
		}
	}
	if cmd.Stderr == nil {
		cmd.Stderr = e.Stderr
		if cmd.Stderr == nil {
			cmd.Stderr = os.Stderr
		}
	}

	if err := e.ensureSudo(); err != nil {
		return err
	}

	var finalCmd *exec.Cmd
	if e.ShouldRunAsRoot && os.Geteuid() != 0 {
		args := append([]string{"-E", cmd.Path}, cmd.Args[1:]...)
		finalCmd = exec.CommandContext(ctx, "sudo", args...)
	} else {
		finalCmd = exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...)
	}
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	if !e.Interactive {
		finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	log.Debug().Str("command", finalCmd.Path).Strs("args", finalCmd.Args[1:]).Msg("Executing command")
	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Args[0], err)
	}

	if !e.Interactive {
		pgid := finalCmd.Process.Pid
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				_ = syscall.Kill(-pgid, syscall.SIGKILL)
			case <-done:
			}
		}()
	}

	if err := finalCmd.Wait(); err != nil {
		if ctx.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %w", ctx.Err())
		}
		return err
	}
	return nil
}
