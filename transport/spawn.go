package transport

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/agentwire/agentwire/errors"
)

// SpawnSpec describes how to launch an agent subprocess. Env is the complete
// child environment; callers are expected to have run it through their
// sanitization step already (see registry.SanitizeEnv).
type SpawnSpec struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
	Env     []string `json:"-"`
}

// killGrace is how long Close waits for a spawned agent to exit after its
// stdin closes before killing it.
const killGrace = 3 * time.Second

// Proc is a spawned agent subprocess together with the Transport wrapping its
// stdio. The driver writes frames to the child's stdin and reads frames from
// its stdout; stderr passes through to the parent's stderr for diagnostics.
type Proc struct {
	*Transport
	cmd       *exec.Cmd
	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
}

// Spawn launches the agent described by spec with stdio pipes and returns the
// running process wrapped in a Transport.
func Spawn(spec SpawnSpec) (*Proc, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Cwd
	cmd.Env = spec.Env
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "open stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start agent %q", spec.Command)
	}

	// stdin is attached as a closer so a transport close signals EOF to the
	// child; the child exiting closes stdout, which unblocks the reader.
	t := New(stdout, stdin, stdin)
	return &Proc{Transport: t, cmd: cmd}, nil
}

// PID returns the child's process id.
func (p *Proc) PID() int {
	return p.cmd.Process.Pid
}

// Close shuts down the transport, gives the child a grace period to exit
// after its stdin closes, then kills it. Killing the subprocess is the only
// unconditional cancellation mechanism the protocol has.
func (p *Proc) Close() error {
	p.closeOnce.Do(func() {
		_ = p.Transport.Close()

		done := make(chan struct{})
		go func() {
			p.wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(killGrace):
			_ = p.cmd.Process.Kill()
			<-done
		}
	})
	return nil
}

// Wait blocks until the child exits and returns its exit error, if any.
func (p *Proc) Wait() error {
	p.wait()
	return p.waitErr
}

func (p *Proc) wait() {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
}
