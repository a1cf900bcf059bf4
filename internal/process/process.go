// Package process spawns worker binaries and talks to them over three
// pipes: a synchronization pipe in each direction carrying the single byte
// '$' per round, and a measurement pipe the worker writes its samples to
// before exiting.
package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/metrics"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
)

// SynchronizationChar is the only byte ever sent over a synchronization pipe.
const SynchronizationChar = '$'

// Argument keys a worker receives its pipe handles under.
const (
	ArgSynchronizationPipeIn  = "synchronizationPipeIn"
	ArgSynchronizationPipeOut = "synchronizationPipeOut"
	ArgMeasurementPipe        = "measurementPipe"
)

// Process is one worker. It is built idle, started once with Run, and its
// Wait is idempotent.
type Process struct {
	exe     string
	name    string
	args    []string
	env     []string
	handles []*os.File

	cmd    *exec.Cmd
	stdout bytes.Buffer

	// parent ends
	toChild   *os.File
	fromChild *os.File

	measurements     []byte
	measurementsErr  error
	measurementsDone chan struct{}

	waitOnce sync.Once
	result   result.Result
}

// Sibling resolves a worker binary installed next to the running
// executable. The ".exe" suffix is added on Windows.
func Sibling(name string) (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(self), name), nil
}

// New creates an idle process for exe.
func New(exe string) *Process {
	return &Process{exe: exe, name: exe, result: result.Error}
}

// SetName sets the display name used in logs and labelled samples.
func (p *Process) SetName(name string) { p.name = name }

func (p *Process) Name() string { return p.name }

// AddArgument appends "--key=value", or "--key" when value is empty.
func (p *Process) AddArgument(key, value string) {
	if value == "" {
		p.args = append(p.args, "--"+key)
		return
	}
	p.args = append(p.args, "--"+key+"="+value)
}

// AddEnvVariable overrides an environment variable for this process only.
func (p *Process) AddEnvVariable(key, value string) {
	p.env = append(p.env, key+"="+value)
}

// AddInheritableHandle passes f to the child. User handles are inherited
// before the protocol pipes.
func (p *Process) AddInheritableHandle(f *os.File) {
	p.handles = append(p.handles, f)
}

// Arguments returns the command line after the executable.
func (p *Process) Arguments() []string { return p.args }

// Run starts the process. It may be called once.
func (p *Process) Run() error {
	if p.cmd != nil {
		panic(fmt.Sprintf("process %s started twice", p.name))
	}

	childIn, toChild, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create synchronization pipe: %w", err)
	}
	fromChild, childOut, err := os.Pipe()
	if err != nil {
		closeAll(childIn, toChild)
		return fmt.Errorf("create synchronization pipe: %w", err)
	}
	measurementRead, measurementWrite, err := os.Pipe()
	if err != nil {
		closeAll(childIn, toChild, fromChild, childOut)
		return fmt.Errorf("create measurement pipe: %w", err)
	}

	cmd := exec.Command(p.exe)
	handles := inheritPipes(cmd, p.handles, childIn, childOut, measurementWrite)
	args := append([]string{}, p.args...)
	args = append(args,
		"--"+ArgSynchronizationPipeIn+"="+strconv.FormatUint(handles[0], 10),
		"--"+ArgSynchronizationPipeOut+"="+strconv.FormatUint(handles[1], 10),
		"--"+ArgMeasurementPipe+"="+strconv.FormatUint(handles[2], 10),
	)
	cmd.Args = append([]string{p.exe}, args...)
	cmd.Env = append(os.Environ(), p.env...)
	cmd.Stdout = &p.stdout
	cmd.Stderr = os.Stderr

	logger.Log.Debug("Spawning process", "name", p.name, "args", args)
	if err := cmd.Start(); err != nil {
		closeAll(childIn, toChild, fromChild, childOut, measurementRead, measurementWrite)
		return fmt.Errorf("start %s: %w", p.exe, err)
	}
	// the child owns its ends now; keeping them open would hide EOF
	closeAll(childIn, childOut, measurementWrite)

	p.cmd = cmd
	p.toChild = toChild
	p.fromChild = fromChild
	p.measurementsDone = make(chan struct{})

	// drain continuously so a large blob never blocks the child on a full pipe
	go func() {
		defer close(p.measurementsDone)
		defer measurementRead.Close()
		p.measurements, p.measurementsErr = io.ReadAll(measurementRead)
	}()
	return nil
}

// Signal releases the child for one round.
func (p *Process) Signal() error {
	if _, err := p.toChild.Write([]byte{SynchronizationChar}); err != nil {
		return fmt.Errorf("signal %s: %w", p.name, err)
	}
	return nil
}

// CloseRelease closes the parent's end of the release pipe. A child
// waiting for a release reads EOF and fails instead of blocking forever.
func (p *Process) CloseRelease() {
	closeAll(p.toChild)
}

// WaitForSignal blocks until the child reports readiness. A child that
// exits first yields an error; a wrong byte is a protocol desync and panics.
func (p *Process) WaitForSignal() error {
	var buf [1]byte
	n, err := p.fromChild.Read(buf[:])
	if n == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("wait for signal from %s: %w", p.name, err)
	}
	if buf[0] != SynchronizationChar {
		panic(fmt.Sprintf("invalid synchronization received from %s: %q", p.name, buf[0]))
	}
	return nil
}

// Wait blocks until the child exits and returns its result. Later calls
// return the cached value.
func (p *Process) Wait() result.Result {
	p.waitOnce.Do(func() {
		if p.cmd == nil {
			p.result = result.Error
			return
		}
		<-p.measurementsDone
		err := p.cmd.Wait()
		closeAll(p.toChild, p.fromChild)
		p.result = p.exitResult(err)
		metrics.RecordChildProcess(p.result.String())
	})
	return p.result
}

func (p *Process) exitResult(err error) result.Result {
	if err == nil {
		return result.Success
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		logger.Log.Error("Waiting for process failed", "name", p.name, "error", err)
		return result.Error
	}
	code := exitErr.ExitCode()
	if code == -1 {
		logger.Log.Error("Process terminated by signal", "name", p.name, "state", exitErr.String())
		return result.Error
	}
	return result.FromExitCode(code)
}

// Result is Wait under the name the group uses.
func (p *Process) Result() result.Result { return p.Wait() }

// Measurements waits for the child and decodes exactly expected samples.
func (p *Process) Measurements(expected int) ([]uint64, error) {
	p.Wait()
	if p.measurementsErr != nil {
		return nil, fmt.Errorf("read measurements of %s: %w", p.name, p.measurementsErr)
	}
	values, err := stats.DecodeMeasurements(string(p.measurements), expected)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return values, nil
}

// Stdout waits for the child and returns everything it printed.
func (p *Process) Stdout() string {
	p.Wait()
	return p.stdout.String()
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
