// Package pipeline composes the stages of an exec expression into running
// child processes, file endpoints, and in-memory buffers.
//
// The engine is split into a declarative Plan built by the evaluator and a
// scheduler that materialises and runs it. Deadlock avoidance is
// structural: every child is started before any interpreter-side transfer
// begins, bytes between two children flow through an OS pipe the
// interpreter never touches, and every pipe the interpreter does read has
// its own drain goroutine.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/nashlang/nash/core/diag"
)

// SourceKind discriminates pipeline sources.
type SourceKind int

const (
	SourceLiteral SourceKind = iota
	SourceFile
)

// Source feeds the first stage's stdin.
type Source struct {
	Kind    SourceKind
	Literal string
	Path    string
}

// DestKind discriminates pipeline sinks.
type DestKind int

const (
	DestWrite DestKind = iota
	DestAppend
)

// Dest receives the last stage's stdout.
type Dest struct {
	Kind DestKind
	Path string
}

// Stage is one command of the pipeline with its capture flags.
type Stage struct {
	Program       string
	Args          []string
	CaptureStderr bool
	CaptureExit   bool
}

// Plan is a fully resolved pipeline: interpolation has already happened,
// exactly once, when the evaluator built it.
type Plan struct {
	Source *Source
	Stages []Stage
	Dest   *Dest
}

// StageResult records what one command stage produced.
type StageResult struct {
	ExitCode int
	Stderr   string
}

// Output is a completed pipeline run. Stdout is meaningful only when the
// plan had no destination.
type Output struct {
	Stdout string
	Stages []StageResult
}

// state tracks a stage through its lifecycle. A record may only be
// released once it reaches stateReaped.
type state int

const (
	statePrepared state = iota
	stateRunning
	stateExited
	stateReaped
)

type stageRec struct {
	cmd   *exec.Cmd
	state state
}

// Engine runs pipeline plans against a filesystem and environment.
type Engine struct {
	Fs     afero.Fs
	Stderr io.Writer // uncaptured stage stderr is forwarded here
	Env    []string
	Dir    string
	// MaxCapture bounds every interpreter-side buffer (final stdout and
	// captured stderr). Zero means the default of 8 MiB.
	MaxCapture int64
}

const defaultMaxCapture = 8 << 20

func (e *Engine) maxCapture() int64 {
	if e.MaxCapture > 0 {
		return e.MaxCapture
	}
	return defaultMaxCapture
}

func ioError(format string, args ...interface{}) error {
	return &diag.Error{Kind: diag.IOError, Msg: fmt.Sprintf(format, args...)}
}

// Run executes a plan to completion and resolves the capture policy: a
// non-zero exit from a stage whose code is not captured aborts with a
// NonZeroExit error naming the stage.
func (e *Engine) Run(ctx context.Context, plan *Plan) (*Output, error) {
	if len(plan.Stages) == 0 {
		return e.runEndpointsOnly(plan)
	}

	source, err := e.openSource(plan.Source)
	if err != nil {
		return nil, err
	}
	if source.file != nil {
		defer source.file.Close()
	}

	var destFile afero.File
	if plan.Dest != nil {
		destFile, err = e.openDest(plan.Dest)
		if err != nil {
			return nil, err
		}
		defer destFile.Close()
	}

	records := make([]*stageRec, len(plan.Stages))
	for i, stage := range plan.Stages {
		cmd := exec.CommandContext(ctx, stage.Program, stage.Args...)
		cmd.Env = e.Env
		cmd.Dir = e.Dir
		records[i] = &stageRec{cmd: cmd}
	}

	// Wire adjacent stages with OS pipes so bytes between children never
	// pass through the interpreter. The parent closes its copies of the
	// descriptors once every child holds its own.
	var parentClose []io.Closer
	closeParentFds := func() {
		for _, c := range parentClose {
			c.Close()
		}
		parentClose = nil
	}
	defer closeParentFds()

	for i := 0; i < len(records)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, ioError("creating pipe: %v", err)
		}
		records[i].cmd.Stdout = w
		records[i+1].cmd.Stdin = r
		parentClose = append(parentClose, r, w)
	}

	first := records[0].cmd
	if source.reader != nil {
		first.Stdin = source.reader
	}

	// Drain tasks: one goroutine per pipe the interpreter itself reads.
	var wg sync.WaitGroup
	var drains []*drain

	last := records[len(records)-1].cmd
	var stdoutDrain *drain
	if destFile != nil {
		last.Stdout = destFile
	} else {
		pipe, err := last.StdoutPipe()
		if err != nil {
			return nil, ioError("creating stdout pipe: %v", err)
		}
		stdoutDrain = &drain{r: pipe, limit: e.maxCapture(), what: "stdout"}
		drains = append(drains, stdoutDrain)
	}

	// An *os.File stderr is handed to children directly; anything else is
	// written to by one runtime copier per child, so serialize it.
	stderrSink := e.Stderr
	if _, isFile := e.Stderr.(*os.File); !isFile && e.Stderr != nil {
		stderrSink = &lockedWriter{w: e.Stderr}
	}

	stderrDrains := make([]*drain, len(records))
	for i, stage := range plan.Stages {
		if !stage.CaptureStderr {
			records[i].cmd.Stderr = stderrSink
			continue
		}
		pipe, err := records[i].cmd.StderrPipe()
		if err != nil {
			return nil, ioError("creating stderr pipe: %v", err)
		}
		stderrDrains[i] = &drain{r: pipe, limit: e.maxCapture(), what: "stderr"}
		drains = append(drains, stderrDrains[i])
	}

	// Start every stage before any transfer so no child can block writing
	// to a pipe whose reader does not exist yet.
	for i, rec := range records {
		if err := rec.cmd.Start(); err != nil {
			e.abortStarted(records)
			return nil, &diag.Error{
				Kind: diag.CommandSpawnError,
				Msg:  fmt.Sprintf("cannot start command %q: %v", plan.Stages[i].Program, err),
			}
		}
		rec.state = stateRunning
	}
	closeParentFds()

	for _, d := range drains {
		wg.Add(1)
		go func(d *drain) {
			defer wg.Done()
			d.run()
		}(d)
	}
	wg.Wait()

	// Every drain reached end of stream; reap the children in order.
	output := &Output{Stages: make([]StageResult, len(records))}
	var firstErr error
	for i, rec := range records {
		code, err := reap(rec)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		output.Stages[i].ExitCode = code
		if d := stderrDrains[i]; d != nil {
			output.Stages[i].Stderr = d.buf.String()
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	for _, d := range drains {
		if d.err != nil {
			return nil, ioError("reading %s: %v", d.what, d.err)
		}
	}

	for i, stage := range plan.Stages {
		if stage.CaptureExit {
			continue
		}
		if code := output.Stages[i].ExitCode; code != 0 {
			return nil, &diag.Error{
				Kind: diag.NonZeroExit,
				Msg:  fmt.Sprintf("command %q returned non-zero exit code %d", stage.Program, code),
			}
		}
	}

	if stdoutDrain != nil {
		output.Stdout = stdoutDrain.buf.String()
	}
	return output, nil
}

// reap waits for a stage and resolves its exit code. The record reaches
// stateReaped even when the wait fails.
func reap(rec *stageRec) (int, error) {
	err := rec.cmd.Wait()
	rec.state = stateExited
	defer func() { rec.state = stateReaped }()

	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ProcessState.ExitCode()
		if code < 0 {
			return 0, &diag.Error{
				Kind: diag.RuntimeError,
				Msg:  fmt.Sprintf("command %q was terminated by a signal", rec.cmd.Path),
			}
		}
		return code, nil
	}
	return 0, ioError("waiting for command %q: %v", rec.cmd.Path, err)
}

// abortStarted kills and reaps every stage that made it to stateRunning
// after a later stage failed to spawn.
func (e *Engine) abortStarted(records []*stageRec) {
	for _, rec := range records {
		if rec.state != stateRunning {
			continue
		}
		rec.cmd.Process.Kill()
		rec.cmd.Wait()
		rec.state = stateReaped
	}
}

// drain owns one interpreter-read pipe and the buffer it accumulates
// into. The buffer is published to the engine when the goroutine joins.
type drain struct {
	r     io.Reader
	limit int64
	what  string

	buf bytes.Buffer
	err error
}

func (d *drain) run() {
	n, err := io.Copy(&d.buf, io.LimitReader(d.r, d.limit))
	if err != nil {
		d.err = err
		return
	}
	if n == d.limit {
		// Check for one byte past the limit before declaring overflow.
		var probe [1]byte
		if m, _ := d.r.Read(probe[:]); m > 0 {
			d.err = fmt.Errorf("capture exceeds the %d byte limit", d.limit)
			// Keep consuming so the child does not block on a full pipe.
			io.Copy(io.Discard, d.r)
		}
	}
}

// lockedWriter serializes concurrent writes from per-child copiers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type openedSource struct {
	reader io.Reader
	file   afero.File
}

func (e *Engine) openSource(src *Source) (openedSource, error) {
	if src == nil {
		return openedSource{}, nil
	}
	switch src.Kind {
	case SourceLiteral:
		return openedSource{reader: strings.NewReader(src.Literal)}, nil
	case SourceFile:
		f, err := e.Fs.Open(src.Path)
		if err != nil {
			return openedSource{}, ioError("cannot open %q: %v", src.Path, err)
		}
		return openedSource{reader: f, file: f}, nil
	}
	return openedSource{}, ioError("unknown source kind")
}

func (e *Engine) openDest(dest *Dest) (afero.File, error) {
	switch dest.Kind {
	case DestWrite:
		f, err := e.Fs.OpenFile(dest.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, ioError("cannot write %q: %v", dest.Path, err)
		}
		return f, nil
	case DestAppend:
		f, err := e.Fs.OpenFile(dest.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, ioError("cannot append to %q: %v", dest.Path, err)
		}
		return f, nil
	}
	return nil, ioError("unknown destination kind")
}

// runEndpointsOnly handles plans with no command stages: the source is
// copied straight to the destination, or becomes the pipeline's value.
func (e *Engine) runEndpointsOnly(plan *Plan) (*Output, error) {
	source, err := e.openSource(plan.Source)
	if err != nil {
		return nil, err
	}
	if source.file != nil {
		defer source.file.Close()
	}
	var reader io.Reader = strings.NewReader("")
	if source.reader != nil {
		reader = source.reader
	}

	if plan.Dest != nil {
		destFile, err := e.openDest(plan.Dest)
		if err != nil {
			return nil, err
		}
		defer destFile.Close()
		if _, err := io.Copy(destFile, reader); err != nil {
			return nil, ioError("copying to %q: %v", plan.Dest.Path, err)
		}
		return &Output{}, nil
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(reader, e.maxCapture()+1))
	if err != nil {
		return nil, ioError("reading pipeline source: %v", err)
	}
	if n > e.maxCapture() {
		return nil, ioError("capture exceeds the %d byte limit", e.maxCapture())
	}
	return &Output{Stdout: buf.String()}, nil
}
