// Package core ties the interpreter together: source text in, observable
// side effects and an exit code out.
package core

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/nashlang/nash/core/check"
	"github.com/nashlang/nash/core/config"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/eval"
	"github.com/nashlang/nash/core/logger"
	"github.com/nashlang/nash/core/parser"
)

// Interp runs Nash scripts. The zero value is not usable; construct one
// with NewInterp.
type Interp struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Configuration
	environ []string
	dir     string

	toClose []io.Closer
}

// Option adjusts an Interp.
type Option func(*Interp)

// WithStdio replaces the interpreter's standard streams.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(i *Interp) {
		i.stdin = stdin
		i.stdout = stdout
		i.stderr = stderr
	}
}

// WithConfig installs a loaded configuration.
func WithConfig(cfg *config.Configuration) Option {
	return func(i *Interp) {
		i.cfg = cfg
	}
}

// WithEnviron sets the base environment passed to child processes.
func WithEnviron(environ []string) Option {
	return func(i *Interp) {
		i.environ = environ
	}
}

// WithDir sets the working directory for child processes. File endpoint
// and glob paths are resolved by the filesystem, not against this
// directory.
func WithDir(dir string) Option {
	return func(i *Interp) {
		i.dir = dir
	}
}

// NewInterp builds an interpreter over the given filesystem.
func NewInterp(fs afero.Fs, opts ...Option) *Interp {
	i := &Interp{
		fs:     fs,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		cfg:    config.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CheckScript lexes, parses, and post-processes a script without running
// it.
func (i *Interp) CheckScript(src string) error {
	prog, err := parser.Parse(src)
	if err != nil {
		return err
	}
	return check.Check(prog)
}

// RunScript executes a script and returns its exit code: 0 on success, 1
// with a non-nil error on any interpreter error, or the code the script
// passed to exit.
func (i *Interp) RunScript(ctx context.Context, src string) (int, error) {
	defer i.close()

	prog, err := parser.Parse(src)
	if err != nil {
		return 1, err
	}
	if err := check.Check(prog); err != nil {
		return 1, err
	}

	var env []string
	if i.cfg.PassesEnvironment() {
		env = append(env, i.environ...)
	} else {
		// Non-nil so the child gets an empty environment rather than
		// inheriting the interpreter's.
		env = []string{}
	}
	env = append(env, i.cfg.Env...)

	var tracer eval.Tracer
	if i.cfg.TraceLog != "" {
		f, err := i.fs.OpenFile(i.cfg.TraceLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return 1, &diag.Error{Kind: diag.IOError, Msg: "cannot open trace log: " + err.Error()}
		}
		i.toClose = append(i.toClose, f)
		tracer = logger.New(f)
	}

	machine := eval.New(prog, eval.Options{
		Fs:         i.fs,
		Stdin:      i.stdin,
		Stdout:     i.stdout,
		Stderr:     i.stderr,
		Env:        env,
		Dir:        i.dir,
		MaxCapture: i.cfg.MaxCaptureBytes,
		Tracer:     tracer,
	})
	return machine.Run(ctx)
}

func (i *Interp) close() {
	for _, c := range i.toClose {
		c.Close()
	}
	i.toClose = nil
}

// Diagnose renders any interpreter error as the single diagnostic line
// written to stderr.
func Diagnose(err error, file string) string {
	if de, ok := err.(*diag.Error); ok {
		return de.Format(file)
	}
	return (&diag.Error{Kind: diag.RuntimeError, Msg: err.Error()}).Format(file)
}
