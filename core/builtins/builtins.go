// Package builtins implements the built-in functions and methods of the
// Nash runtime. Functions register themselves into a registry keyed by
// name; methods dispatch on the receiver's kind.
package builtins

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/value"
)

// Context is the slice of interpreter state built-ins may touch.
type Context struct {
	Fs     afero.Fs
	Stdin  *bufio.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Func is a registered built-in function.
type Func struct {
	Name   string
	Params []value.Type
	Result value.Type
	Run    func(ctx *Context, args []value.Value) (value.Value, error)
}

// registry holds all built-in functions by name.
var registry = make(map[string]*Func)

func register(f *Func) {
	registry[f.Name] = f
}

// Lookup returns the built-in function with the given name.
func Lookup(name string) (*Func, bool) {
	f, ok := registry[name]
	return f, ok
}

// Call runs a built-in function. The post-processor has already checked
// arity and argument types.
func Call(ctx *Context, name string, args []value.Value) (value.Value, error) {
	f, ok := registry[name]
	if !ok {
		return value.Unit, fmt.Errorf("no built-in function named %q", name)
	}
	return f.Run(ctx, args)
}

func init() {
	register(&Func{
		Name:   "out",
		Params: []value.Type{value.StringType},
		Result: value.UnitType,
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			if _, err := fmt.Fprintln(ctx.Stdout, args[0].Str); err != nil {
				return value.Unit, &diag.Error{Kind: diag.IOError, Msg: fmt.Sprintf("writing to stdout: %v", err)}
			}
			return value.Unit, nil
		},
	})

	register(&Func{
		Name:   "err",
		Params: []value.Type{value.StringType},
		Result: value.UnitType,
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			if _, err := fmt.Fprintln(ctx.Stderr, args[0].Str); err != nil {
				return value.Unit, &diag.Error{Kind: diag.IOError, Msg: fmt.Sprintf("writing to stderr: %v", err)}
			}
			return value.Unit, nil
		},
	})

	register(&Func{
		Name:   "read",
		Params: nil,
		Result: value.StringType,
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			line, err := ctx.Stdin.ReadString('\n')
			if err != nil && err != io.EOF {
				return value.Unit, &diag.Error{Kind: diag.IOError, Msg: fmt.Sprintf("reading from stdin: %v", err)}
			}
			if strings.HasSuffix(line, "\n") {
				line = strings.TrimSuffix(line, "\n")
				line = strings.TrimSuffix(line, "\r")
			}
			return value.Str(line), nil
		},
	})

	register(&Func{
		Name:   "parse_int",
		Params: []value.Type{value.StringType},
		Result: value.IntType,
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			n, err := strconv.ParseInt(args[0].Str, 10, 64)
			if err != nil {
				return value.Unit, &diag.Error{Kind: diag.RuntimeError, Msg: fmt.Sprintf("cannot parse %q as an integer", args[0].Str)}
			}
			return value.Int(n), nil
		},
	})

	register(&Func{
		Name:   "open",
		Params: []value.Type{value.StringType},
		Result: value.FileType,
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			return value.Value{Kind: value.KindFile, File: &value.File{Path: args[0].Str, Mode: value.FileOpen}}, nil
		},
	})

	register(&Func{
		Name:   "write",
		Params: []value.Type{value.StringType},
		Result: value.FileType,
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			return value.Value{Kind: value.KindFile, File: &value.File{Path: args[0].Str, Mode: value.FileWrite}}, nil
		},
	})

	register(&Func{
		Name:   "append",
		Params: []value.Type{value.StringType},
		Result: value.FileType,
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			return value.Value{Kind: value.KindFile, File: &value.File{Path: args[0].Str, Mode: value.FileAppend}}, nil
		},
	})

	register(&Func{
		Name:   "glob",
		Params: []value.Type{value.StringType},
		Result: value.ArrayType(value.StringType, false),
		Run: func(ctx *Context, args []value.Value) (value.Value, error) {
			matches, err := afero.Glob(ctx.Fs, args[0].Str)
			if err != nil {
				return value.Unit, &diag.Error{Kind: diag.RuntimeError, Msg: fmt.Sprintf("invalid glob pattern %q: %v", args[0].Str, err)}
			}
			sort.Strings(matches)
			elems := make([]value.Value, len(matches))
			for i, m := range matches {
				elems[i] = value.Str(m)
			}
			return value.NewArray(elems, false), nil
		},
	})
}
