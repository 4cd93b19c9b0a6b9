// Package logger records the pipelines a script runs as a JSON-lines
// trace, one object per line so the log can be tailed and grepped.
package logger

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/nashlang/nash/core/pipeline"
)

// Entry is one line of the trace log.
type Entry struct {
	Time   string   `json:"time"`
	Event  string   `json:"event"`
	Stages []string `json:"stages,omitempty"`
	Source string   `json:"source,omitempty"`
	Dest   string   `json:"dest,omitempty"`

	ExitCodes []int  `json:"exit_codes,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Logger writes trace entries. It implements the evaluator's Tracer.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// New builds a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

func (l *Logger) record(entry *Entry) {
	entry.Time = l.now().UTC().Format(time.RFC3339)

	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.w.Write(append(data, '\n'))
}

func describePlan(plan *pipeline.Plan, entry *Entry) {
	for _, stage := range plan.Stages {
		entry.Stages = append(entry.Stages, stage.Program)
	}
	if plan.Source != nil {
		switch plan.Source.Kind {
		case pipeline.SourceLiteral:
			entry.Source = "literal"
		case pipeline.SourceFile:
			entry.Source = plan.Source.Path
		}
	}
	if plan.Dest != nil {
		entry.Dest = plan.Dest.Path
	}
}

// PipelineStarted records a pipeline about to run.
func (l *Logger) PipelineStarted(plan *pipeline.Plan) {
	entry := &Entry{Event: "pipeline_started"}
	describePlan(plan, entry)
	l.record(entry)
}

// PipelineFinished records a pipeline's outcome.
func (l *Logger) PipelineFinished(plan *pipeline.Plan, out *pipeline.Output, err error) {
	entry := &Entry{Event: "pipeline_finished"}
	describePlan(plan, entry)
	if out != nil {
		for _, stage := range out.Stages {
			entry.ExitCodes = append(entry.ExitCodes, stage.ExitCode)
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	l.record(entry)
}
