// Package config holds the interpreter's optional configuration file.
package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigurationName is the file the interpreter looks for in its working
// directory unless --config points elsewhere.
const ConfigurationName = "nash.yaml"

// Configuration tunes the interpreter. Every field has a workable default;
// scripts run fine with no configuration file at all.
type Configuration struct {
	// Env lists extra KEY=VALUE pairs passed to child processes.
	Env []string `json:"env" validate:"dive,contains=="`

	// PassEnvironment forwards the interpreter's own environment to child
	// processes. Defaults to true.
	PassEnvironment *bool `json:"pass_environment"`

	// MaxCaptureBytes bounds captured stdout/stderr buffers. Zero keeps
	// the engine default.
	MaxCaptureBytes int64 `json:"max_capture_bytes" validate:"gte=0"`

	// TraceLog is a path that receives a JSON-lines log of every pipeline
	// the script runs. Empty disables tracing.
	TraceLog string `json:"trace_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// PassesEnvironment resolves the PassEnvironment default of true.
func (c *Configuration) PassesEnvironment() bool {
	return c.PassEnvironment == nil || *c.PassEnvironment
}
