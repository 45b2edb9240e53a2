package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigError describes why a config file could not be used. A file that
// fails to parse is not validated, so Parse excludes Missing and Errors.
type ConfigError struct {
	Path    string   // config file path
	Missing []string // unresolved ${VAR} references
	Errors  []string // validation failures, one per setting
	Parse   error    // TOML syntax error
}

func (e *ConfigError) Error() string {
	problems := e.Problems()
	if len(problems) == 0 {
		return ""
	}
	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "config %s:", e.Path)
	} else {
		b.WriteString("config:")
	}
	if len(problems) == 1 {
		b.WriteString(" " + problems[0])
		return b.String()
	}
	for _, p := range problems {
		b.WriteString("\n  - " + p)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Parse }

// HasErrors reports whether the error carries any problem.
func (e *ConfigError) HasErrors() bool {
	return e.Parse != nil || len(e.Missing) > 0 || len(e.Errors) > 0
}

// Problems lists every problem as one line, syntax errors first with their
// line number.
func (e *ConfigError) Problems() []string {
	var out []string
	if e.Parse != nil {
		var perr toml.ParseError
		if errors.As(e.Parse, &perr) {
			out = append(out, fmt.Sprintf("parsing config: line %d: %s", perr.Position.Line, perr.Message))
		} else {
			out = append(out, "parsing config: "+e.Parse.Error())
		}
	}
	for _, m := range e.Missing {
		out = append(out, "environment variable not set: "+m)
	}
	out = append(out, e.Errors...)
	return out
}
