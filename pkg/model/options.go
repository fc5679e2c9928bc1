// Package model holds the value types exchanged between treeclone's operators and their callers.
package model

import (
	"strings"

	"github.com/jvs-project/treeclone/pkg/errclass"
)

// Scope limits which source entries a clone or verification considers.
type Scope struct {
	MaxDepth int      `yaml:"max_depth" mapstructure:"max_depth" json:"max_depth,omitempty"` // 0 = unlimited
	Exclude  []string `yaml:"exclude" mapstructure:"exclude" json:"exclude,omitempty"`       // gitignore-style, matched on the relative path
}

// Options configures a clone. The zero value equals Default.
type Options struct {
	OverwriteExistingFiles bool `yaml:"overwrite_existing_files" mapstructure:"overwrite_existing_files" json:"overwrite_existing_files"`
	ContinueOnError        bool `yaml:"continue_on_error" mapstructure:"continue_on_error" json:"continue_on_error"`
	Scope                  `yaml:",inline" mapstructure:",squash"`
}

// Default is recursive, non-overwriting and fail-fast.
var Default = Options{}

// DefaultOptions returns a copy of Default.
func DefaultOptions() Options {
	return Default
}

// Validate rejects option values no clone can honor.
func (o Options) Validate() error {
	return o.Scope.Validate()
}

// Validate rejects a negative depth and unusable exclude patterns.
func (s Scope) Validate() error {
	if s.MaxDepth < 0 {
		return errclass.InvalidPath("", "max depth must not be negative: %d", s.MaxDepth)
	}
	for _, p := range s.Exclude {
		if strings.TrimSpace(p) == "" {
			return errclass.InvalidPath(p, "exclude pattern must not be blank")
		}
		if strings.ContainsRune(p, 0) {
			return errclass.InvalidPath(p, "exclude pattern must not contain NUL")
		}
	}
	return nil
}
