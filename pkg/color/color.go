// Package color provides terminal color output for the treeclone CLI.
// It respects the NO_COLOR environment variable (https://no-color.org/) and
// stays off when stdout is not a terminal.
package color

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

var state struct {
	mu      sync.RWMutex
	once    sync.Once
	enabled bool
}

// Init decides once whether color output is enabled.
func Init(noColorFlag bool) {
	state.once.Do(func() {
		enabled := !noColorFlag
		if _, exists := os.LookupEnv("NO_COLOR"); exists {
			enabled = false
		}
		if os.Getenv("TERM") == "dumb" {
			enabled = false
		}
		fd := os.Stdout.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			enabled = false
		}
		state.mu.Lock()
		state.enabled = enabled
		state.mu.Unlock()
	})
}

// Enabled returns true if color output is enabled.
func Enabled() bool {
	Init(false)
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.enabled
}

// Disable turns off color output.
func Disable() {
	set(false)
}

// Enable turns on color output.
func Enable() {
	set(true)
}

func set(enabled bool) {
	state.once.Do(func() {})
	state.mu.Lock()
	state.enabled = enabled
	state.mu.Unlock()
}

// ANSI codes
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	DimCode = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
)

type colorFunc func(string) string

func makeColorFunc(codes ...string) colorFunc {
	code := strings.Join(codes, "")
	return func(s string) string {
		if !Enabled() {
			return s
		}
		return code + s + Reset
	}
}

var (
	redf    = makeColorFunc(Red)
	greenf  = makeColorFunc(Green)
	yellowf = makeColorFunc(Yellow)
	cyanf   = makeColorFunc(Cyan)
	boldf   = makeColorFunc(Bold)
	dimf    = makeColorFunc(DimCode)
)

// Success formats a success message in green.
func Success(s string) string {
	return greenf(s)
}

// Successf formats a success message with printf-style arguments.
func Successf(format string, args ...any) string {
	return greenf(fmt.Sprintf(format, args...))
}

// Error formats an error message in red.
func Error(s string) string {
	return redf(s)
}

// Errorf formats an error message with printf-style arguments.
func Errorf(format string, args ...any) string {
	return redf(fmt.Sprintf(format, args...))
}

// Warning formats a warning message in yellow.
func Warning(s string) string {
	return yellowf(s)
}

// Warningf formats a warning message with printf-style arguments.
func Warningf(format string, args ...any) string {
	return yellowf(fmt.Sprintf(format, args...))
}

// Path formats a site path in cyan.
func Path(s string) string {
	return cyanf(s)
}

// Header formats a header in bold.
func Header(s string) string {
	return boldf(s)
}

// Dim formats secondary information.
func Dim(s string) string {
	return dimf(s)
}
