// Package template expands placeholders in configured job paths, so a
// batch job can clone into a fresh dated destination on every run.
package template

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Vars are placeholder values; they override the built-in ones.
type Vars map[string]string

var placeholder = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// Builtins returns the placeholders available in every path at now:
//
//	{date}      2006-01-02
//	{time}      150405
//	{datetime}  2006-01-02T150405
//	{unix}      seconds since the epoch
//	{hostname}  host name without its domain
//
// Times are rendered in UTC. Time values avoid ":" so they are valid in
// file names everywhere.
func Builtins(now time.Time) Vars {
	now = now.UTC()
	host := "unknown"
	if h, err := os.Hostname(); err == nil {
		host = strings.Split(h, ".")[0]
	}
	return Vars{
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("150405"),
		"datetime": now.Format("2006-01-02T150405"),
		"unix":     strconv.FormatInt(now.Unix(), 10),
		"hostname": host,
	}
}

// Expand replaces every {name} in text. An unknown placeholder is an error,
// so a typo never ends up as a literal directory name.
func Expand(text string, now time.Time, vars Vars) (string, error) {
	values := Builtins(now)
	for k, v := range vars {
		values[k] = v
	}

	var unknown []string
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := values[name]
		if !ok {
			unknown = append(unknown, m)
			return m
		}
		return v
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown placeholder %s in %q", strings.Join(unknown, ", "), text)
	}
	return out, nil
}
