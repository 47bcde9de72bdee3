// internal/format/format.go

// Package format turns log records into text lines.
package format

import (
	"bytes"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/orgoj/rotalog/internal/level"
)

const (
	DefaultTimeLayout = "2006-01-02 15:04:05.000000"
	truncatedSuffix   = "...truncated"
)

// CallSite identifies where a record was emitted.
type CallSite struct {
	File     string
	Function string
	Line     int
}

// Record is one log event before formatting.
type Record struct {
	Time      time.Time
	Goroutine uint64
	Site      CallSite
	Level     level.Level
	Message   string
}

// NewRecord stamps a record with the current time and goroutine.
func NewRecord(site CallSite, l level.Level, msg string) Record {
	return Record{
		Time:      time.Now(),
		Goroutine: GoroutineID(),
		Site:      site,
		Level:     l,
		Message:   msg,
	}
}

// Formatter renders a record as a single newline terminated line.
type Formatter interface {
	Format(r Record) string
}

// Text is the default line format:
//
//	2024-01-02 15:04:05.000000 [info]  message <In Function: main.run, File: main.go, Line: 42, GID: 1>
type Text struct {
	TimeLayout       string
	MaxMessageLength int
}

func (f Text) Format(r Record) string {
	layout := f.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	msg := r.Message
	if f.MaxMessageLength > 0 {
		msg = truncateString(msg, f.MaxMessageLength)
	}

	var sb strings.Builder
	sb.Grow(len(msg) + 128)
	sb.WriteString(r.Time.Format(layout))
	sb.WriteByte(' ')
	sb.WriteString(r.Level.Tag())
	sb.WriteByte(' ')
	sb.WriteString(msg)
	sb.WriteString(" <In Function: ")
	sb.WriteString(r.Site.Function)
	sb.WriteString(", File: ")
	sb.WriteString(filepath.Base(r.Site.File))
	sb.WriteString(", Line: ")
	sb.WriteString(strconv.Itoa(r.Site.Line))
	sb.WriteString(", GID: ")
	sb.WriteString(strconv.FormatUint(r.Goroutine, 10))
	sb.WriteString(">\n")
	return sb.String()
}

// truncateString cuts s to at most maxLength bytes, ending with a marker when
// there is room for it. The cut never splits a UTF-8 sequence.
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= len(truncatedSuffix) {
		return s[:runeBoundary(s, maxLength)]
	}
	return s[:runeBoundary(s, maxLength-len(truncatedSuffix))] + truncatedSuffix
}

func runeBoundary(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// Caller returns the call site skip frames above the caller of Caller.
func Caller(skip int) CallSite {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return CallSite{File: "???", Function: "???"}
	}
	site := CallSite{File: file, Line: line, Function: "???"}
	if fn := runtime.FuncForPC(pc); fn != nil {
		site.Function = shortFuncName(fn.Name())
	}
	return site
}

// shortFuncName drops the import path: "github.com/a/b/pkg.(*T).M" -> "pkg.(*T).M".
func shortFuncName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

var goroutinePrefix = []byte("goroutine ")

// GoroutineID returns the id of the calling goroutine, or 0 if it cannot be
// determined.
func GoroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
