// Package log implements utility methods for logging in a colorful manner.
package log

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// FancyLogFormatter is the default log formatter of sniffcap.
type FancyLogFormatter struct {
	UseColors bool

	// ShowCaller adds the file and line of the log call.
	ShowCaller bool
}

var symbolTable = map[logrus.Level]string{
	logrus.DebugLevel: "⚙",
	logrus.InfoLevel:  "⚐",
	logrus.WarnLevel:  "⚠",
	logrus.ErrorLevel: "⚡",
	logrus.FatalLevel: "☣",
	logrus.PanicLevel: "☠",
}

var colorTable = map[logrus.Level]*color.Color{
	logrus.DebugLevel: color.New(color.FgCyan),
	logrus.InfoLevel:  color.New(color.FgGreen),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgMagenta),
	logrus.PanicLevel: color.New(color.FgMagenta),
}

func (flf *FancyLogFormatter) colored(level logrus.Level, msg string) string {
	c, ok := colorTable[level]
	if !flf.UseColors || !ok {
		return msg
	}

	// Force the escape codes, no matter what color.NoColor says.
	c.EnableColor()
	return c.Sprint(msg)
}

func formatTimestamp(buf *bytes.Buffer, t time.Time) {
	fmt.Fprintf(buf, "%02d.%02d.%04d/%02d:%02d:%02d", t.Day(), t.Month(), t.Year(), t.Hour(), t.Minute(), t.Second())
}

func (flf *FancyLogFormatter) formatFields(buf *bytes.Buffer, entry *logrus.Entry) {
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	buf.WriteString(" [")
	for idx, key := range keys {
		if idx > 0 {
			buf.WriteByte(' ')
		}

		buf.WriteString(flf.colored(entry.Level, key))
		buf.WriteByte('=')

		switch v := entry.Data[key].(type) {
		case error:
			buf.WriteString(flf.colored(logrus.ErrorLevel, v.Error()))
		default:
			fmt.Fprintf(buf, "%v", v)
		}
	}

	buf.WriteByte(']')
}

// findCaller walks up the stack until it leaves logrus
// and this file; the first frame after that did the log call.
func findCaller() (string, int, bool) {
	pcs := make([]uintptr, 20)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, "sirupsen/logrus") &&
			!strings.HasSuffix(frame.File, "util/log/logger.go") {
			const tag = "sniffcap/"
			if idx := strings.LastIndex(frame.File, tag); idx != -1 {
				return frame.File[idx+len(tag):], frame.Line, true
			}

			return filepath.Base(frame.File), frame.Line, frame.File != ""
		}

		if !more {
			break
		}
	}

	return "", 0, false
}

// Format logs a single entry according to our formatting ideas.
func (flf *FancyLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefix := &bytes.Buffer{}
	formatTimestamp(prefix, entry.Time)
	prefix.WriteByte(' ')
	prefix.WriteString(symbolTable[entry.Level])

	buf := &bytes.Buffer{}
	buf.WriteString(flf.colored(entry.Level, prefix.String()))

	if flf.ShowCaller {
		if file, line, ok := findCaller(); ok {
			fmt.Fprintf(buf, " %s:%d:", file, line)
		}
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		flf.formatFields(buf, entry)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Setup points the standard logger to `w`, formatted by FancyLogFormatter.
// `level` is one of logrus' level names.
func Setup(w io.Writer, level string, useColors bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetOutput(w)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&FancyLogFormatter{
		UseColors:  useColors,
		ShowCaller: lvl == logrus.DebugLevel,
	})

	return nil
}
