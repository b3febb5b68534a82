// Package rtpslog wraps logrus with a formatter that reproduces the
// teacher's pkg/logger console texture — timestamped, colored, leveled
// lines plus Banner/Section helpers for startup — while giving every
// package a structured logrus.Entry to log through instead of the
// teacher's package-level Printf-style functions.
package rtpslog

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// ANSI color codes, carried over from the teacher's pkg/logger.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorWhite  = "\033[37m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// ConsoleFormatter renders logrus entries in the teacher's
// "[HH:MM:SS] [LEVEL] message field=value ..." shape with level-colored
// brackets, instead of logrus's default key=value-only text formatter.
type ConsoleFormatter struct{}

func (ConsoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	color := colorWhite
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		color = colorGray
	case logrus.WarnLevel:
		color = colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		color = colorRed
	}
	if lvl, ok := e.Data["success"]; ok && lvl == true {
		color = colorGreen
	}

	out := fmt.Sprintf("%s[%s]%s %s[%s]%s %s",
		colorGray, e.Time.Format("15:04:05"), colorReset,
		color, levelLabel(e.Level), colorReset,
		e.Message)
	for k, v := range e.Data {
		if k == "success" {
			continue
		}
		out += fmt.Sprintf(" %s=%v", k, v)
	}
	return []byte(out + "\n"), nil
}

func levelLabel(l logrus.Level) string {
	switch l {
	case logrus.DebugLevel, logrus.TraceLevel:
		return "DEBUG"
	case logrus.WarnLevel:
		return "WARN"
	case logrus.ErrorLevel:
		return "ERROR"
	case logrus.FatalLevel, logrus.PanicLevel:
		return "FATAL"
	default:
		return "INFO"
	}
}

// New returns a logrus.Logger configured with ConsoleFormatter, writing to
// out.
func New(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(ConsoleFormatter{})
	return l
}

// Section prints a boxed section header to out, matching the teacher's
// pkg/logger.Section banner shape.
func Section(out io.Writer, title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Fprintf(out, "\n%s╔%s╗%s\n", colorCyan, border, colorReset)
	fmt.Fprintf(out, "%s║%s %-57s %s║%s\n", colorCyan, colorReset, title, colorCyan, colorReset)
	fmt.Fprintf(out, "%s╚%s╝%s\n\n", colorCyan, border, colorReset)
}

// Banner prints the startup banner to out, reusing the teacher's ASCII art
// with the "SA:MP" wordmark swapped for "RTPS".
func Banner(out io.Writer, title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██████╗ ████████╗██████╗ ███████╗                      ║
║   ██╔══██╗╚══██╔══╝██╔══██╗██╔════╝                      ║
║   ██████╔╝   ██║   ██████╔╝███████╗                      ║
║   ██╔══██╗   ██║   ██╔═══╝ ╚════██║                      ║
║   ██║  ██║   ██║   ██║     ███████║                      ║
║   ╚═╝  ╚═╝   ╚═╝   ╚═╝     ╚══════╝                      ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Fprintf(out, banner, colorCyan, title, colorReset, colorGreen, version, colorReset)
}
