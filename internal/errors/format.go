package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiRed   = "\033[31m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
)

var colored = true

// SetColor turns ANSI colors in Format and Fprint on or off.
func SetColor(on bool) {
	colored = on
}

func paint(code, s string) string {
	if !colored {
		return s
	}
	return code + s + ansiReset
}

// detailWidth is the column Format wraps details at.
const detailWidth = 70

// Format renders the error for a terminal: a headline, then the location,
// detail, cause, hint and documentation link when present.
func (e *VangoError) Format() string {
	var b strings.Builder

	head := "ERROR"
	if e.Code != "" {
		head += " " + e.Code
	}
	fmt.Fprintf(&b, "\n%s %s\n\n", paint(ansiRed+ansiBold, head+":"), e.Message)

	section := func(label, value, code string) {
		if value == "" {
			return
		}
		b.WriteString("  ")
		if label != "" {
			b.WriteString(paint(ansiGray, label+": "))
		}
		b.WriteString(paint(code, value))
		b.WriteString("\n\n")
	}

	section("", e.Location.String(), ansiCyan)
	if lines := wrapText(e.Detail, detailWidth); len(lines) > 0 {
		section("", strings.Join(lines, "\n  "), "")
	}
	if e.Wrapped != nil {
		section("Caused by", e.Wrapped.Error(), "")
	}
	section("Hint", e.Suggestion, ansiCyan)
	section("Learn more", e.DocURL, ansiBlue)

	return strings.TrimSuffix(b.String(), "\n")
}

// FormatCompact renders the error on one line: location, code and message.
func (e *VangoError) FormatCompact() string {
	parts := make([]string, 0, 3)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

type jsonLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON renders the error as a JSON object for HTTP responses.
func (e *VangoError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if l := e.Location; l != nil {
		out.Location = &jsonLocation{File: l.File, Line: l.Line}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText splits text into lines of at most width bytes, breaking at
// spaces. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Fprint writes err to w. A *VangoError anywhere in err's chain is written
// with Format, so its hint and documentation link are kept.
func Fprint(w io.Writer, err error) {
	var ve *VangoError
	if errors.As(err, &ve) {
		if outer := err.Error(); outer != ve.Error() {
			fmt.Fprintf(w, "\n%s\n", outer)
		}
		fmt.Fprintln(w, ve.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint(ansiRed+ansiBold, "ERROR:"), err)
}

// PrintError writes err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
