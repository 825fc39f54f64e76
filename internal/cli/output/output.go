// Package output renders validation results and error classifications for
// the terminal. Output adapts to the environment: styled tables on a TTY,
// JSON when piped or when explicitly requested.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sqlscope-dev/sqlscope/pkg/errctx"
	"github.com/sqlscope-dev/sqlscope/pkg/validator"
)

// Mode selects the rendering format.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Renderer writes formatted output to a destination pair.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
}

// NewRenderer creates a renderer. ModeAuto resolves to text when out is a
// terminal and JSON otherwise, so piping always yields machine-readable
// output.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" || mode == ModeAuto {
		mode = ModeJSON
		if f, ok := out.(*os.File); ok {
			if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
				mode = ModeText
			}
		}
	}
	return &Renderer{out: out, errOut: errOut, mode: mode}
}

// Mode returns the resolved rendering mode.
func (r *Renderer) Mode() Mode { return r.mode }

// ValidationResult renders one validation result.
func (r *Renderer) ValidationResult(res validator.Result) error {
	if r.mode == ModeJSON {
		return r.renderJSON(res)
	}

	if res.Valid() {
		fmt.Fprintln(r.out, text.FgGreen.Sprint("✓ valid"))
	} else {
		fmt.Fprintln(r.out, text.FgRed.Sprintf("✗ %d error(s)", len(res.Errors)))
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"TAG", "CATEGORY", "MESSAGE", "CONTEXT"})
		for _, e := range res.Errors {
			t.AppendRow(table.Row{string(e.Tag), string(e.Category()), e.Message, e.Context})
		}
		t.Render()
	}

	if res.Metadata != nil {
		md := res.Metadata
		fmt.Fprintf(r.out, "complexity %d, signature %s", md.ComplexityScore, md.PatternSignature)
		if len(md.Tables) > 0 {
			fmt.Fprintf(r.out, ", tables %s", strings.Join(md.Tables, ", "))
		}
		fmt.Fprintln(r.out)
	}
	return nil
}

// ErrorContext renders a runtime error classification.
func (r *Renderer) ErrorContext(ctx *errctx.Context) error {
	if r.mode == ModeJSON {
		return r.renderJSON(ctx)
	}

	if ctx.SQLState != "" {
		fmt.Fprintf(r.out, "sqlstate %s (%s)\n", ctx.SQLState, ctx.Category())
	} else {
		fmt.Fprintf(r.out, "no sqlstate (%s)\n", ctx.Category())
	}

	if len(ctx.Tags) == 0 {
		fmt.Fprintln(r.out, "no candidate tags")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"TAG", "SOURCE", "CONFIDENCE"})
	for _, tag := range ctx.Tags {
		t.AppendRow(table.Row{string(tag.Tag), tag.Source, fmt.Sprintf("%.2f", tag.Confidence)})
	}
	t.Render()
	return nil
}

// Error writes a failure message to the error stream.
func (r *Renderer) Error(format string, args ...any) {
	fmt.Fprintf(r.errOut, text.FgRed.Sprint("Error: ")+format+"\n", args...)
}

func (r *Renderer) renderJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
