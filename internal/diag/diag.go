// Package diag implements the compiler's diagnostic sink: positioned,
// severity-tagged messages with a source excerpt, and a per-file context
// stack so that messages about an imported file cite the right source.
package diag

import (
	"fmt"
	"strings"

	"github.com/alexisbouchez/linguaiter/internal/token"
)

// Severity distinguishes fatal diagnostics from advisory ones.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one positioned, formatted message.
type Diagnostic struct {
	Pos      token.Position
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// fileContext holds the source of one file so excerpts can be rendered for
// diagnostics raised while processing it.
type fileContext struct {
	name string
	src  []byte
}

// Bag accumulates diagnostics for one compilation run. The first Error
// appended is fatal: callers should stop walking the AST once HasErrors
// returns true, but the Bag itself keeps collecting so a caller can report
// everything gathered so far.
type Bag struct {
	diags []Diagnostic
	stack []fileContext
	files map[string][]byte // every file ever pushed, kept for Excerpt after PopFile
}

// NewBag creates an empty diagnostic bag.
func NewBag() *Bag { return &Bag{} }

// PushFile makes name/src the current file context; diagnostics raised until
// the matching PopFile cite this file's excerpt when rendered with Excerpt.
// The source is retained for the life of the Bag (not just while pushed), so
// Excerpt still works once compilation has finished and every file has been
// popped back off the stack.
func (b *Bag) PushFile(name string, src []byte) {
	b.stack = append(b.stack, fileContext{name, src})
	if b.files == nil {
		b.files = make(map[string][]byte)
	}
	b.files[name] = src
}

// PopFile pops the most recently pushed file context.
func (b *Bag) PopFile() {
	if len(b.stack) > 0 {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// Errorf appends a fatal diagnostic at pos.
func (b *Bag) Errorf(pos token.Position, format string, args ...interface{}) {
	b.diags = append(b.diags, Diagnostic{Pos: pos, Severity: Error, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends an advisory diagnostic at pos.
func (b *Bag) Warnf(pos token.Position, format string, args ...interface{}) {
	b.diags = append(b.diags, Diagnostic{Pos: pos, Severity: Warning, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any fatal diagnostic has been recorded.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every diagnostic recorded so far, in emission order.
func (b *Bag) All() []Diagnostic { return b.diags }

// Excerpt returns the source line referenced by pos, looked up by filename
// among every file this Bag has ever seen via PushFile, or "" if unavailable.
func (b *Bag) Excerpt(pos token.Position) string {
	src, ok := b.files[pos.Filename]
	if !ok {
		return ""
	}
	lines := strings.Split(string(src), "\n")
	if pos.Line >= 1 && pos.Line <= len(lines) {
		return lines[pos.Line-1]
	}
	return ""
}

// Error implements the error interface so a Bag with fatal diagnostics can be
// returned directly from a compile entry point.
func (b *Bag) Error() string {
	var sb strings.Builder
	for i, d := range b.diags {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.String())
		if excerpt := b.Excerpt(d.Pos); excerpt != "" {
			sb.WriteString("\n\t")
			sb.WriteString(strings.TrimSpace(excerpt))
		}
	}
	return sb.String()
}
