package msgspec

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/msgkit/genlisp/internal/resolve"
	"github.com/msgkit/genlisp/internal/symbol"
)

// Spec is the parsed model of one message schema file. Field-level analysis
// (types, arrays, constants, cross-package references) belongs to the
// serialization code generator; this model carries what the package-level
// artifacts need: the owning package, the message name, and the full
// definition text.
type Spec struct {
	Package    string
	Name       string
	Definition string
}

// Parse reads and validates the schema file at path for the given package
// and message name.
func Parse(path, pkg, name string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	if !hasDefinition(string(raw)) {
		return nil, fmt.Errorf("schema file %s contains no field definitions", path)
	}

	return &Spec{
		Package:    pkg,
		Name:       name,
		Definition: string(raw),
	}, nil
}

// hasDefinition reports whether the schema text contains at least one line
// that is neither blank nor a comment.
func hasDefinition(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return true
	}
	return false
}

// EmitBinding writes the Lisp binding source for the message: the message
// class and its full definition text. Serialization methods are filled in by
// the field-level generator downstream.
func (s *Spec) EmitBinding(w io.Writer) error {
	var b strings.Builder

	b.WriteString("; Auto-generated from ")
	b.WriteString(s.Name)
	b.WriteString(resolve.Extension)
	b.WriteString(". Do not edit.\n")
	b.WriteString("(in-package ")
	b.WriteString(s.Package)
	b.WriteString(")\n\n")

	b.WriteString("(defclass ")
	b.WriteString(symbol.Exported(s.Name))
	b.WriteString(" (ros-message) ())\n\n")

	b.WriteString("(defmethod ros-message-definition ((type (eql '")
	b.WriteString(symbol.Exported(s.Name))
	b.WriteString(")))\n")
	b.WriteString("  \"Full text of the ")
	b.WriteString(s.Package)
	b.WriteString("/")
	b.WriteString(s.Name)
	b.WriteString(" message definition.\"\n")
	b.WriteString("  \"")
	b.WriteString(escapeLispString(s.Definition))
	b.WriteString("\")\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// EmitFragment writes the message's package-registration fragment, loaded
// transitively through the package manifest.
func (s *Spec) EmitFragment(w io.Writer) error {
	var b strings.Builder

	b.WriteString("(in-package ")
	b.WriteString(s.Package)
	b.WriteString(")\n")
	b.WriteString("(export '(")
	b.WriteString(symbol.Exported(s.Name))
	b.WriteString("))\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeLispString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
