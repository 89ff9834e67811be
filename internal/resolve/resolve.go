package resolve

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extension is the recognized schema file extension.
const Extension = ".msg"

// SchemaFileRef identifies one schema definition file. It is derived from a
// raw path argument on every invocation and never persisted.
type SchemaFileRef struct {
	// Dir is the absolute directory containing the schema file.
	Dir string
	// Package is the name of the package owning the schema file.
	Package string
	// Name is the bare message name, without the extension.
	Name string
}

// SchemaFile splits a raw schema file path into its base directory, owning
// package, and message name.
//
// Schema files conventionally live in a msg/ subdirectory of their package
// (pkg/msg/Name.msg), in which case the package is the parent of msg/. A
// flat layout (dir/Name.msg) falls back to the containing directory's name.
func SchemaFile(raw string) (SchemaFileRef, error) {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return SchemaFileRef{}, fmt.Errorf("failed to resolve schema path %s: %w", raw, err)
	}

	base := filepath.Base(abs)
	name := strings.TrimSuffix(base, Extension)
	if name == base || name == "" {
		return SchemaFileRef{}, fmt.Errorf("schema file %s does not have the %s extension", raw, Extension)
	}

	dir := filepath.Dir(abs)
	pkg := filepath.Base(dir)
	if pkg == "msg" {
		pkg = filepath.Base(filepath.Dir(dir))
	}
	if pkg == "." || pkg == string(filepath.Separator) {
		return SchemaFileRef{}, fmt.Errorf("cannot determine owning package for %s", raw)
	}

	return SchemaFileRef{Dir: dir, Package: pkg, Name: name}, nil
}
