// Package serializer encodes collection reports and query results for
// stdout, files, and HTTP responses.
package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Format identifies an output encoding.
type Format string

const (
	// FormatJSON emits indented JSON, one document per Serialize call.
	FormatJSON Format = "json"
	// FormatYAML emits YAML documents separated by "---".
	FormatYAML Format = "yaml"
	// FormatTable emits a two-column FIELD/VALUE table with nested
	// structures flattened into dotted key paths.
	FormatTable Format = "table"
)

// SupportedFormats lists the encodings accepted by NewWriter.
func SupportedFormats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatTable}
}

// IsUnknown reports whether f is not a supported encoding.
func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	}
	return true
}

// Serializer writes one value per call to some destination.
type Serializer interface {
	Serialize(ctx context.Context, data any) error
}

// Closer is implemented by serializers that own their destination and must
// release it when the caller is done.
type Closer interface {
	Close() error
}

// Writer encodes values to a stream in a fixed format.
type Writer struct {
	format    Format
	out       io.Writer
	closer    io.Closer
	documents int
}

// NewWriter returns a writer targeting out. Unknown formats fall back to
// JSON rather than erroring so a mistyped --format still produces output.
func NewWriter(format Format, out io.Writer) *Writer {
	if format.IsUnknown() {
		format = FormatJSON
	}
	if out == nil {
		out = os.Stdout
	}
	return &Writer{format: format, out: out}
}

// NewStdoutWriter returns a writer bound to standard output.
func NewStdoutWriter(format Format) *Writer {
	return NewWriter(format, os.Stdout)
}

// NewFileWriterOrStdout returns a serializer for the given destination path.
// An empty, whitespace-only, or "-" path selects standard output. Anything
// else is created (or truncated) as a regular file; callers should close the
// returned serializer via the Closer interface when it owns a file.
func NewFileWriterOrStdout(format Format, path string) (Serializer, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == StdoutURI {
		return NewStdoutWriter(format), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	w := NewWriter(format, f)
	w.closer = f
	return w, nil
}

// Serialize encodes a single value. The context is consulted before any
// bytes are written so a cancelled run does not emit partial documents.
func (w *Writer) Serialize(ctx context.Context, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	switch w.format {
	case FormatYAML:
		err = w.writeYAML(data)
	case FormatTable:
		err = w.writeTable(data)
	default:
		err = w.writeJSON(data)
	}
	if err != nil {
		return err
	}
	w.documents++
	return nil
}

// Close releases the underlying file when the writer owns one. It is safe to
// call multiple times and on writers bound to stdout.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

func (w *Writer) writeJSON(data any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to serialize to json: %w", err)
	}
	return nil
}

func (w *Writer) writeYAML(data any) error {
	if w.documents > 0 {
		if _, err := fmt.Fprintln(w.out, "---"); err != nil {
			return err
		}
	}
	enc := yaml.NewEncoder(w.out)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to serialize to yaml: %w", err)
	}
	return enc.Close()
}

func (w *Writer) writeTable(data any) error {
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "FIELD\tVALUE"); err != nil {
		return err
	}
	for _, row := range flatten("", reflect.ValueOf(data)) {
		if _, err := fmt.Fprintf(tw, "%s\t%v\n", row.key, row.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type tableRow struct {
	key   string
	value any
}

// flatten walks pointers, structs, maps, and slices into one row per scalar
// leaf, building dotted key paths like "[0].Name" along the way.
func flatten(prefix string, v reflect.Value) []tableRow {
	switch v.Kind() {
	case reflect.Invalid:
		return []tableRow{{key: prefix, value: "<nil>"}}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return []tableRow{{key: prefix, value: "<nil>"}}
		}
		return flatten(prefix, v.Elem())
	case reflect.Struct:
		if ts, ok := v.Interface().(time.Time); ok {
			return []tableRow{{key: prefix, value: ts.Format(time.RFC3339)}}
		}
		var rows []tableRow
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			rows = append(rows, flatten(joinKey(prefix, field.Name), v.Field(i))...)
		}
		return rows
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		byName := make(map[string]reflect.Value, v.Len())
		for _, k := range v.MapKeys() {
			name := fmt.Sprint(k.Interface())
			keys = append(keys, name)
			byName[name] = v.MapIndex(k)
		}
		sort.Strings(keys)
		var rows []tableRow
		for _, name := range keys {
			rows = append(rows, flatten(joinKey(prefix, name), byName[name])...)
		}
		return rows
	case reflect.Slice, reflect.Array:
		var rows []tableRow
		for i := 0; i < v.Len(); i++ {
			rows = append(rows, flatten(fmt.Sprintf("%s[%d]", prefix, i), v.Index(i))...)
		}
		return rows
	default:
		return []tableRow{{key: prefix, value: v.Interface()}}
	}
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
