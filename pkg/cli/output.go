package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
)

// OutputFormat is an output encoding.
type OutputFormat string

const (
	// FormatYAML is the default for whole documents.
	FormatYAML OutputFormat = "yaml"
	// FormatJSON writes indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatJSONL writes one compact JSON value per line.
	FormatJSONL OutputFormat = "jsonl"
	// FormatText is rendered by a TranscriptView rather than encoded.
	FormatText OutputFormat = "text"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatYAML, FormatJSON, FormatJSONL, FormatText:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// OutputOptions configures Output.
type OutputOptions struct {
	Format OutputFormat

	// File is the output file path (empty for stdout).
	File string

	// Indent is the indentation for JSON output.
	Indent string

	// Writer overrides File.
	Writer io.Writer
}

// Output writes result as a single document.
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout

	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		return outputJSON(w, result, opts.Indent)
	case FormatJSONL:
		return json.NewEncoder(w).Encode(result)
	case FormatYAML, FormatText, "":
		return outputYAML(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func outputJSON(w io.Writer, result any, indent string) error {
	enc := json.NewEncoder(w)
	if indent == "" {
		indent = "  "
	}
	enc.SetIndent("", indent)
	return enc.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Stream writes a sequence of records as they are produced. JSON and JSONL
// both write one record per line; YAML separates records with "---".
type Stream struct {
	mu     sync.Mutex
	w      io.Writer
	format OutputFormat
	n      int
}

// NewStream returns a Stream writing to w. FormatText is not an encoding
// and falls back to JSONL.
func NewStream(w io.Writer, format OutputFormat) *Stream {
	if format == FormatText || format == FormatJSON || format == "" {
		format = FormatJSONL
	}
	return &Stream{w: w, format: format}
}

// Write encodes one record. It is safe for concurrent use.
func (s *Stream) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		if _, err := io.WriteString(s.w, "---\n"); err != nil {
			return err
		}
		if _, err := s.w.Write(data); err != nil {
			return err
		}
	default:
		if err := json.NewEncoder(s.w).Encode(v); err != nil {
			return err
		}
	}
	s.n++
	return nil
}

// Count returns the number of records written.
func (s *Stream) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// PrintSuccess prints a success message with a checkmark.
func PrintSuccess(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintInfo prints an informational message to stderr so it never mixes
// with streamed results on stdout.
func PrintInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ℹ "+format+"\n", args...)
}
