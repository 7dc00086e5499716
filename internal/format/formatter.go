// Package format renders command output as a table, text, JSON or YAML.
package format

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/smartsecurity/cli/internal/config"
)

// Formatter writes data in one output format
type Formatter interface {
	Format(w io.Writer, data interface{}) error
}

// Tabular values know their own columns
type Tabular interface {
	Table() Table
}

// Table is a header row plus data rows
type Table struct {
	Headers []string
	Rows    [][]string
}

// Raw values expose the structure the machine formats should encode
type Raw interface {
	Raw() interface{}
}

// Formats lists the accepted --output values
var Formats = []string{"table", "text", "json", "json-compact", "yaml"}

// GetFormatter returns a formatter based on the specified format
func GetFormatter(format string, useColors bool) (Formatter, error) {
	switch format {
	case "table":
		return NewTableFormatter(useColors), nil
	case "json":
		return NewJSONFormatter(true), nil
	case "json-compact":
		return NewJSONFormatter(false), nil
	case "yaml":
		return NewYAMLFormatter(), nil
	case "text":
		return NewTextFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Print formats data to stdout using the configured output format
func Print(data interface{}) error {
	return Fprint(os.Stdout, data)
}

// Fprint is Print with an explicit writer
func Fprint(w io.Writer, data interface{}) error {
	formatter, err := GetFormatter(config.GetOutputFormat(), useColors())
	if err != nil {
		return err
	}
	return formatter.Format(w, data)
}

func useColors() bool {
	return config.Get().Format.Colors
}

func raw(data interface{}) interface{} {
	if r, ok := data.(Raw); ok {
		return r.Raw()
	}
	return data
}

// PrintSuccess prints a success message
func PrintSuccess(message string, args ...interface{}) {
	if useColors() {
		color.Green(message, args...)
		return
	}
	fmt.Printf(message+"\n", args...)
}

// PrintError prints an error message to stderr
func PrintError(message string, args ...interface{}) {
	if useColors() {
		color.New(color.FgRed).Fprintf(os.Stderr, message+"\n", args...)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: "+message+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(message string, args ...interface{}) {
	if useColors() {
		color.Yellow(message, args...)
		return
	}
	fmt.Printf("Warning: "+message+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(message string, args ...interface{}) {
	if useColors() {
		color.Blue(message, args...)
		return
	}
	fmt.Printf("Info: "+message+"\n", args...)
}
