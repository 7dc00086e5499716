package format

import (
	"fmt"
	"io"
	"strings"
)

// TextFormatter prints one "Key: value" block per row
type TextFormatter struct{}

// NewTextFormatter creates a new text formatter
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format formats data as simple text
func (f *TextFormatter) Format(w io.Writer, data interface{}) error {
	if data == nil {
		fmt.Fprintln(w, "No data")
		return nil
	}
	if s, ok := data.(string); ok {
		fmt.Fprintln(w, s)
		return nil
	}

	var t Table
	if tab, ok := data.(Tabular); ok {
		t = tab.Table()
	} else {
		t = (&TableFormatter{}).reflectTable(data)
	}
	if len(t.Rows) == 0 {
		fmt.Fprintln(w, "No data")
		return nil
	}

	// Field/Value tables read better as a plain list.
	if len(t.Headers) == 2 && (t.Headers[0] == "Field" || t.Headers[0] == "Key") {
		for _, row := range t.Rows {
			fmt.Fprintf(w, "%s: %s\n", row[0], textValue(row[1]))
		}
		return nil
	}

	for i, row := range t.Rows {
		if i > 0 {
			fmt.Fprintln(w)
		}
		for j, cell := range row {
			if j < len(t.Headers) {
				fmt.Fprintf(w, "%s: %s\n", t.Headers[j], textValue(cell))
			}
		}
	}
	return nil
}

func textValue(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
