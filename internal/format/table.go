package format

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter handles table output formatting
type TableFormatter struct {
	useColors bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(useColors bool) *TableFormatter {
	return &TableFormatter{
		useColors: useColors,
	}
}

// Format renders Tabular values directly and falls back to struct fields
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	if data == nil {
		fmt.Fprintln(w, "No data to display")
		return nil
	}

	var t Table
	if tab, ok := data.(Tabular); ok {
		t = tab.Table()
	} else {
		t = f.reflectTable(data)
	}

	if len(t.Rows) == 0 {
		fmt.Fprintln(w, "No data to display")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Headers)
	f.configureTable(table, len(t.Headers))
	for _, row := range t.Rows {
		table.Append(f.colorize(row))
	}
	table.Render()
	return nil
}

// reflectTable turns a struct into a Field/Value table
func (f *TableFormatter) reflectTable(data interface{}) Table {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return Table{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return Table{Headers: []string{"Value"}, Rows: [][]string{{fmt.Sprintf("%v", data)}}}
	}

	t := Table{Headers: []string{"Field", "Value"}}
	typ := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		t.Rows = append(t.Rows, []string{formatHeader(field.Name), formatValue(v.Field(i).Interface())})
	}
	return t
}

// configureTable sets up table appearance
func (f *TableFormatter) configureTable(table *tablewriter.Table, columns int) {
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	if f.useColors {
		colors := make([]tablewriter.Colors, columns)
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor}
		}
		table.SetHeaderColor(colors...)
	}
}

// colorize highlights well-known status words
func (f *TableFormatter) colorize(row []string) []string {
	if !f.useColors {
		return row
	}
	out := make([]string, len(row))
	for i, cell := range row {
		switch cell {
		case "true", "online", "armed", "active", "valid":
			out[i] = color.GreenString(cell)
		case "false", "offline", "disarmed", "disabled", "invalid":
			out[i] = color.RedString(cell)
		case "motion_detected":
			out[i] = color.YellowString(cell)
		default:
			out[i] = cell
		}
	}
	return out
}

// formatHeader converts snake_case or CamelCase to Title Case
func formatHeader(header string) string {
	var words []string
	for _, part := range strings.Split(header, "_") {
		words = append(words, splitCamel(part)...)
	}
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i := 1; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' && s[i-1] >= 'a' && s[i-1] <= 'z' {
			words = append(words, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		words = append(words, s[start:])
	}
	return words
}

// formatValue formats a value for display
func formatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
