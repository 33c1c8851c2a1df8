package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// output prints either aligned tables or JSON
type output struct {
	w    io.Writer
	json bool
}

func newOutput(jsonOutput bool) *output {
	return &output{w: os.Stdout, json: jsonOutput}
}

// print writes v as JSON, or calls table when JSON was not requested
func (o *output) print(v interface{}, table func(w io.Writer)) error {
	if o.json {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table(o.w)
	return nil
}

func renderTable(out io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow(out, headers, widths)
	writeDivider(out, widths)
	for _, row := range rows {
		writeRow(out, row, widths)
	}
}

func writeDivider(out io.Writer, widths []int) {
	for i, w := range widths {
		if i > 0 {
			fmt.Fprint(out, "  ")
		}
		fmt.Fprint(out, strings.Repeat("-", w))
	}
	fmt.Fprintln(out)
}

func writeRow(out io.Writer, cols []string, widths []int) {
	var b strings.Builder
	for i, w := range widths {
		val := ""
		if i < len(cols) {
			val = cols[i]
		}
		if i < len(widths)-1 {
			fmt.Fprintf(&b, "%-*s  ", w, val)
		} else {
			b.WriteString(val)
		}
	}
	fmt.Fprintln(out, strings.TrimRight(b.String(), " "))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
