package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yolodolo42/deskpilot/internal/agent"
)

const (
	maxKeyWidth   = 24
	minColWidth   = 6
	minTableWidth = 20
	colSep        = " | "
)

// renderBlocks draws blocks as plain text that fits in width columns.
// Widths are measured in terminal cells, so wide runes count double.
func renderBlocks(width int, blocks []agent.UIBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		switch {
		case blk.Kind == agent.UIBlockTable && blk.Table != nil:
			parts = append(parts, renderTable(width, blk.Table))
		case blk.Kind == agent.UIBlockKV && blk.KV != nil:
			parts = append(parts, renderKV(width, blk.KV))
		}
	}
	return strings.TrimRight(strings.Join(parts, "\n"), "\n")
}

func renderKV(width int, kv *agent.UIKV) string {
	keyW := 0
	for _, it := range kv.Items {
		keyW = max(keyW, lipgloss.Width(it.Key))
	}
	keyW = min(keyW, maxKeyWidth)

	var lines []string
	if kv.Title != "" {
		lines = append(lines, kv.Title)
	}
	for _, it := range kv.Items {
		line := pad(clip(it.Key, keyW), keyW) + "  " + it.Value
		lines = append(lines, truncate(line, width))
	}
	return strings.Join(lines, "\n")
}

func renderTable(width int, t *agent.UITable) string {
	if len(t.Headers) == 0 {
		return ""
	}
	widths := columnWidths(t)
	fit(widths, max(width, minTableWidth))

	var lines []string
	if t.Title != "" {
		lines = append(lines, t.Title)
	}
	lines = append(lines, tableRow(t.Headers, widths), strings.Repeat("-", rowWidth(widths)))
	for _, row := range t.Rows {
		lines = append(lines, tableRow(row, widths))
	}
	return strings.Join(lines, "\n")
}

func columnWidths(t *agent.UITable) []int {
	widths := make([]int, len(t.Headers))
	for c, h := range t.Headers {
		widths[c] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for c := range widths {
			if c < len(row) {
				widths[c] = max(widths[c], lipgloss.Width(row[c]))
			}
		}
	}
	return widths
}

// fit narrows the widest column, one cell at a time, until the row fits
// or every column is at its minimum.
func fit(widths []int, avail int) {
	for rowWidth(widths) > avail {
		widest := -1
		for c, w := range widths {
			if w > minColWidth && (widest < 0 || w > widths[widest]) {
				widest = c
			}
		}
		if widest < 0 {
			return
		}
		widths[widest]--
	}
}

func rowWidth(widths []int) int {
	total := len(colSep) * (len(widths) - 1)
	for _, w := range widths {
		total += w
	}
	return total
}

func tableRow(cells []string, widths []int) string {
	out := make([]string, len(widths))
	for c, w := range widths {
		var cell string
		if c < len(cells) {
			cell = cells[c]
		}
		out[c] = pad(truncate(cell, w), w)
	}
	return strings.Join(out, colSep)
}

func pad(s string, w int) string {
	if gap := w - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// truncate shortens s to w cells, marking the cut with "...".
func truncate(s string, w int) string {
	if w <= 0 || lipgloss.Width(s) <= w {
		return s
	}
	if w <= 3 {
		return clip(s, w)
	}
	return clip(s, w-3) + "..."
}

// clip returns the longest prefix of s that fits in w cells.
func clip(s string, w int) string {
	used := 0
	for i, r := range s {
		rw := lipgloss.Width(string(r))
		if used+rw > w {
			return s[:i]
		}
		used += rw
	}
	return s
}

