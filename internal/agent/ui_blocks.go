package agent

import (
	"fmt"
	"strings"

	"github.com/yolodolo42/deskpilot/internal/computer"
)

type UIBlockKind string

const (
	UIBlockTable UIBlockKind = "table"
	UIBlockKV    UIBlockKind = "kv"
)

type UIBlock struct {
	Kind  UIBlockKind `json:"kind"`
	Table *UITable    `json:"table,omitempty"`
	KV    *UIKV       `json:"kv,omitempty"`
}

type UITable struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type UIKV struct {
	Title string   `json:"title,omitempty"`
	Items []KVItem `json:"items"`
}

type KVItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DisplayBlock describes the real display, what the model is told and the
// scaling preset in use.
func DisplayBlock(t *computer.Tool) UIBlock {
	s := t.Scaler()
	disp := s.Display()
	api := s.APISize()
	preset := "none"
	if p, ok := s.Target(); ok {
		preset = fmt.Sprintf("%s (%dx%d)", p.Name, p.Width, p.Height)
	}
	items := []KVItem{
		{Key: "Tool version", Value: string(t.Version())},
		{Key: "Display", Value: fmt.Sprintf("%dx%d", disp.Width, disp.Height)},
		{Key: "Reported to model", Value: fmt.Sprintf("%dx%d", api.Width, api.Height)},
		{Key: "Scaling preset", Value: preset},
	}
	if n := t.Options().DisplayNumber; n != nil {
		items = append(items, KVItem{Key: "Display number", Value: fmt.Sprintf(":%d", *n)})
	}
	return UIBlock{Kind: UIBlockKV, KV: &UIKV{Title: "Display", Items: items}}
}

// HistoryBlock is a table of recorded actions, newest first.
func HistoryBlock(recs []ActionRecord) UIBlock {
	table := &UITable{
		Title:   "Recent actions",
		Headers: []string{"Time", "Session", "Action", "Result"},
	}
	for _, r := range recs {
		result := r.Output
		switch {
		case r.Error != "":
			result = "error: " + r.Error
		case result == "" && r.HasImage:
			result = "screenshot"
		}
		session := r.SessionID
		if len(session) > 8 {
			session = session[:8]
		}
		table.Rows = append(table.Rows, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			session,
			r.Action,
			truncate(strings.ReplaceAll(result, "\n", " "), 60),
		})
	}
	return UIBlock{Kind: UIBlockTable, Table: table}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
