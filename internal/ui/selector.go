package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultVisible is how many items a selector shows before scrolling.
const defaultVisible = 12

// SelectorItem represents an item in the selector
type SelectorItem struct {
	ID          string
	Label       string
	Description string
	Current     bool
}

// Selector is an interactive list selector. Long lists scroll so the
// cursor stays inside a window of visible rows.
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	offset   int
	visible  int
	selected int
	active   bool
	width    int
}

// NewSelector creates a new selector with the cursor on the current item.
func NewSelector(title string, items []SelectorItem) Selector {
	selected := 0
	for i, item := range items {
		if item.Current {
			selected = i
			break
		}
	}

	s := Selector{
		title:    title,
		items:    items,
		cursor:   selected,
		selected: selected,
		visible:  defaultVisible,
		active:   true,
		width:    80,
	}
	s.follow()
	return s
}

// SetWidth sets the selector width
func (s *Selector) SetWidth(w int) {
	s.width = w
}

// SetVisible sets how many rows are shown at once.
func (s *Selector) SetVisible(n int) {
	if n < 1 {
		n = 1
	}
	s.visible = n
	s.follow()
}

// Active returns whether the selector is active
func (s *Selector) Active() bool {
	return s.active
}

// Selected returns the selected item ID, or empty if cancelled
func (s *Selector) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

// Cancelled returns whether the selector was cancelled
func (s *Selector) Cancelled() bool {
	return !s.active && s.selected == -1
}

// Update handles selector input
func (s *Selector) Update(msg tea.Msg) (*Selector, tea.Cmd) {
	if !s.active {
		return s, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			s.move(-1)
		case "down", "j":
			s.move(1)
		case "pgup":
			s.move(-s.visible)
		case "pgdown":
			s.move(s.visible)
		case "home", "g":
			s.move(-len(s.items))
		case "end", "G":
			s.move(len(s.items))
		case "enter":
			s.selected = s.cursor
			s.active = false
		case "esc", "q":
			s.selected = -1
			s.active = false
		}
	}

	return s, nil
}

func (s *Selector) move(delta int) {
	s.cursor += delta
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.cursor > len(s.items)-1 {
		s.cursor = len(s.items) - 1
	}
	s.follow()
}

// follow scrolls the window so the cursor is visible.
func (s *Selector) follow() {
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+s.visible {
		s.offset = s.cursor - s.visible + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// View renders the selector
func (s *Selector) View() string {
	if !s.active {
		return ""
	}

	var b strings.Builder

	b.WriteString(Style.Help.Render(s.title + " (↑/↓ navigate, enter select, esc cancel)"))
	b.WriteString("\n\n")

	end := s.offset + s.visible
	if end > len(s.items) {
		end = len(s.items)
	}
	if s.offset > 0 {
		b.WriteString(Style.Help.Render(fmt.Sprintf("  ↑ %d more", s.offset)))
		b.WriteString("\n")
	}

	for i := s.offset; i < end; i++ {
		item := s.items[i]
		isCursor := i == s.cursor

		if isCursor {
			b.WriteString(Style.Cursor.Render(markCursor) + " ")
		} else {
			b.WriteString("  ")
		}

		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-35s", display)
		if isCursor {
			b.WriteString(Style.Selected.Render(label))
		} else {
			b.WriteString(Style.Item.Render(label))
		}

		desc := item.Description
		if item.Current {
			desc = strings.TrimSpace(desc + " (current)")
		}
		if desc != "" {
			b.WriteString(Style.Help.Render(desc))
		}

		b.WriteString("\n")
	}

	if rest := len(s.items) - end; rest > 0 {
		b.WriteString(Style.Help.Render(fmt.Sprintf("  ↓ %d more", rest)))
		b.WriteString("\n")
	}

	return b.String()
}
