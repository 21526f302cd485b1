package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/pkg/extract"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listChosenStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// pickCommand lets the user choose entities interactively and prints them.
func (c *CLI) pickCommand() *cobra.Command {
	var axis string

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose genes interactively",
		Long: `Pick lists the entries of an axis, filtered as you type. Space toggles an
entry, enter prints the chosen entries one per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.openSource()
			if err != nil {
				return err
			}
			entries, err := src.AxisEntries(axis)
			if err != nil {
				return err
			}

			final, err := tea.NewProgram(NewPickModel(entries), tea.WithOutput(os.Stderr)).Run()
			if err != nil {
				return fmt.Errorf("picker: %w", err)
			}
			m := final.(PickModel)
			if m.Cancelled {
				printInfo("Nothing picked")
				return nil
			}
			chosen := m.Selected()
			for _, e := range chosen {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			if len(chosen) > 0 {
				printNextStep("Render them", "mcbrowse render "+strings.Join(chosen, ","))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&axis, "axis", extract.DefaultEntityAxis, "axis to pick from")
	return cmd
}

// =============================================================================
// PickModel - Interactive entity selection
// =============================================================================

// PickModel is the bubbletea model for picking entries of an axis.
type PickModel struct {
	Entries   []string
	Query     string
	Cursor    int
	Offset    int
	Height    int
	Cancelled bool

	matches []int    // indexes into Entries matching Query
	chosen  []string // in the order they were toggled on
}

// NewPickModel creates a picker over entries.
func NewPickModel(entries []string) PickModel {
	m := PickModel{Entries: entries, Height: 15}
	m.refilter()
	return m
}

func (m PickModel) Init() tea.Cmd {
	return nil
}

func (m PickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.Cancelled = true
			return m, tea.Quit
		case "up", "ctrl+p":
			m.move(-1)
		case "down", "ctrl+n":
			m.move(1)
		case " ":
			m.toggle()
		case "enter":
			if len(m.chosen) == 0 {
				m.toggle()
			}
			return m, tea.Quit
		case "backspace":
			if r := []rune(m.Query); len(r) > 0 {
				m.Query = string(r[:len(r)-1])
				m.refilter()
			}
		default:
			if msg.Type == tea.KeyRunes {
				m.Query += string(msg.Runes)
				m.refilter()
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

// Selected returns the chosen entries, in the order they were chosen.
func (m PickModel) Selected() []string {
	return slices.Clone(m.chosen)
}

func (m *PickModel) move(delta int) {
	if len(m.matches) == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), len(m.matches)-1)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m *PickModel) toggle() {
	if len(m.matches) == 0 {
		return
	}
	e := m.Entries[m.matches[m.Cursor]]
	if i := slices.Index(m.chosen, e); i >= 0 {
		m.chosen = slices.Delete(slices.Clone(m.chosen), i, i+1)
		return
	}
	m.chosen = append(slices.Clone(m.chosen), e)
}

// refilter keeps the entries containing the query, ignoring case.
func (m *PickModel) refilter() {
	q := strings.ToLower(m.Query)
	m.matches = m.matches[:0:0]
	for i, e := range m.Entries {
		if q == "" || strings.Contains(strings.ToLower(e), q) {
			m.matches = append(m.matches, i)
		}
	}
	m.Cursor, m.Offset = 0, 0
}

func (m PickModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Pick entries"))
	b.WriteString("  ")
	b.WriteString(StyleValue.Render(m.Query))
	b.WriteString(listDimStyle.Render("▏"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("type to filter  ↑/↓ navigate  space toggle  ⏎ done  esc quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.matches))
	for i := m.Offset; i < end; i++ {
		e := m.Entries[m.matches[i]]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := "  "
		if slices.Contains(m.chosen, e) {
			mark = iconSuccess + " "
		}
		line := cursor + mark + e
		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case mark != "  ":
			b.WriteString(listChosenStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if len(m.matches) == 0 {
		b.WriteString(listDimStyle.Render("  no matches"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d chosen", min(m.Cursor+1, len(m.matches)), len(m.matches), len(m.chosen))))
	if len(m.chosen) > 0 {
		b.WriteString(listDimStyle.Render(": " + strings.Join(m.chosen, ", ")))
	}
	return b.String()
}
