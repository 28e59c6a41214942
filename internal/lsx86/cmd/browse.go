package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"lsx86/internal/analysis"
	"lsx86/internal/lsx86/styles"
	"lsx86/internal/report"
)

type viewMode int

const (
	viewSummary viewMode = iota
	viewSymbols
	viewDetails
)

type symbolItem struct {
	name      string
	demangled string
	total     analysis.Total
	count     int
	groups    []string
}

func (i symbolItem) FilterValue() string {
	return i.demangled + " " + strings.Join(i.groups, " ")
}

// Custom item delegate for symbols list
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(symbolItem)
	if !ok {
		return
	}

	indicator := " "
	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}
	groupStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.VSCodeComment))

	fmt.Fprintf(w, " %s  %s  %s  %s",
		indicator,
		countStyle.Render(fmt.Sprintf("%6d", i.count)),
		i.demangled,
		groupStyle.Render(strings.Join(i.groups, " ")))
}

// analysisMsg carries the result of the background analysis.
type analysisMsg struct {
	total analysis.Total
	items []symbolItem
	err   error
}

func analyzeCmd(ctx context.Context, path string, workers int) tea.Cmd {
	return func() tea.Msg {
		a, err := newAnalyzer(path, workers)
		if err != nil {
			return analysisMsg{err: err}
		}
		total, err := a.Total(ctx)
		if err != nil {
			return analysisMsg{err: err}
		}
		bySymbol, err := a.BySymbol(ctx)
		if errors.Is(err, analysis.ErrNoSymbols) {
			slog.Debug("Browsing without symbols", "file", path)
			return analysisMsg{total: total}
		}
		if err != nil {
			return analysisMsg{err: err}
		}
		return analysisMsg{total: total, items: symbolItems(bySymbol, a.Demangle)}
	}
}

// symbolItems builds list items ordered by instruction count, then name.
func symbolItems(b analysis.BySymbol, demangle func(string) string) []symbolItem {
	items := make([]symbolItem, 0, len(b))
	for _, sym := range b.Symbols() {
		t := b[sym]
		groups := make([]string, 0, len(t))
		for _, g := range t.Groups() {
			if g != "" {
				groups = append(groups, g)
			}
		}
		items = append(items, symbolItem{
			name:      sym,
			demangled: demangle(sym),
			total:     t,
			count:     t.Count(),
			groups:    groups,
		})
	}
	slices.SortStableFunc(items, func(a, b symbolItem) int {
		return b.count - a.count
	})
	return items
}

type model struct {
	ctx         context.Context
	path        string
	workers     int
	spinner     spinner.Model
	symbolsList list.Model
	details     viewport.Model
	summary     viewport.Model
	mode        viewMode
	loading     bool
	err         error
	total       analysis.Total
	items       []symbolItem
	width       int
	height      int
}

func newModel(ctx context.Context, path string, workers int) model {
	symbolsList := list.New([]list.Item{}, itemDelegate{}, 80, 22)
	symbolsList.SetShowStatusBar(false)
	symbolsList.SetFilteringEnabled(true)
	symbolsList.Title = "Symbols"
	symbolsList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	symbolsList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	details := viewport.New()
	details.SetWidth(80)
	details.SetHeight(22)
	summary := viewport.New()
	summary.SetWidth(80)
	summary.SetHeight(22)

	return model{
		ctx:         ctx,
		path:        path,
		workers:     workers,
		spinner:     s,
		symbolsList: symbolsList,
		details:     details,
		summary:     summary,
		mode:        viewSummary,
		loading:     true,
		width:       80,
		height:      24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		analyzeCmd(m.ctx, m.path, m.workers),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case analysisMsg:
		m.loading = false
		m.err = msg.err
		m.total = msg.total
		m.items = msg.items
		listItems := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			listItems[i] = it
		}
		m.symbolsList.SetItems(listItems)
		m.symbolsList.Title = fmt.Sprintf("Symbols (%d total)", len(msg.items))
		m.updateSummary()
		if len(msg.items) > 0 {
			m.mode = viewSymbols
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, vp := range []*viewport.Model{&m.details, &m.summary} {
			vp.SetWidth(msg.Width)
			vp.SetHeight(msg.Height - 2)
		}
		m.symbolsList.SetWidth(msg.Width)
		m.symbolsList.SetHeight(msg.Height - 2)
		m.updateSummary()

	case tea.KeyMsg:
		if m.mode == viewSymbols && m.symbolsList.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if m.mode == viewSymbols {
				if it, ok := m.symbolsList.SelectedItem().(symbolItem); ok {
					m.showDetails(it)
				}
			}
			return m, nil
		case "esc", "backspace":
			if m.mode == viewDetails {
				m.mode = viewSymbols
				return m, nil
			}
		case "tab":
			m.mode = m.nextMode()
			return m, nil
		}
	}

	switch m.mode {
	case viewSymbols:
		m.symbolsList, cmd = m.symbolsList.Update(msg)
	case viewDetails:
		m.details, cmd = m.details.Update(msg)
	default:
		m.summary, cmd = m.summary.Update(msg)
	}
	return m, cmd
}

func (m model) nextMode() viewMode {
	if len(m.items) == 0 {
		return viewSummary
	}
	if m.mode == viewSummary {
		return viewSymbols
	}
	return viewSummary
}

func (m model) renderMarkdown(md string) string {
	r, err := styles.GetBrowseRenderer(max(m.width-2, 20))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSuffix(out, "\n")
}

func (m *model) updateSummary() {
	if m.loading {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.path)
	if m.err != nil {
		fmt.Fprintf(&b, "**Error:** %v\n", m.err)
	} else {
		if len(m.items) == 0 {
			b.WriteString("No symbols found in the code section.\n\n")
		}
		b.WriteString(report.Markdown(analysis.Report{Mode: analysis.ModeTotal, Usage: m.total}))
	}
	m.summary.SetContent(m.renderMarkdown(b.String()))
}

func (m *model) showDetails(it symbolItem) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", it.demangled)
	if it.demangled != it.name {
		fmt.Fprintf(&b, "`%s`\n\n", it.name)
	}
	fmt.Fprintf(&b, "%d instructions\n\n", it.count)
	b.WriteString(report.Markdown(analysis.Report{Mode: analysis.ModeTotal, Usage: it.total}))
	m.details.SetContent(m.renderMarkdown(b.String()))
	m.details.GotoTop()
	m.mode = viewDetails
}

func (m model) View() string {
	var content, menu string
	switch {
	case m.loading:
		content = fmt.Sprintf("\n  %s Analyzing %s...", m.spinner.View(), m.path)
		menu = " Q: quit "
	case m.mode == viewSymbols:
		content = m.symbolsList.View()
		menu = " Enter: details • /: filter • Tab: summary • Q: quit "
	case m.mode == viewDetails:
		content = m.details.View()
		menu = " Esc: back • Q: quit "
	default:
		content = m.summary.View()
		menu = " Q: quit "
		if len(m.items) > 0 {
			menu = " Tab: symbols • Q: quit "
		}
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse BINARY",
		Short: "Browse per-symbol extension usage interactively",
		Long: `Browse analyses a binary and opens an interactive view listing its symbols by
instruction count with the extensions each one uses.`,
		Example: `
# Browse a shared library
lsx86 browse ./libfoo.so
  `,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			program := tea.NewProgram(
				newModel(cmd.Context(), args[0], workers),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			final, err := program.Run()
			if err != nil {
				slog.Error("TUI run error", "error", err)
				return fmt.Errorf("TUI error: %w", err)
			}
			if m, ok := final.(model); ok && m.err != nil {
				return m.err
			}
			return nil
		},
	}
}
