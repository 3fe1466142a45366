package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/bedrockchat/internal/budget"
	"github.com/user/bedrockchat/internal/preview"
	"github.com/user/bedrockchat/internal/session"
	"github.com/user/bedrockchat/internal/trace"
	"github.com/user/bedrockchat/internal/types"
	"github.com/user/bedrockchat/pkg/agent"
	"github.com/user/bedrockchat/pkg/agent/bedrockrt"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with the agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if cfg.Agent.ID == "" {
			return fmt.Errorf("agent id not configured (set agent.id or BEDROCK_AGENT_ID)")
		}

		guard, err := budget.New(cfg.Agent.Model, cfg.Agent.MaxInputTokens)
		if err != nil {
			return fmt.Errorf("create budget guard: %w", err)
		}

		provider := bedrockrt.New(&bedrockrt.Config{
			BaseURL: cfg.Agent.BaseURL,
			APIKey:  cfg.Agent.APIKey,
		})

		m := newChatModel(chatConfig{
			title:        cfg.UI.Title,
			icon:         cfg.UI.Icon,
			agentID:      cfg.Agent.ID,
			agentAliasID: cfg.Agent.AliasID,
		}, provider, guard)

		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

type chatConfig struct {
	title        string
	icon         string
	agentID      string
	agentAliasID string
}

type sidebarTab int

const (
	tabTrace sidebarTab = iota
	tabSources
)

type chatModel struct {
	cfg      chatConfig
	provider agent.Provider
	guard    *budget.Guard
	fetcher  *preview.Fetcher
	sess     *session.Session

	ready     bool
	inflight  bool
	statusMsg string
	activeTab sidebarTab
	previews  map[int]string

	width  int
	height int

	input    textinput.Model
	timeline viewport.Model
	sidebar  viewport.Model
	spinner  spinner.Model
}

// agentReplyMsg carries the outcome of an asynchronous agent turn.
type agentReplyMsg struct {
	text string
	err  error
}

// previewDoneMsg carries a fetched source preview.
type previewDoneMsg struct {
	index   int
	content string
	err     error
}

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	sidebarStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1)
)

func newChatModel(cfg chatConfig, provider agent.Provider, guard *budget.Guard) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask a question (/help for commands)"
	ti.Focus()
	ti.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	sess := session.New()
	sess.Initialize()

	return chatModel{
		cfg:      cfg,
		provider: provider,
		guard:    guard,
		fetcher:  preview.NewFetcher(),
		sess:     sess,
		previews: make(map[int]string),
		input:    ti,
		spinner:  sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// submitTurn invokes the agent off the update loop and reports back as a
// message. The epoch is captured before the call so a /reset issued while
// the call is in flight discards the late reply.
func (m chatModel) submitTurn(prompt string) tea.Cmd {
	sess := m.sess
	provider := m.provider
	cfg := m.cfg
	epoch := sess.SubmitUserMessage(prompt)
	return func() tea.Msg {
		resp, err := provider.InvokeAgent(context.Background(), cfg.agentID, cfg.agentAliasID, string(sess.ID()), prompt)
		if err != nil {
			return agentReplyMsg{err: err}
		}
		text, err := sess.ApplyAgentResponse(epoch, resp)
		if err != nil {
			return agentReplyMsg{err: err}
		}
		return agentReplyMsg{text: text}
	}
}

func (m chatModel) fetchPreview(index int, uri string) tea.Cmd {
	fetcher := m.fetcher
	return func() tea.Msg {
		content, err := fetcher.Fetch(context.Background(), uri)
		return previewDoneMsg{index: index, content: content, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshTimeline()
		m.refreshSidebar()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			if m.activeTab == tabTrace {
				m.activeTab = tabSources
			} else {
				m.activeTab = tabTrace
			}
			m.refreshSidebar()
			return m, nil
		case tea.KeyEnter:
			if m.inflight {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			if strings.HasPrefix(text, "/") {
				return m.handleSlashCommand(text)
			}
			if err := m.guard.Check(text); err != nil {
				m.statusMsg = errorStyle.Render(err.Error())
				return m, nil
			}
			m.inflight = true
			m.statusMsg = ""
			cmd := m.submitTurn(text)
			m.refreshTimeline()
			return m, tea.Batch(cmd, m.spinner.Tick)
		}

	case agentReplyMsg:
		m.inflight = false
		if msg.err != nil {
			if msg.err == session.ErrStaleResponse {
				m.statusMsg = statusStyle.Render("Discarded a reply from before the reset.")
			} else {
				m.statusMsg = errorStyle.Render("Error: " + msg.err.Error())
			}
		}
		m.refreshTimeline()
		m.refreshSidebar()
		return m, nil

	case previewDoneMsg:
		if msg.err != nil {
			m.statusMsg = errorStyle.Render(fmt.Sprintf("Preview [%d] failed: %v", msg.index, msg.err))
		} else {
			m.previews[msg.index] = msg.content
			m.activeTab = tabSources
			m.statusMsg = statusStyle.Render(fmt.Sprintf("Preview [%d] loaded.", msg.index))
			m.refreshSidebar()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.inflight {
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.timeline, cmd = m.timeline.Update(msg)
	cmds = append(cmds, cmd)
	m.sidebar, cmd = m.sidebar.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m chatModel) handleSlashCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/help":
		m.statusMsg = statusStyle.Render("/reset  /trace  /citations  /preview <n>  /quit")

	case "/quit":
		return m, tea.Quit

	case "/reset":
		m.sess.Initialize()
		m.previews = make(map[int]string)
		m.statusMsg = statusStyle.Render("Session reset.")
		m.refreshTimeline()
		m.refreshSidebar()

	case "/trace":
		m.activeTab = tabTrace
		m.refreshSidebar()

	case "/sources", "/citations":
		m.activeTab = tabSources
		m.refreshSidebar()

	case "/preview":
		if len(fields) != 2 {
			m.statusMsg = errorStyle.Render("Usage: /preview <n>")
			return m, nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			m.statusMsg = errorStyle.Render("Usage: /preview <n>")
			return m, nil
		}
		uris := sourceURIs(m.sess.Citations())
		if n > len(uris) {
			m.statusMsg = errorStyle.Render(fmt.Sprintf("No source [%d]; %d cited.", n, len(uris)))
			return m, nil
		}
		m.statusMsg = statusStyle.Render(fmt.Sprintf("Fetching source [%d]...", n))
		return m, m.fetchPreview(n, uris[n-1])

	default:
		m.statusMsg = errorStyle.Render("Unknown command. /help lists commands.")
	}
	return m, nil
}

func (m *chatModel) layout() {
	sidebarWidth := m.width / 3
	if sidebarWidth > 60 {
		sidebarWidth = 60
	}
	timelineWidth := m.width - sidebarWidth - 2
	bodyHeight := m.height - 4

	m.timeline = viewport.New(timelineWidth, bodyHeight)
	m.sidebar = viewport.New(sidebarWidth, bodyHeight)
}

func (m *chatModel) refreshTimeline() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, msg := range m.sess.Messages() {
		if msg.Role == types.RoleUser {
			b.WriteString(userStyle.Render("You") + "\n")
		} else {
			b.WriteString(assistantStyle.Render(m.cfg.icon+" Agent") + "\n")
		}
		b.WriteString(msg.Content + "\n\n")
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m *chatModel) refreshSidebar() {
	if !m.ready {
		return
	}
	if m.activeTab == tabTrace {
		m.sidebar.SetContent(renderTrace(m.sess.Trace()))
		return
	}
	m.sidebar.SetContent(renderSources(m.sess.Citations(), m.previews))
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	header := titleStyle.Render(m.cfg.icon + " " + m.cfg.title)

	status := m.statusMsg
	if m.inflight {
		status = m.spinner.View() + " thinking..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.timeline.View(),
		sidebarStyle.Render(m.sidebar.View()),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.input.View(),
		status,
	)
}

// renderTrace renders the step-grouped trace of the most recent response
// phase by phase.
func renderTrace(summary *trace.Summary) string {
	if summary == nil || summary.TotalSteps == 0 {
		return "No trace yet.\nAsk a question first."
	}
	var b strings.Builder
	for _, phase := range summary.Phases {
		b.WriteString(titleStyle.Render(phase.Phase) + "\n")
		if !phase.HasTrace {
			b.WriteString("  no trace\n")
			continue
		}
		for _, step := range phase.Steps {
			fmt.Fprintf(&b, "  Step %d: %d event(s)\n", step.Number, len(step.Events))
		}
	}
	fmt.Fprintf(&b, "\nTotal steps: %d", summary.TotalSteps)
	return b.String()
}

// renderSources lists the cited reference locations numbered the same way
// as the injected footnotes, with any fetched previews inline.
func renderSources(citations []agent.Citation, previews map[int]string) string {
	uris := sourceURIs(citations)
	if len(uris) == 0 {
		return "No sources cited\nin the last response."
	}
	var b strings.Builder
	for i, uri := range uris {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, uri)
		if content, ok := previews[i+1]; ok {
			b.WriteString(statusStyle.Render(content) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// sourceURIs flattens citations into the numbered URI list, matching the
// footnote numbering in the displayed text.
func sourceURIs(citations []agent.Citation) []string {
	var uris []string
	for _, citation := range citations {
		for _, ref := range citation.RetrievedReferences {
			uris = append(uris, ref.Location.S3Location.URI)
		}
	}
	return uris
}
