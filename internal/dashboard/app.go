package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/agorascan/agorascan-node/internal/dashboard/api"
	"github.com/agorascan/agorascan-node/internal/dashboard/components"
	"github.com/agorascan/agorascan-node/internal/dashboard/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Config는 대시보드 설정
type Config struct {
	Host       string
	Port       int
	LogPath    string
	RefreshSec int
}

// chainState는 한 번의 폴링 결과
type chainState struct {
	Online    bool
	Error     string
	Stats     *api.Stats
	Blocks    []api.BlockHeader
	Proposals []api.Proposal
}

// Model은 Bubbletea 모델
type Model struct {
	config    Config
	client    *api.Client
	state     chainState
	width     int
	height    int
	logViewer *components.LogViewer
	showHelp  bool
	quitting  bool
}

// Run은 대시보드 실행
func Run(config Config) error {
	m := initialModel(config)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(config Config) Model {
	return Model{
		config:    config,
		client:    api.NewClient(config.Host, config.Port),
		logViewer: components.NewLogViewer(config.LogPath, 10),
	}
}

// tickMsg는 주기적 업데이트 메시지
type tickMsg time.Time

// stateMsg는 폴링 결과 메시지
type stateMsg chainState

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.config.RefreshSec),
		m.fetchState(),
	)
}

func tickCmd(seconds int) tea.Cmd {
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchState() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.client.GetStats()
		if err != nil {
			return stateMsg(chainState{Online: false, Error: err.Error()})
		}

		blocks, _ := m.client.GetLatestBlocks(8)
		proposals, _ := m.client.GetProposals()

		return stateMsg(chainState{
			Online:    true,
			Stats:     stats,
			Blocks:    blocks,
			Proposals: proposals,
		})
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "?":
			m.showHelp = !m.showHelp

		case "r":
			return m, m.fetchState()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		cmds = append(cmds, tickCmd(m.config.RefreshSec))
		cmds = append(cmds, m.fetchState())
		m.logViewer.Refresh()

	case stateMsg:
		m.state = chainState(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// 헤더
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// 체인 집계
	b.WriteString(m.renderStats())
	b.WriteString("\n")

	// 최근 블록
	b.WriteString(m.renderBlocksTable())
	b.WriteString("\n")

	// 거버넌스 제안
	b.WriteString(m.renderProposals())
	b.WriteString("\n")

	// 로그 뷰어
	b.WriteString(m.logViewer.Render(m.width))
	b.WriteString("\n")

	// 도움말 또는 단축키 바
	if m.showHelp {
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderHelpBar())
	}

	return b.String()
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render(" Agorascan Dashboard v1.0.0 ")

	status := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	if m.state.Online && m.state.Stats != nil {
		status += fmt.Sprintf(" | height %d", m.state.Stats.Height)
	} else {
		status += " | OFFLINE"
	}

	statusText := styles.MutedStyle.Render(status)

	// 오른쪽 정렬
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(statusText) - 2
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + statusText
}

func (m Model) renderStats() string {
	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render("CHAIN"))
	b.WriteString("\n")

	if !m.state.Online {
		b.WriteString(styles.ErrorStyle.Render("  ✗ node unreachable"))
		if m.state.Error != "" {
			b.WriteString("\n")
			b.WriteString(styles.MutedStyle.Render("  " + m.state.Error))
		}
		return b.String()
	}

	s := m.state.Stats
	b.WriteString(fmt.Sprintf("  Height: %d  Txs: %s  Validators: %d/%d",
		s.Height, s.Transactions, s.ActiveValidators, s.Validators))
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("  Frozen: %s  Supply: %s  Holders: %d",
		s.FrozenAmount, s.CirculatingSupply, s.Holders)))
	return b.String()
}

func (m Model) renderBlocksTable() string {
	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render("LATEST BLOCKS"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-10s %-20s %-6s %-8s %-10s",
		"Height", "Hash", "Txs", "Enrolls", "Validators")
	b.WriteString(styles.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, blk := range m.state.Blocks {
		hash := blk.Hash
		if len(hash) > 18 {
			hash = hash[:18] + ".."
		}
		row := fmt.Sprintf("%-10d %-20s %-6d %-8d %-10d",
			blk.Height, hash, blk.TxCount, blk.Enrollments, blk.Validators)
		b.WriteString(styles.TableRowStyle.Render(row))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderProposals() string {
	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render("PROPOSALS"))
	b.WriteString("\n")

	if len(m.state.Proposals) == 0 {
		b.WriteString(styles.MutedStyle.Render("  no proposals"))
		return b.String()
	}

	for _, p := range m.state.Proposals {
		title := p.Title
		if len(title) > 30 {
			title = title[:30] + "..."
		}
		b.WriteString(fmt.Sprintf("  %-14s %-33s %s %s  window %d..%d  ballots %d",
			p.ProposalID, title,
			styles.StatusStyle(p.Status).Render(p.Status),
			styles.ResultStyle(p.Result).Render(p.Result),
			p.VoteStartHeight, p.VoteEndHeight, p.BallotCount))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderHelpBar() string {
	keys := []struct{ key, desc string }{
		{"r", "refresh"},
		{"?", "help"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts,
			styles.HelpKeyStyle.Render(k.key)+
				styles.HelpDescStyle.Render(" "+k.desc))
	}

	return styles.HelpBarStyle.Render(strings.Join(parts, "  │  "))
}

func (m Model) renderFullHelp() string {
	help := `
╭─────────────────────────────────────╮
│               Help                  │
├─────────────────────────────────────┤
│  r           refresh now            │
│  ?           toggle help            │
│  q, Ctrl+C   quit                   │
╰─────────────────────────────────────╯`
	return styles.MutedStyle.Render(help)
}
