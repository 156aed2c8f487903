// Package ui is the bubbletea/lipgloss terminal front-end: a scenario
// picker backed by live fan/temperature stats, and a first-run setup
// screen when the ec_sys kernel module isn't ready yet.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/junevm/thermalctl/internal/config"
	"github.com/junevm/thermalctl/internal/scenario"
	"github.com/junevm/thermalctl/internal/setup"
	"github.com/junevm/thermalctl/internal/supervisor"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ---------------------------------------------------------
// Vaporwave palette, same family as the original tool.
// ---------------------------------------------------------

var (
	colorPink   = lipgloss.Color("#FF71CE")
	colorCyan   = lipgloss.Color("#01CDFE")
	colorPurple = lipgloss.Color("#B967FF")
	colorYellow = lipgloss.Color("#FFFFB6")
	colorDark   = lipgloss.Color("#1A1A2E")
	colorGray   = lipgloss.Color("#6E6E80")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPurple).
			Background(colorDark)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorPurple).
			Padding(0, 1).
			Bold(true).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true).
			MarginBottom(1)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(colorPink).
			Width(12)

	statValueStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(colorCyan)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(colorDark).
				Background(colorPink).
				Bold(true)

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			MarginTop(1)
)

type tickMsg time.Time
type setupFinishedMsg struct{ err error }
type setupLogMsg string

// model is the single source of truth, per the Elm architecture bubbletea
// follows.
type model struct {
	cfg       config.AppConfig
	mgr       *scenario.Manager
	poller    *supervisor.Poller
	spinner   spinner.Model
	cursor    int
	statusMsg string
	width     int
	height    int

	needsSetup   bool
	setupRunning bool
	setupErr     error
	setupLog     string
	fullLog      string
	setupChan    chan string
	viewport     viewport.Model
}

// InitialModel builds the starting model. mgr and poller may be nil only
// when needsSetup is true — the setup screen never touches hardware.
func InitialModel(cfg config.AppConfig, mgr *scenario.Manager, poller *supervisor.Poller, needsSetup bool) model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(colorPink)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorGray).
		Padding(0, 1)

	cursor := 0
	for i, p := range cfg.Profiles {
		if p.Name == cfg.ActiveProfile {
			cursor = i
			break
		}
	}

	return model{
		cfg:        cfg,
		mgr:        mgr,
		poller:     poller,
		spinner:    s,
		viewport:   vp,
		cursor:     cursor,
		needsSetup: needsSetup,
	}
}

func (m model) Init() tea.Cmd {
	if m.needsSetup {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 20
		m.viewport.Height = msg.Height - 10

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.needsSetup {
				return m, nil
			}
			if m.cursor > 0 {
				m.cursor--
			} else {
				m.cursor = len(m.cfg.Profiles) - 1
			}

		case "down", "j":
			if m.needsSetup {
				return m, nil
			}
			if m.cursor < len(m.cfg.Profiles)-1 {
				m.cursor++
			} else {
				m.cursor = 0
			}

		case "enter", " ":
			if m.needsSetup {
				if !m.setupRunning {
					m.setupRunning = true
					m.setupErr = nil
					m.setupLog = "Initializing..."
					m.fullLog = "Initializing setup...\n"
					m.viewport.SetContent(m.fullLog)
					m.setupChan = make(chan string, 10)
					return m, tea.Batch(
						runSetupCmd(m.setupChan),
						waitForSetupLog(m.setupChan),
					)
				}
				return m, nil
			}

			profile := m.cfg.Profiles[m.cursor]
			var err error
			if profile.Scenario == scenario.Custom {
				err = m.mgr.ApplySettings(profile.Settings)
			} else {
				err = m.mgr.SetScenario(profile.Scenario)
			}

			if err != nil {
				m.statusMsg = fmt.Sprintf("Error: %v", err)
			} else {
				m.statusMsg = fmt.Sprintf("Applied: %s", profile.Name)
				m.cfg.ActiveProfile = profile.Name
				if err := config.Save(m.cfg); err != nil {
					m.statusMsg = fmt.Sprintf("Applied but save failed: %v", err)
				}
			}

		case "R":
			if !m.needsSetup {
				m.needsSetup = true
				m.setupErr = nil
				return m, nil
			}
		}

	case setupLogMsg:
		m.setupLog = string(msg)
		m.fullLog += string(msg) + "\n"
		m.viewport.SetContent(m.fullLog)
		m.viewport.GotoBottom()
		return m, waitForSetupLog(m.setupChan)

	case setupFinishedMsg:
		m.setupRunning = false
		if msg.err != nil {
			m.setupErr = msg.err
		} else {
			m.needsSetup = false
			return m, tickCmd()
		}

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		if m.needsSetup {
			return m, nil
		}
		cmds = append(cmds, tickCmd())
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	title := titleStyle.Render(" THERMALCTL ")

	if m.needsSetup {
		var content string
		if m.setupRunning {
			content = fmt.Sprintf("\n\n   %s Installing kernel module...\n\n%s", m.spinner.View(), m.viewport.View())
		} else if m.setupErr != nil {
			content = fmt.Sprintf("%s\n\n   Setup failed:\n   %v\n\n   Press [Enter] to retry or [q] to quit.", m.viewport.View(), m.setupErr)
		} else {
			content = "\n\n   Kernel Module Setup\n\n   The 'ec_sys' module is required for the ACPI debug backend.\n   We can build and install it for you automatically.\n\n   Press [Enter] to install."
		}

		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPink).
			Padding(1, 3).
			Align(lipgloss.Center).
			Render(content)

		return appStyle.Render(lipgloss.JoinVertical(lipgloss.Center, title, box))
	}

	snap := supervisor.Snapshot{}
	if m.poller != nil {
		snap = m.poller.Latest()
	}

	statsContent := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("SYSTEM STATUS"),
		renderStat("CPU Temp", fmt.Sprintf("%d°C", snap.Fan.CPUTemp)),
		renderStat("GPU Temp", fmt.Sprintf("%d°C", snap.Fan.GPUTemp)),
		renderStat("CPU RPM", fmt.Sprintf("%d", snap.Fan.CPUFanRPM)),
		renderStat("GPU RPM", fmt.Sprintf("%d", snap.Fan.GPUFanRPM)),
		renderStat("Shift Mode", snap.Scenario.ShiftMode.String()),
		renderStat("Cooler Boost", boolLabel(snap.Fan.CoolerBoost)),
		renderStat("Last Applied", string(snap.Scenario.MachineState)),
		"",
		m.spinner.View()+" Monitoring...",
	)
	statsBox := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(colorCyan).
		Padding(1).
		Width(30).
		Render(statsContent)

	var profileItems []string
	profileItems = append(profileItems, headerStyle.Render("SELECT SCENARIO"))

	for i, profile := range m.cfg.Profiles {
		label := strings.ToUpper(profile.Name)
		if snap.Scenario.Current != "" && profile.Scenario == snap.Scenario.Current {
			label += " (current)"
		}
		if m.cursor == i {
			profileItems = append(profileItems, selectedItemStyle.Render(fmt.Sprintf("> %s", label)))
		} else {
			profileItems = append(profileItems, itemStyle.Render(label))
		}
	}

	if m.statusMsg != "" {
		profileItems = append(profileItems, "\n"+statusMessageStyle.Render(m.statusMsg))
	}

	profilesBox := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(colorPink).
		Padding(1).
		Width(32).
		Height(lipgloss.Height(statsBox)).
		Render(lipgloss.JoinVertical(lipgloss.Left, profileItems...))

	var mainContent string
	if m.width > 0 && m.width < 70 {
		mainContent = lipgloss.JoinVertical(lipgloss.Left, statsBox, profilesBox)
	} else {
		mainContent = lipgloss.JoinHorizontal(lipgloss.Top, statsBox, profilesBox)
	}

	footer := helpStyle.Render("keys: ↑/↓ select - enter apply - R reinstall driver - q quit")

	ui := lipgloss.JoinVertical(lipgloss.Center, title, mainContent, footer)

	return appStyle.Render(lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, ui))
}

func renderStat(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		statLabelStyle.Render(label),
		statValueStyle.Render(value),
	)
}

func boolLabel(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func runSetupCmd(ch chan string) tea.Cmd {
	return func() tea.Msg {
		defer close(ch)
		err := setup.RunFullSetup(ch)
		return setupFinishedMsg{err: err}
	}
}

func waitForSetupLog(ch chan string) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return setupLogMsg(msg)
	}
}

// Run starts the bubbletea program. poller, if non-nil, is expected to
// already be running under its own context so the UI only reads its
// published Snapshot.
func Run(cfg config.AppConfig, mgr *scenario.Manager, poller *supervisor.Poller, needsSetup bool) error {
	p := tea.NewProgram(InitialModel(cfg, mgr, poller, needsSetup), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
