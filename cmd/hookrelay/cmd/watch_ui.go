package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hookrelay/internal/domain"
	"hookrelay/internal/events"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C3C3C")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

type deliveryMsg events.DeliveryEvent

type WatchModel struct {
	spinner    spinner.Model
	deliveries []events.DeliveryEvent
	width      int
	height     int
	quit       bool
}

func NewWatchModel() *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &WatchModel{
		spinner:    s,
		deliveries: make([]events.DeliveryEvent, 0),
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case deliveryMsg:
		m.deliveries = append(m.deliveries, events.DeliveryEvent(msg))
		// Keep only the last N deliveries that fit in the view
		maxRows := m.height - 5
		if maxRows > 0 && len(m.deliveries) > maxRows {
			m.deliveries = m.deliveries[len(m.deliveries)-maxRows:]
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *WatchModel) View() string {
	if m.quit {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Hookrelay Watch"))
	s.WriteString("\n\n")

	s.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %-25s %-10s %-25s", "EVENT", "SERVICE", "STATUS", "RESULT")))
	s.WriteString("\n")

	for _, d := range m.deliveries {
		var statusStyled string
		switch d.Status {
		case domain.DeliveryStatusSuccess:
			statusStyled = successStyle.Render(string(d.Status))
		case domain.DeliveryStatusFailed:
			statusStyled = failedStyle.Render(string(d.Status))
		default:
			statusStyled = string(d.Status)
		}

		result := d.StatusLine
		if result == "" {
			result = d.Error
		}

		line := fmt.Sprintf("%-20s %-25s %-10s %-25s",
			truncate(d.EventName, 19),
			truncate(d.ServiceName, 24),
			statusStyled,
			truncate(result, 40),
		)
		s.WriteString(line + "\n")
	}

	if len(m.deliveries) == 0 {
		s.WriteString(fmt.Sprintf("\n  %s Waiting for deliveries...\n", m.spinner.View()))
	}

	s.WriteString("\n  (Press q to quit)")

	return s.String()
}

func runWatchUI(deliveries <-chan events.DeliveryEvent) error {
	m := NewWatchModel()
	p := tea.NewProgram(m)

	go func() {
		for d := range deliveries {
			p.Send(deliveryMsg(d))
		}
	}()

	_, err := p.Run()
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
