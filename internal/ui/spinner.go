package ui

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// spinnerTickMsg drives the pending-request animation.
type spinnerTickMsg struct{}

// spinnerTickCmd fires spinnerTickMsg at the scanner frame rate (14 fps).
func spinnerTickCmd() tea.Cmd {
	return tea.Tick(time.Second/14, func(_ time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// scannerFrames pre-renders a bouncing dot scanner: a bright dot with a
// fading trail that sweeps left and right.
func scannerFrames() []string {
	const numDots = 6
	const dot = "▪"

	theme := GetTheme()
	bright := lipgloss.NewStyle().Foreground(theme.Primary)
	med := lipgloss.NewStyle().Foreground(theme.Muted)
	dim := lipgloss.NewStyle().Foreground(theme.VeryMuted)
	off := lipgloss.NewStyle().Foreground(theme.MutedBorder)

	positions := make([]int, 0, 2*numDots-2)
	for i := range numDots {
		positions = append(positions, i)
	}
	for i := numDots - 2; i > 0; i-- {
		positions = append(positions, i)
	}

	frames := make([]string, len(positions))
	for f, pos := range positions {
		var b strings.Builder
		for i := range numDots {
			d := pos - i
			if d < 0 {
				d = -d
			}
			switch d {
			case 0:
				b.WriteString(bright.Render(dot))
			case 1:
				b.WriteString(med.Render(dot))
			case 2:
				b.WriteString(dim.Render(dot))
			default:
				b.WriteString(off.Render(dot))
			}
		}
		frames[f] = b.String()
	}
	return frames
}

// spinner is the tick-driven loading indicator shown while a request is
// pending. It only animates while running; the AppModel stops it when
// nothing is in flight.
type spinner struct {
	frames  []string
	frame   int
	running bool
}

func newSpinner() *spinner {
	return &spinner{frames: scannerFrames()}
}

// start begins ticking. It returns nil when the spinner already runs so a
// second tick loop is never started.
func (s *spinner) start() tea.Cmd {
	if s.running {
		return nil
	}
	s.running = true
	s.frame = 0
	return spinnerTickCmd()
}

// tick advances one frame. keep reports whether animation should continue.
func (s *spinner) tick(keep bool) tea.Cmd {
	if !keep {
		s.running = false
		return nil
	}
	s.frame++
	return spinnerTickCmd()
}

// view renders the current frame with label, or "" when idle.
func (s *spinner) view(label string) string {
	if !s.running || len(s.frames) == 0 {
		return ""
	}
	frame := s.frames[s.frame%len(s.frames)]
	if label == "" {
		return frame
	}
	return frame + " " + StyleMuted(GetTheme()).Render(label)
}
