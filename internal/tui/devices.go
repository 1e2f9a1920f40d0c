// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"spectra/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A56E0")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B6B6B"))
)

// ScreenType selects the active screen.
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

// DevicePickerModel is the Bubble Tea model for browsing capture devices
// and previewing the analysis geometry each sample rate would produce.
type DevicePickerModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	// Analysis geometry used for the rate preview on the detail screen.
	fftSize int
	hopSize int

	availableSampleRates []float64
	sampleRateIndex      int
}

// NewDevicePickerModel creates a picker previewing the given analysis
// geometry.
func NewDevicePickerModel(fftSize, hopSize int) DevicePickerModel {
	return DevicePickerModel{
		activeScreen: ListScreen,
		fftSize:      fftSize,
		hopSize:      hopSize,
	}
}

func (m DevicePickerModel) Init() tea.Cmd {
	return fetchDevices
}

func fetchDevices() tea.Msg {
	devices, err := audio.GetDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

func (m DevicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 && m.devices[m.selectedIndex].MaxInputChannels > 0 {
					m.activeScreen = DetailScreen
					m.availableSampleRates = []float64{44100, 48000, 88200, 96000}

					m.sampleRateIndex = 0
					for i, rate := range m.availableSampleRates {
						if rate == m.devices[m.selectedIndex].DefaultSampleRate {
							m.sampleRateIndex = i
							break
						}
					}
					m.viewport.SetContent(m.renderDeviceDetail())
				}
			}
		} else if m.activeScreen == DetailScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = ListScreen
				m.viewport.SetContent(m.renderDevices())

			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
					m.viewport.SetContent(m.renderDeviceDetail())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.sampleRateIndex < len(m.availableSampleRates)-1 {
					m.sampleRateIndex++
					m.viewport.SetContent(m.renderDeviceDetail())
				}
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m DevicePickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Capture Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Details • q: Quit")
	} else {
		title = titleStyle.Render("Analysis Preview")
		help = infoStyle.Render("↑/↓: Sample Rate • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		line := fmt.Sprintf("[%d] %s\n", device.ID, device.Name)
		line += fmt.Sprintf("    Input channels: %d, default rate: %.0f Hz\n",
			device.MaxInputChannels, device.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			line = highlightStyle.Render(line)
		case device.MaxInputChannels == 0:
			// Output-only devices cannot feed the spectrum.
			line = dimStyle.Render(line)
		}

		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDeviceDetail shows what the analysis geometry yields at each
// candidate sample rate for the selected device.
func (m DevicePickerModel) renderDeviceDetail() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	sb.WriteString(fmt.Sprintf("Device: %s\n", device.Name))
	sb.WriteString(fmt.Sprintf("FFT %d, hop %d\n\n", m.fftSize, m.hopSize))

	for i, rate := range m.availableSampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}

		frameMS := float64(m.fftSize) / rate * 1000
		updatesPerSec := rate / float64(m.hopSize)
		resolution := rate / float64(m.fftSize)

		line := fmt.Sprintf("  %s %.0f Hz: %.0fms frames, %.1f updates/s, %.1f Hz/bin\n",
			marker, rate, frameMS, updatesPerSec, resolution)

		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	sb.WriteString(dimStyle.Render("\nRun with --device " + fmt.Sprint(device.ID) +
		" --sample-rate " + fmt.Sprintf("%.0f", m.availableSampleRates[m.sampleRateIndex])))

	return sb.String()
}

// StartDevicePickerUI launches the device browser in the alternate screen.
func StartDevicePickerUI(fftSize, hopSize int) error {
	p := tea.NewProgram(
		NewDevicePickerModel(fftSize, hopSize),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
