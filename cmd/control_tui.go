// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/mitp/pkg/mitp"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusControls = iota
	focusTargetInput
)

// Control keys
const (
	controlPower       = "power"
	controlMode        = "mode"
	controlFan         = "fan"
	controlTarget      = "target"
	controlVane        = "vane"
	controlHVane       = "hvane"
	controlSource      = "source"
	controlFilterReset = "filter"
)

// Offered until the unit reports its capabilities
var (
	defaultModes = []mitp.ClimateMode{
		mitp.ClimateModeHeat, mitp.ClimateModeDry, mitp.ClimateModeCool,
		mitp.ClimateModeFanOnly, mitp.ClimateModeAuto, mitp.ClimateModeOff,
	}
	defaultFanModes = []mitp.FanMode{
		mitp.FanModeAuto, mitp.FanModeQuiet, mitp.FanModeLow, mitp.FanModeMedium, mitp.FanModeHigh,
	}
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// controlItem is one entry of the control list
type controlItem struct {
	key      string
	shortcut string
	title    string
	value    string
}

// Implement list.Item interface
func (c controlItem) Title() string       { return fmt.Sprintf("[%s] %s", c.shortcut, c.title) }
func (c controlItem) Description() string { return c.value }
func (c controlItem) FilterValue() string { return c.title }

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	connInfo string

	// Hub of the running service; only touched through Submit
	hub            *mitp.Hub
	connectionLost bool

	// Published entity states
	climate *mitp.ClimateState
	sensors map[string]float32
	texts   map[string]string
	selects map[string]string

	// Control
	controls     list.Model
	targetInput  textinput.Model
	focusedField int

	// Event log
	errorLog      []errorLogEntry
	maxLogEntries int

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type sensorMsg struct {
	name  string
	value float32
}

type textMsg struct {
	name  string
	value string
}

type selectMsg struct {
	name   string
	option string
}

type climateMsg mitp.ClimateState

type logMsg struct {
	timestamp time.Time
	message   string
	isError   bool
}

type serviceReadyMsg struct {
	hub *mitp.Hub
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(connInfo string) controlModel {
	// Initialize text input for the setpoint
	ti := textinput.New()
	ti.Placeholder = "21.0"
	ti.CharLimit = 5
	ti.Width = 10

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	controls := list.New([]list.Item{}, delegate, 30, 18)
	controls.Title = "Controls"
	controls.SetShowStatusBar(false)
	controls.SetShowHelp(false)
	controls.SetFilteringEnabled(false)

	m := controlModel{
		connInfo:      connInfo,
		sensors:       make(map[string]float32),
		texts:         make(map[string]string),
		selects:       make(map[string]string),
		controls:      controls,
		targetInput:   ti,
		focusedField:  focusControls,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
	m.updateControlList()
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.controls, _ = m.controls.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		// Redraw so link statistics stay current
		return m, controlTickCmd()

	case serviceReadyMsg:
		m.hub = msg.hub
		m.connectionLost = false
		m.addLogEntry("Links open - connecting to heat pump", false)

	case connectionLostMsg:
		m.hub = nil
		m.connectionLost = true
		m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)

	case sensorMsg:
		m.sensors[msg.name] = msg.value

	case textMsg:
		m.texts[msg.name] = msg.value

	case selectMsg:
		m.selects[msg.name] = msg.option
		m.updateControlList()

	case climateMsg:
		state := mitp.ClimateState(msg)
		if m.climate == nil {
			m.addLogEntry("Heat pump state received", false)
		}
		m.climate = &state
		m.updateControlList()

	case logMsg:
		m.errorLog = append(m.errorLog, errorLogEntry(msg))
		m.trimLog()
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab", "esc":
		return m.toggleFocus(msg.String() != "esc"), nil
	}

	// The setpoint input takes every other key while focused
	if m.focusedField == focusTargetInput {
		if msg.String() == "enter" {
			return m.applyTarget()
		}
		var cmd tea.Cmd
		m.targetInput, cmd = m.targetInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		if item, ok := m.controls.SelectedItem().(controlItem); ok {
			return m.activate(item.key)
		}

	case "up", "k", "down", "j":
		m.controls, _ = m.controls.Update(msg)

	default:
		for _, item := range m.controlItems() {
			if item.shortcut == msg.String() {
				return m.activate(item.key)
			}
		}
	}

	return m, nil
}

func (m controlModel) toggleFocus(toInput bool) controlModel {
	if toInput && m.focusedField == focusControls {
		m.focusedField = focusTargetInput
		m.targetInput.Focus()
	} else {
		m.focusedField = focusControls
		m.targetInput.Blur()
	}
	return m
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// activate runs the control behind key
func (m controlModel) activate(key string) (tea.Model, tea.Cmd) {
	switch key {
	case controlTarget:
		return m.toggleFocus(true), nil
	case controlPower:
		on := m.climate == nil || !m.climate.Power
		m.submit(fmt.Sprintf("Power %s", onOff(on)), func(h *mitp.Hub) { h.SetPower(on) })
	case controlMode:
		m.submit("Next mode", cycleMode)
	case controlFan:
		m.submit("Next fan speed", cycleFanMode)
	case controlVane:
		m.submit("Next vane position", func(h *mitp.Hub) { cycleSelect(h, mitp.SelectVanePosition) })
	case controlHVane:
		m.submit("Next horizontal vane position", func(h *mitp.Hub) { cycleSelect(h, mitp.SelectHorizontalVanePosition) })
	case controlSource:
		m.submit("Next temperature source", func(h *mitp.Hub) { cycleSelect(h, mitp.SelectTemperatureSource) })
	case controlFilterReset:
		m.submit("Filter reset", func(h *mitp.Hub) { h.ResetFilterStatus() })
	}
	return m, nil
}

func (m controlModel) applyTarget() (tea.Model, tea.Cmd) {
	value := m.targetInput.Value()
	if value == "" {
		value = m.targetInput.Placeholder
	}

	target, err := strconv.ParseFloat(value, 32)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid setpoint: %s", value), true)
		return m, nil
	}

	v := float32(target)
	m.submit(fmt.Sprintf("Setpoint %.1f°C", v), func(h *mitp.Hub) { h.SetTargetTemperature(v) })
	m.targetInput.SetValue("")
	return m.toggleFocus(false), nil
}

// submit queues fn on the hub goroutine
func (m *controlModel) submit(what string, fn func(*mitp.Hub)) {
	// Don't allow control commands while connection is lost
	if m.hub == nil {
		m.addLogEntry(fmt.Sprintf("Cannot send %s: not connected", strings.ToLower(what)), true)
		return
	}
	if !m.hub.Submit(fn) {
		m.addLogEntry(fmt.Sprintf("Cannot send %s: hub busy", strings.ToLower(what)), true)
		return
	}
	m.addLogEntry(what, false)
}

// nextOption returns the option after current, wrapping around. Unknown
// current values start from the first option.
func nextOption[T comparable](options []T, current T) (T, bool) {
	if len(options) == 0 {
		var zero T
		return zero, false
	}
	i := slices.Index(options, current)
	return options[(i+1)%len(options)], true
}

func cycleMode(h *mitp.Hub) {
	modes := defaultModes
	if t, ok := h.Traits(); ok {
		modes = t.Modes
	}
	current := h.Climate().Mode
	if !h.Climate().Power {
		current = mitp.ClimateModeOff
	}
	if next, ok := nextOption(modes, current); ok {
		h.SetMode(next)
	}
}

func cycleFanMode(h *mitp.Hub) {
	fans := defaultFanModes
	if t, ok := h.Traits(); ok {
		fans = t.FanModes
	}
	if next, ok := nextOption(fans, h.Climate().FanMode); ok {
		h.SetFanMode(next)
	}
}

func cycleSelect(h *mitp.Hub, name string) {
	for _, l := range h.Listeners() {
		if s, ok := l.(mitp.Select); ok && s.Name() == name {
			if next, ok := nextOption(s.Options(), s.Current()); ok {
				h.Select(name, next)
			}
			return
		}
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("MITP CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=setpoint Enter=apply", connStatus)))
	s.WriteString("\n\n")

	// Layout: left panel (controls) | right panel (state)
	leftWidth := 34
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusControls {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	controlPanel := listStyle.Render(m.controls.View())

	statePanel := boxStyle.Width(rightWidth).Render(
		m.renderState(statsLabelStyle, statsValueStyle, headerStyle, warningStyle, focusedBoxStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, controlPanel, " ", statePanel))
	s.WriteString("\n\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

func (m controlModel) renderState(statsLabelStyle, statsValueStyle, headerStyle, warningStyle, focusedBoxStyle lipgloss.Style) string {
	var s strings.Builder

	if m.climate == nil {
		s.WriteString(warningStyle.Render("Waiting for heat pump..."))
	} else {
		c := m.climate
		row := func(label, value string) {
			s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render(label), statsValueStyle.Render(value)))
		}
		row("Power:", onOff(c.Power))
		row("Mode:", string(c.Mode))
		row("Action:", string(c.Action))
		row("Fan:", string(c.FanMode))
		row("Target:", formatTemperature(c.TargetTemperature))
		row("Current:", formatTemperature(c.CurrentTemperature))
		row("Vane:", fmt.Sprintf("%s / %s", c.Vane, c.HorizontalVane))
		if c.UsingInternalTemperature {
			row("Sensor:", "internal")
		} else {
			row("Sensor:", "remote")
		}
		if c.ServiceFilter {
			s.WriteString(warningStyle.Render("Filter service due"))
			s.WriteString("\n")
		}
	}

	// Setpoint input
	s.WriteString("\n")
	s.WriteString(statsLabelStyle.Render("New setpoint: "))
	if m.focusedField == focusTargetInput {
		s.WriteString(m.targetInput.View())
	} else {
		s.WriteString(headerStyle.Render("(Tab to edit)"))
	}
	s.WriteString("\n")

	// Sensors
	if len(m.sensors) > 0 || len(m.texts) > 0 {
		s.WriteString("\n")
		s.WriteString(statsLabelStyle.Render("SENSORS"))
		s.WriteString("\n")
		for _, name := range sortedKeys(m.sensors) {
			value := "unknown"
			if v := m.sensors[name]; !math.IsNaN(float64(v)) {
				value = strconv.FormatFloat(float64(v), 'f', -1, 32)
			}
			s.WriteString(fmt.Sprintf("  %s %s\n", headerStyle.Render(name+":"), statsValueStyle.Render(value)))
		}
		for _, name := range sortedKeys(m.texts) {
			s.WriteString(fmt.Sprintf("  %s %s\n", headerStyle.Render(name+":"), statsValueStyle.Render(m.texts[name])))
		}
	}

	return strings.TrimSuffix(s.String(), "\n")
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	if m.hub == nil {
		return boxStyle.Width(m.width - 4).Render("No link statistics")
	}

	// Counters are atomic, safe to read off the hub goroutine
	snap := m.hub.HeatPumpBridge().Statistics().Snapshot()

	errors := statsValueStyle.Render("0")
	if n := snap.Errors() + snap.ResponseTimeouts; n > 0 {
		errors = errorStyle.Render(fmt.Sprintf("%d", n))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Received:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.FramesReceived)),
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.PacketsSent)),
		statsLabelStyle.Render("Answered:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.ResponsesMatched)),
		statsLabelStyle.Render("Errors:"), errors,
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", snap.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// Calculate available height for log
	logHeight := 8
	if len(m.errorLog) < logHeight {
		logHeight = len(m.errorLog)
	}

	startIdx := len(m.errorLog) - logHeight

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

// controlItems lists the controls with their current values
func (m controlModel) controlItems() []controlItem {
	power, mode, fan, target := "unknown", "unknown", "unknown", "unknown"
	if c := m.climate; c != nil {
		power = onOff(c.Power)
		mode = string(c.Mode)
		fan = string(c.FanMode)
		target = formatTemperature(c.TargetTemperature)
	}
	current := func(name string) string {
		if v, ok := m.selects[name]; ok {
			return v
		}
		return "unknown"
	}

	return []controlItem{
		{controlPower, "p", "Power", power},
		{controlMode, "m", "Mode", mode},
		{controlFan, "f", "Fan", fan},
		{controlTarget, "t", "Setpoint", target},
		{controlVane, "v", "Vane", current(mitp.SelectVanePosition)},
		{controlHVane, "h", "Horizontal vane", current(mitp.SelectHorizontalVanePosition)},
		{controlSource, "s", "Temperature source", current(mitp.SelectTemperatureSource)},
		{controlFilterReset, "r", "Reset filter", "clear the service filter flag"},
	}
}

func (m *controlModel) updateControlList() {
	controls := m.controlItems()
	items := make([]list.Item, len(controls))
	for i, c := range controls {
		items[i] = c
	}
	m.controls.SetItems(items)
}

func (m *controlModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 10 {
		listHeight = 10
	}
	m.controls.SetSize(32, listHeight)
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.errorLog = append(m.errorLog, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	m.trimLog()
}

func (m *controlModel) trimLog() {
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func formatTemperature(v float32) string {
	if math.IsNaN(float64(v)) {
		return "unknown"
	}
	return fmt.Sprintf("%.1f°C", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
