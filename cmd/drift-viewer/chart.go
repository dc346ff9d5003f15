package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Chart dimensions, border included
const (
	chartWidth  = 74
	chartHeight = 20
)

// renderChart plots the drift trail on an RA/Dec grid. RA increases to
// the left as on a sky chart; Dec runs from +90 at the top to -90.
func (m model) renderChart() string {
	var chart strings.Builder

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chart.WriteString(borderStyle.Render("┌" + strings.Repeat("─", chartWidth-2) + "┐"))
	chart.WriteString("\n")

	width, height := chartWidth-2, chartHeight-2
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	// Celestial equator and hour lines every 6h
	_, eqY := raDecToScreen(0, 0, width, height)
	for x := 0; x < width; x++ {
		grid[eqY][x] = '·'
	}
	for h := 0.0; h < 24; h += 6 {
		x, _ := raDecToScreen(h, 0, width, height)
		for y := 0; y < height; y++ {
			if grid[y][x] == ' ' {
				grid[y][x] = '¦'
			}
		}
	}

	// Local meridian
	lstX, _ := raDecToScreen(m.sample.LST, 0, width, height)
	for y := 0; y < height; y++ {
		grid[y][lstX] = '│'
	}

	for _, s := range m.trail {
		x, y := raDecToScreen(s.RA.Hour(), s.Dec.Deg(), width, height)
		grid[y][x] = '•'
	}

	x, y := raDecToScreen(m.sample.RA.Hour(), m.sample.Dec.Deg(), width, height)
	grid[y][x] = '+'

	for y := 0; y < height; y++ {
		chart.WriteString(borderStyle.Render("│"))
		for x := 0; x < width; x++ {
			char := grid[y][x]
			switch char {
			case '+':
				chart.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true).Render(string(char)))
			case '•':
				chart.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Render(string(char)))
			case '│':
				chart.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(string(char)))
			case '·', '¦':
				chart.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(string(char)))
			default:
				chart.WriteRune(char)
			}
		}
		chart.WriteString(borderStyle.Render("│"))
		chart.WriteString("\n")
	}

	chart.WriteString(borderStyle.Render("└" + strings.Repeat("─", chartWidth-2) + "┘"))
	chart.WriteString("\n")
	chart.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(axisLabels(width)))

	return chart.String()
}

// raDecToScreen maps RA hours and Dec degrees to a cell of a width x height
// grid. The result is always inside the grid.
func raDecToScreen(raHours, decDeg float64, width, height int) (int, int) {
	for raHours < 0 {
		raHours += 24
	}
	for raHours >= 24 {
		raHours -= 24
	}

	x := width - 1 - int(raHours/24*float64(width))
	y := int((90 - decDeg) / 180 * float64(height-1))

	return max(0, min(width-1, x)), max(0, min(height-1, y))
}

// axisLabels returns the RA labels under the chart.
func axisLabels(width int) string {
	line := []rune(strings.Repeat(" ", width+2))
	for _, h := range []int{0, 6, 12, 18} {
		x, _ := raDecToScreen(float64(h), 0, width, 1)
		label := []rune(fmt.Sprintf("%dh", h))
		start := min(x+1, len(line)-len(label))
		copy(line[start:], label)
	}
	return string(line)
}
