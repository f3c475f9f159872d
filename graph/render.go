// ABOUTME: Plots a computed layout onto a character grid for the idle screen.
// ABOUTME: Presentation-only; the TUI applies styling on top of the plain text.
package graph

import "strings"

// Render plots the layout into a width x height character grid. Edges are
// traced with light dots, nodes drawn on top. Returns "" when the grid is
// too small to plot anything.
func Render(l Layout, width, height int) string {
	if width < 3 || height < 3 || len(l.Nodes) == 0 {
		return ""
	}

	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = make([]rune, width)
		for x := range grid[y] {
			grid[y][x] = ' '
		}
	}

	toCell := func(p Position) (int, int) {
		x := int((p.X + 1) / 2 * float64(width-1))
		y := int((p.Y + 1) / 2 * float64(height-1))
		return clamp(x, 0, width-1), clamp(y, 0, height-1)
	}

	for _, e := range l.Edges {
		if e.From < 0 || e.From >= len(l.Nodes) || e.To < 0 || e.To >= len(l.Nodes) {
			continue
		}
		x0, y0 := toCell(l.Nodes[e.From])
		x1, y1 := toCell(l.Nodes[e.To])
		plotLine(grid, x0, y0, x1, y1)
	}

	for i, p := range l.Nodes {
		x, y := toCell(p)
		if i == 0 {
			grid[y][x] = '◉'
		} else {
			grid[y][x] = '●'
		}
	}

	lines := make([]string, height)
	for y := range grid {
		lines[y] = strings.TrimRight(string(grid[y]), " ")
	}
	return strings.Join(lines, "\n")
}

// plotLine traces a Bresenham line of dots between two cells, leaving
// endpoints for the node glyphs.
func plotLine(grid [][]rune, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	x, y := x0, y0
	for {
		if grid[y][x] == ' ' {
			grid[y][x] = '·'
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
