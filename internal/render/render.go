// Package render draws automaton images and entropy trajectories for the
// terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/htapia/convoca/core"
)

// Glyphs used for cells. Each cell is two columns wide so grids look square.
const (
	AliveGlyph = "██"
	DeadGlyph  = "··"
)

// Grid renders rank-2 images.
type Grid struct {
	Alive  lipgloss.Style
	Dead   lipgloss.Style
	Frame  lipgloss.Style
	Title  lipgloss.Style
	Border bool
}

// NewGrid returns the default grid styles.
func NewGrid() *Grid {
	return &Grid{
		Alive: lipgloss.NewStyle().Foreground(lipgloss.Color("#7dd3fc")),
		Dead:  lipgloss.NewStyle().Foreground(lipgloss.Color("#3f3f46")),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b")),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#e4e4e7")),
		Border: true,
	}
}

// Render draws img with an optional title line. Cells >= 0.5 are alive.
func (g *Grid) Render(title string, img *core.Tensor) (string, error) {
	if img.Rank() != 2 {
		return "", fmt.Errorf("%w: render wants [H W], got %v", core.ErrRank, img.Shape)
	}
	h, w := img.Dim(0), img.Dim(1)
	alive, dead := g.Alive.Render(AliveGlyph), g.Dead.Render(DeadGlyph)

	var b strings.Builder
	for y := 0; y < h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < w; x++ {
			if img.At(y, x) >= 0.5 {
				b.WriteString(alive)
			} else {
				b.WriteString(dead)
			}
		}
	}
	body := b.String()
	if g.Border {
		body = g.Frame.Render(body)
	}
	if title == "" {
		return body, nil
	}
	return lipgloss.JoinVertical(lipgloss.Left, g.Title.Render(title), body), nil
}

// Row renders images side by side.
func (g *Grid) Row(titles []string, imgs ...*core.Tensor) (string, error) {
	blocks := make([]string, len(imgs))
	for i, img := range imgs {
		title := ""
		if i < len(titles) {
			title = titles[i]
		}
		s, err := g.Render(title, img)
		if err != nil {
			return "", err
		}
		blocks[i] = s
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...), nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().PaddingLeft(1)
)

// Trajectory tabulates trajectory[step][image] with one row per step.
func Trajectory(trajectory [][]float64) string {
	if len(trajectory) == 0 {
		return ""
	}
	rows := make([]string, 0, len(trajectory)+1)
	header := []string{headerStyle.Render(fmt.Sprintf("%5s", "step"))}
	for i := range trajectory[0] {
		header = append(header, cellStyle.Render(headerStyle.Render(fmt.Sprintf("%8s", fmt.Sprintf("img%d", i)))))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, header...))
	for step, vals := range trajectory {
		cells := []string{fmt.Sprintf("%5d", step)}
		for _, v := range vals {
			cells = append(cells, cellStyle.Render(fmt.Sprintf("%8.4f", v)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
