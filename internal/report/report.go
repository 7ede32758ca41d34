// Package report renders the cached-country summary image.
package report

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hpungsan/countrycache/internal/country"
)

// FileName is the single cache slot for the summary image.
const FileName = "summary.png"

// TopN is how many countries the summary lists.
const TopN = 5

const (
	Width  = 800
	Height = 600

	headerHeight = 80
	margin       = 50
	lineSpacing  = 30
)

const (
	Title         = "Country & Currency Summary"
	TopHeading    = "Top 5 Countries by Estimated GDP:"
	EmptyTopLabel = "No data available yet"
	neverLabel    = "Never"
)

var (
	white     = color.RGBA{255, 255, 255, 255}
	headerBG  = color.RGBA{41, 128, 185, 255}
	textColor = color.RGBA{44, 62, 80, 255}
	ruleColor = color.RGBA{189, 195, 199, 255}
	green     = color.RGBA{39, 174, 96, 255}
)

// Stats is everything the summary shows.
type Stats struct {
	Total int
	Top   []country.Record
	// LastRefreshedAt is the wire-formatted refresh time; empty means never.
	LastRefreshedAt string
}

var printer = message.NewPrinter(language.English)

// FormatGDP renders an amount with thousands separators and two decimals.
func FormatGDP(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// Lines returns the text content of the summary in drawing order.
func Lines(s Stats) []string {
	lines := []string{
		Title,
		fmt.Sprintf("Total Countries: %d", s.Total),
		TopHeading,
	}

	if len(s.Top) == 0 {
		lines = append(lines, EmptyTopLabel)
	}
	for i, rec := range s.Top {
		if i == TopN {
			break
		}
		gdp := 0.0
		if rec.EstimatedGDP != nil {
			gdp = *rec.EstimatedGDP
		}
		lines = append(lines, fmt.Sprintf("%d. %s - $%s", i+1, rec.Name, FormatGDP(gdp)))
	}

	last := s.LastRefreshedAt
	if last == "" {
		last = neverLabel
	}
	return append(lines, "Last Refreshed: "+last)
}

// Renderer writes the summary PNG into a cache directory.
type Renderer struct {
	dir string
}

// NewRenderer creates the cache directory if needed.
func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Renderer{dir: dir}, nil
}

// Dir returns the cache directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// Path returns the summary image path if it has been generated.
func (r *Renderer) Path() (string, bool) {
	path := filepath.Join(r.dir, FileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Render draws s and replaces the cached image. Readers never observe a
// partially written file.
func (r *Renderer) Render(s Stats) (string, error) {
	img := Draw(s)

	tmp, err := os.CreateTemp(r.dir, ".summary-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	path := filepath.Join(r.dir, FileName)
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("replace image: %w", err)
	}
	_ = os.Chmod(path, 0644)
	return path, nil
}

// Draw lays out the summary on an 800x600 canvas.
func Draw(s Stats) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fill(img, img.Bounds(), white)
	fill(img, image.Rect(0, 0, Width, headerHeight), headerBG)

	lines := Lines(s)
	face := basicfont.Face7x13

	// Title centered in the header band
	title := lines[0]
	titleWidth := font.MeasureString(face, title).Ceil()
	drawText(img, title, (Width-titleWidth)/2, headerHeight/2+5, white)

	drawText(img, lines[1], margin, 120, textColor)
	fill(img, image.Rect(margin, 140, Width-margin, 142), ruleColor)
	drawText(img, lines[2], margin, 180, textColor)

	y := 220
	body := lines[3 : len(lines)-1]
	for _, line := range body {
		drawText(img, line, margin+20, y, textColor)
		y += lineSpacing
	}

	fill(img, image.Rect(margin, Height-80, Width-margin, Height-78), ruleColor)
	drawText(img, lines[len(lines)-1], margin, Height-50, green)

	return img
}

func fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func drawText(img draw.Image, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// StatsProvider is the read side of the store the generator needs.
type StatsProvider interface {
	Count(ctx context.Context) (int, error)
	TopByGDP(ctx context.Context, limit int) ([]country.Record, error)
	GetAPIStatus(ctx context.Context) (*country.Status, error)
}

// Generator collects stats from the store and renders them.
type Generator struct {
	stats    StatsProvider
	renderer *Renderer
}

// NewGenerator pairs a stats source with a renderer.
func NewGenerator(stats StatsProvider, renderer *Renderer) *Generator {
	return &Generator{stats: stats, renderer: renderer}
}

// Generate regenerates the summary image and returns its path.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	total, err := g.stats.Count(ctx)
	if err != nil {
		return "", err
	}
	top, err := g.stats.TopByGDP(ctx, TopN)
	if err != nil {
		return "", err
	}
	status, err := g.stats.GetAPIStatus(ctx)
	if err != nil {
		return "", err
	}

	s := Stats{Total: total, Top: top}
	if status.LastRefreshedAt != nil {
		s.LastRefreshedAt = *status.LastRefreshedAt
	}
	return g.renderer.Render(s)
}
