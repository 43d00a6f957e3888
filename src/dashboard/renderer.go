package dashboard

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"cheese-stick/src/imaging"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// View selects the chart drawn by the renderer.
type View string

const (
	ViewBar  View = "bar"
	ViewLine View = "line"
	ViewRace View = "race"
)

// ParseView maps a client string to a View.
func ParseView(s string) (View, bool) {
	switch View(s) {
	case ViewBar, ViewLine, ViewRace:
		return View(s), true
	}
	return "", false
}

// Theme selects the chart colours.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type themeColors struct {
	background drawing.Color
	canvas     drawing.Color
	text       drawing.Color
	grid       drawing.Color
	dateText   drawing.Color
	dateBox    color.Color
}

var themes = map[Theme]themeColors{
	ThemeDark: {
		background: drawing.ColorFromHex("0a0a0a"),
		canvas:     drawing.ColorFromHex("111111"),
		text:       drawing.ColorFromHex("e0e0e0"),
		grid:       drawing.ColorFromHex("333333"),
		dateText:   drawing.ColorFromHex("00ff88"),
		dateBox:    color.RGBA{0, 0, 0, 160},
	},
	ThemeLight: {
		background: drawing.ColorFromHex("f5f5f5"),
		canvas:     drawing.ColorFromHex("ffffff"),
		text:       drawing.ColorFromHex("222222"),
		grid:       drawing.ColorFromHex("cccccc"),
		dateText:   drawing.ColorFromHex("000000"),
		dateBox:    color.RGBA{255, 255, 255, 160},
	},
}

// ParseTheme maps a client string to a Theme.
func ParseTheme(s string) (Theme, bool) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	_, ok := themes[t]
	return t, ok
}

func colorsFor(t Theme) themeColors {
	if c, ok := themes[t]; ok {
		return c
	}
	return themes[ThemeDark]
}

// -----------------------------------------------------------------------------

// Marker is where a player's icon was drawn on a race frame.
type Marker struct {
	Player int
	X, Y   int
}

// ChartHandle is one rendered chart. Destroy releases its buffers.
type ChartHandle struct {
	View    View
	Cursor  int
	YRange  Range
	Markers []Marker

	img       *image.RGBA
	png       []byte
	destroyed bool
}

// Image returns the rasterized chart, or nil once destroyed.
func (h *ChartHandle) Image() image.Image {
	if h == nil || h.img == nil {
		return nil
	}
	return h.img
}

// PNG returns the encoded chart, or nil once destroyed.
func (h *ChartHandle) PNG() []byte {
	if h == nil {
		return nil
	}
	return h.png
}

// Destroyed reports whether Destroy ran.
func (h *ChartHandle) Destroyed() bool { return h != nil && h.destroyed }

// Destroy releases the image buffers.
func (h *ChartHandle) Destroy() {
	if h == nil || h.destroyed {
		return
	}
	h.destroyed = true
	h.img = nil
	h.png = nil
}

// -----------------------------------------------------------------------------

// Renderer draws bar, line and race charts and keeps at most one live handle.
// It is not safe for concurrent use; the controller calls it from its loop.
type Renderer struct {
	Width             int
	Height            int
	Theme             Theme
	InitialInvestment float64
	Logger            *logger.Logger

	raceBounds *Range
	markers    map[int]*image.RGBA
	comp       *models.MCompetition
	current    *ChartHandle
	live       int
}

// NewRenderer creates a renderer of the given size.
func NewRenderer(width, height int, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Renderer{
		Width:             width,
		Height:            height,
		Theme:             ThemeDark,
		InitialInvestment: models.InitialInvestment,
		Logger:            log,
		markers:           make(map[int]*image.RGBA),
	}
}

// SetCompetition supplies the icons used as race markers.
func (r *Renderer) SetCompetition(comp *models.MCompetition) {
	r.comp = comp
	r.markers = make(map[int]*image.RGBA)
}

// SetRaceBounds fixes the race Y axis. ok=false leaves it to the data.
func (r *Renderer) SetRaceBounds(min, max float64, ok bool) {
	if !ok {
		r.raceBounds = nil
		return
	}
	r.raceBounds = &Range{Min: min, Max: max}
}

// RaceBounds returns the fixed race range, if any.
func (r *Renderer) RaceBounds() (Range, bool) {
	if r.raceBounds == nil {
		return Range{}, false
	}
	return *r.raceBounds, true
}

// Current returns the live handle.
func (r *Renderer) Current() *ChartHandle { return r.current }

// LiveHandles counts handles rendered and not yet destroyed.
func (r *Renderer) LiveHandles() int { return r.live }

// Release destroys the live handle.
func (r *Renderer) Release() {
	if r.current != nil {
		r.current.Destroy()
		r.current = nil
		r.live--
	}
}

// -----------------------------------------------------------------------------

// Render draws view for the active players. cursor truncates race histories
// to [0, *cursor]. A nil perf is a no-op.
func (r *Renderer) Render(perf *models.MPerformance, view View, active ActiveSet, includeShort bool, cursor *int) (*ChartHandle, error) {
	if perf == nil {
		return nil, nil
	}
	r.Release()

	h := &ChartHandle{View: view}
	if cursor != nil {
		h.Cursor = *cursor
	}

	var err error
	switch {
	case len(r.drawable(perf, active)) == 0:
		h.img = r.blank()
	case view == ViewBar:
		err = r.renderBar(h, perf, active, includeShort)
	case view == ViewLine:
		err = r.renderLine(h, perf, active, includeShort, -1)
	case view == ViewRace:
		last := perf.LastIndex()
		if cursor != nil {
			last = min(max(*cursor, 0), perf.LastIndex())
		}
		h.Cursor = last
		err = r.renderLine(h, perf, active, includeShort, last)
	default:
		err = fmt.Errorf("unknown view %q", view)
	}
	if err != nil {
		r.Logger.Error("Failed to render %s chart: %v", view, err)
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, h.img); err != nil {
		return nil, err
	}
	h.png = buf.Bytes()

	r.current = h
	r.live++
	return h, nil
}

// drawable lists active indices that exist in perf.
func (r *Renderer) drawable(perf *models.MPerformance, active ActiveSet) []int {
	var out []int
	for _, idx := range active.Indices() {
		if idx >= 0 && idx < len(perf.Players) {
			out = append(out, idx)
		}
	}
	return out
}

func (r *Renderer) blank() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorsFor(r.Theme).background), image.Point{}, draw.Src)
	return img
}

// -----------------------------------------------------------------------------

// barRange spans the bar values and the baseline, padded by 10%.
func barRange(values []float64, baseline float64) Range {
	lo, hi := baseline, baseline
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.1
	return Range{Min: lo - pad, Max: hi + pad}.widened()
}

func (r *Renderer) renderBar(h *ChartHandle, perf *models.MPerformance, active ActiveSet, includeShort bool) error {
	tc := colorsFor(r.Theme)
	baseline := perf.InitialInvestment
	if baseline == 0 {
		baseline = r.InitialInvestment
	}

	var bars []chart.Value
	var values []float64
	for _, idx := range r.drawable(perf, active) {
		p := perf.Players[idx]
		v := baseline
		if n := len(p.History); n > 0 {
			v = ValueAt(p.History[n-1], includeShort)
		}
		values = append(values, v)
		c := drawing.ColorFromHex(p.Color)
		bars = append(bars, chart.Value{
			Label: p.Name,
			Value: v,
			Style: chart.Style{FillColor: c, StrokeColor: c},
		})
	}

	yr := barRange(values, baseline)
	h.YRange = yr

	baselineLine := func(cr chart.Renderer, box chart.Box, _ chart.Style) {
		y := box.Bottom - int(math.Ceil((baseline-yr.Min)/yr.Span()*float64(box.Height())))
		cr.SetStrokeColor(tc.text.WithAlpha(160))
		cr.SetStrokeWidth(1.5)
		cr.SetStrokeDashArray([]float64{6, 6})
		cr.MoveTo(box.Left, y)
		cr.LineTo(box.Right, y)
		cr.Stroke()
		cr.SetStrokeDashArray(nil)
	}

	bc := chart.BarChart{
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   max(12, r.Width/(2*len(bars)+1)),
		Background: chart.Style{FillColor: tc.background, Padding: chart.Box{Top: 20, Left: 10, Right: 10, Bottom: 10}},
		Canvas:     chart.Style{FillColor: tc.canvas},
		XAxis:      chart.Style{FontColor: tc.text, StrokeColor: tc.grid},
		YAxis: chart.YAxis{
			Style:          chart.Style{FontColor: tc.text, StrokeColor: tc.grid},
			Range:          &chart.ContinuousRange{Min: yr.Min, Max: yr.Max},
			ValueFormatter: dollarFormatter,
		},
		Bars:     bars,
		Elements: []chart.Renderable{baselineLine},
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return err
	}
	img, err := decodeRGBA(buf.Bytes())
	if err != nil {
		return err
	}
	h.img = img
	return nil
}

// -----------------------------------------------------------------------------

// renderLine draws full histories when upto < 0, otherwise the race view:
// histories truncated to [0, upto] with icons on the terminal points.
func (r *Renderer) renderLine(h *ChartHandle, perf *models.MPerformance, active ActiveSet, includeShort bool, upto int) error {
	tc := colorsFor(r.Theme)
	race := upto >= 0

	var yr Range
	var ok bool
	if race && r.raceBounds != nil {
		yr, ok = *r.raceBounds, true
	} else {
		yr, ok = rangeOf(perf, active, includeShort)
	}
	if !ok {
		h.img = r.blank()
		return nil
	}
	yr = yr.widened()
	h.YRange = yr

	xMax := float64(max(1, perf.LastIndex()))

	type terminal struct {
		player int
		x, y   float64
	}
	var ends []terminal
	var series []chart.Series
	for _, idx := range r.drawable(perf, active) {
		p := perf.Players[idx]
		n := len(p.History)
		if race {
			n = min(n, upto+1)
		}
		if n == 0 {
			continue
		}
		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := 0; i < n; i++ {
			xs[i] = float64(i)
			ys[i] = ValueAt(p.History[i], includeShort)
		}

		c := drawing.ColorFromHex(p.Color)
		style := chart.Style{StrokeColor: c, StrokeWidth: 2}
		if race {
			lastPoint := n - 1
			style.DotColor = c
			style.DotWidthProvider = func(_, _ chart.Range, index int, _, _ float64) float64 {
				if index == lastPoint {
					return 4
				}
				return 0
			}
			ends = append(ends, terminal{player: idx, x: xs[lastPoint], y: ys[lastPoint]})
		}
		series = append(series, chart.ContinuousSeries{Name: p.Name, Style: style, XValues: xs, YValues: ys})
	}
	if len(series) == 0 {
		h.img = r.blank()
		return nil
	}

	var canvas chart.Box
	ch := chart.Chart{
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{FillColor: tc.background, Padding: chart.Box{Top: 40, Left: 10, Right: 30, Bottom: 10}},
		Canvas:     chart.Style{FillColor: tc.canvas},
		XAxis: chart.XAxis{
			Style:          chart.Style{FontColor: tc.text, StrokeColor: tc.grid},
			Range:          &chart.ContinuousRange{Min: 0, Max: xMax},
			Ticks:          dateTicks(perf.TradingDays, 6),
			ValueFormatter: indexFormatter(perf.TradingDays),
		},
		YAxis: chart.YAxis{
			Style:          chart.Style{FontColor: tc.text, StrokeColor: tc.grid},
			Range:          &chart.ContinuousRange{Min: yr.Min, Max: yr.Max},
			ValueFormatter: dollarFormatter,
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{
		chart.LegendThin(&ch, chart.Style{FillColor: tc.canvas, FontColor: tc.text, StrokeColor: tc.grid}),
		func(_ chart.Renderer, box chart.Box, _ chart.Style) { canvas = box },
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return err
	}
	img, err := decodeRGBA(buf.Bytes())
	if err != nil {
		return err
	}

	for _, e := range ends {
		px := canvas.Left + int(math.Ceil(e.x/xMax*float64(canvas.Width())))
		py := canvas.Bottom - int(math.Ceil((e.y-yr.Min)/yr.Span()*float64(canvas.Height())))
		imaging.Overlay(img, r.marker(perf, e.player), px, py)
		h.Markers = append(h.Markers, Marker{Player: e.player, X: px, Y: py})
	}
	h.img = img
	return nil
}

// marker returns the cached race icon for a player.
func (r *Renderer) marker(perf *models.MPerformance, idx int) *image.RGBA {
	if m, ok := r.markers[idx]; ok {
		return m
	}
	name, hex, icon := perf.Players[idx].Name, perf.Players[idx].Color, ""
	if r.comp != nil && idx < len(r.comp.Players) {
		icon = r.comp.Players[idx].Icon
	}
	m := imaging.MarkerIcon(name, hex, icon, imaging.MarkerSize)
	r.markers[idx] = m
	return m
}

// -----------------------------------------------------------------------------

func decodeRGBA(data []byte) (*image.RGBA, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba, nil
	}
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
	return out, nil
}

func dollarFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return fmt.Sprintf("$%.0fk", f/1000)
}

// indexFormatter labels x positions with trading days.
func indexFormatter(days []string) chart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		i := int(math.Round(f))
		if i < 0 || i >= len(days) {
			return ""
		}
		return days[i]
	}
}

// dateTicks spreads at most n labelled ticks over the trading days.
func dateTicks(days []string, n int) []chart.Tick {
	if len(days) == 0 {
		return nil
	}
	if len(days) == 1 {
		return []chart.Tick{{Value: 0, Label: days[0]}}
	}
	step := max(1, int(math.Ceil(float64(len(days)-1)/float64(n-1))))
	var ticks []chart.Tick
	for i := 0; i < len(days); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: days[i]})
	}
	if last := len(days) - 1; ticks[len(ticks)-1].Value != float64(last) {
		ticks = append(ticks, chart.Tick{Value: float64(last), Label: days[last]})
	}
	return ticks
}
