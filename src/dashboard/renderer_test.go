package dashboard

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"cheese-stick/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer() *Renderer {
	return NewRenderer(320, 160, nil)
}

func TestRenderNilPerformanceIsNoop(t *testing.T) {
	r := newTestRenderer()
	h, err := r.Render(nil, ViewLine, AllPlayers(2), false, nil)
	assert.NoError(t, err)
	assert.Nil(t, h)
	assert.Zero(t, r.LiveHandles())
}

func TestRenderDestroysPreviousHandle(t *testing.T) {
	r := newTestRenderer()
	perf := makePerf(10, 100, -50)

	first, err := r.Render(perf, ViewLine, AllPlayers(2), false, nil)
	require.NoError(t, err)
	second, err := r.Render(perf, ViewBar, AllPlayers(2), false, nil)
	require.NoError(t, err)

	assert.True(t, first.Destroyed())
	assert.Nil(t, first.Image())
	assert.False(t, second.Destroyed())
	assert.Equal(t, 1, r.LiveHandles())
	assert.Same(t, second, r.Current())

	r.Release()
	assert.Zero(t, r.LiveHandles())
}

func TestRenderProducesPNG(t *testing.T) {
	r := newTestRenderer()
	for _, view := range []View{ViewBar, ViewLine, ViewRace} {
		h, err := r.Render(makePerf(8, 100, -100, 20), view, AllPlayers(3), true, nil)
		require.NoError(t, err, view)
		img, err := png.Decode(bytes.NewReader(h.PNG()))
		require.NoError(t, err, view)
		assert.Equal(t, image.Rect(0, 0, 320, 160), img.Bounds(), view)
	}
}

func TestBarRangeIncludesBaseline(t *testing.T) {
	r := newTestRenderer()
	perf := makePerf(5, 1000, 2000)
	h, err := r.Render(perf, ViewBar, AllPlayers(2), false, nil)
	require.NoError(t, err)

	assert.Less(t, h.YRange.Min, models.InitialInvestment)
	assert.Greater(t, h.YRange.Max, 108000.0)

	// 100000..108000 padded by 10% of the span
	got := barRange([]float64{104000, 108000}, 100000)
	assert.InDelta(t, 99200.0, got.Min, 1e-9)
	assert.InDelta(t, 108800.0, got.Max, 1e-9)
}

func TestBarRangeFlat(t *testing.T) {
	got := barRange([]float64{100000, 100000}, 100000)
	assert.Greater(t, got.Span(), 0.0)
}

func TestRaceMarkersFollowCursor(t *testing.T) {
	r := newTestRenderer()
	perf := makePerf(10, 100, -100)
	min, max, ok := Bounds(perf, AllPlayers(2), false)
	r.SetRaceBounds(min, max, ok)

	early := 2
	h, err := r.Render(perf, ViewRace, AllPlayers(2), false, &early)
	require.NoError(t, err)
	require.Len(t, h.Markers, 2)
	assert.Equal(t, 2, h.Cursor)
	earlyX := h.Markers[0].X
	risingY, fallingY := h.Markers[0].Y, h.Markers[1].Y
	assert.Less(t, risingY, fallingY, "the rising player sits higher")

	late := 8
	h, err = r.Render(perf, ViewRace, AllPlayers(2), false, &late)
	require.NoError(t, err)
	assert.Greater(t, h.Markers[0].X, earlyX)
	assert.Less(t, h.Markers[0].Y, risingY)

	fixed, _ := r.RaceBounds()
	assert.Equal(t, Range{Min: min, Max: max}, h.YRange)
	assert.Equal(t, fixed, h.YRange)
}

func TestRaceCursorIsClamped(t *testing.T) {
	r := newTestRenderer()
	perf := makePerf(4, 100)
	beyond := 99
	h, err := r.Render(perf, ViewRace, AllPlayers(1), false, &beyond)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Cursor)
}

func TestRenderWithoutActivePlayersIsBlank(t *testing.T) {
	r := newTestRenderer()
	r.Theme = ThemeLight
	h, err := r.Render(makePerf(5, 100), ViewLine, ActiveSet{}, false, nil)
	require.NoError(t, err)

	img := h.Image().(*image.RGBA)
	want := color.RGBAModel.Convert(colorsFor(ThemeLight).background).(color.RGBA)
	assert.Equal(t, want, img.RGBAAt(10, 10))
	assert.Equal(t, want, img.RGBAAt(300, 150))
	assert.Empty(t, h.Markers)
}

func TestRaceUsesCompetitionIcons(t *testing.T) {
	r := newTestRenderer()
	r.SetCompetition(&models.MCompetition{Players: []models.MPlayer{{Name: "Ann", Color: "#36A2EB"}}})
	perf := makePerf(3, 100)
	cursor := 1
	_, err := r.Render(perf, ViewRace, AllPlayers(1), false, &cursor)
	require.NoError(t, err)
	assert.Contains(t, r.markers, 0)
}

func TestDateTicks(t *testing.T) {
	days := makePerf(20, 0).TradingDays
	ticks := dateTicks(days, 6)
	assert.Equal(t, 0.0, ticks[0].Value)
	assert.Equal(t, float64(19), ticks[len(ticks)-1].Value)
	assert.LessOrEqual(t, len(ticks), 7)
	assert.Equal(t, days[0], indexFormatter(days)(0.0))
	assert.Empty(t, indexFormatter(days)(25.0))
}

func TestStandingsRankByValue(t *testing.T) {
	perf := makePerf(5, 100, 300, -200)
	perf.Players[2].History = perf.Players[2].History[:2]

	final := Standings(perf, false, -1)
	require.Len(t, final, 3)
	assert.Equal(t, []int{1, 0, 2}, []int{final[0].Index, final[1].Index, final[2].Index})
	assert.Equal(t, 1, final[0].Rank)
	assert.Equal(t, 101200.0, final[0].Value)
	assert.Equal(t, 1.2, final[0].ChangePct)

	// index 3 is beyond player 3's history: valued at the initial investment
	at3 := Standings(perf, false, 3)
	assert.Equal(t, 2, at3[2].Index)
	assert.Equal(t, models.InitialInvestment, at3[2].Value)
	assert.Equal(t, 0.0, at3[2].ChangePct)

	withShort := Standings(perf, true, 0)
	assert.Equal(t, models.InitialInvestment+500, withShort[0].Value)
}
