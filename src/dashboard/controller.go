package dashboard

import (
	"context"
	"image"

	"cheese-stick/src/helpers"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
	"cheese-stick/src/timeline"
)

// Client command names accepted by HandleCommand.
const (
	CmdPlay         = "play"
	CmdPause        = "pause"
	CmdReset        = "reset"
	CmdSpeed        = "speed"
	CmdView         = "view"
	CmdTogglePlayer = "toggle_player"
	CmdIncludeShort = "include_short"
	CmdTheme        = "theme"
	CmdExportGIF    = "export_gif"
	CmdCancelGIF    = "cancel_gif"
)

// -----------------------------------------------------------------------------

// Controller owns the dashboard state and runs every change on one timeline
// loop. Exported methods are safe for concurrent use.
type Controller struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Exchanger interfaces.IDataExchanger
	Exports   interfaces.IExportStore

	// OnCaptureFinished runs on the loop when a capture ends. data is nil
	// unless the capture succeeded.
	OnCaptureFinished func(data []byte, reason string, err error)

	loop     *timeline.Loop
	renderer *Renderer
	race     *Race
	capture  *CaptureDriver

	perf          *models.MPerformance
	comp          *models.MCompetition
	view          View
	theme         Theme
	active        ActiveSet
	includeShort  bool
	captureStatus models.MCaptureStatus
	captured      []byte
	exportURL     string
	state         *models.MDashboardState
	pending       *pendingData
}

// pendingData is a refresh held back while a capture runs.
type pendingData struct {
	perf *models.MPerformance
	comp *models.MCompetition
}

// NewController wires a renderer, race and capture driver onto loop.
func NewController(cfg *models.MConfig, loop *timeline.Loop, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.NewLogger(cfg, "Dashboard")
	}
	c := &Controller{
		Config:   cfg,
		Logger:   log,
		loop:     loop,
		renderer: NewRenderer(cfg.Dashboard.ChartWidth, cfg.Dashboard.ChartHeight, log),
		race:     NewRace(loop, cfg.Dashboard.DefaultSpeed),
		capture:  NewCaptureDriver(loop, cfg.Dashboard, log),
		view:     ViewLine,
		theme:    ThemeDark,
		active:   ActiveSet{},
	}

	c.race.OnBounds = c.updateRaceBounds
	c.race.OnFrame = func(int) { c.render(models.MsgFrame) }
	c.race.OnStop = func() { c.publish(models.MsgFrame) }

	c.capture.Frame = c.captureFrame
	c.capture.Label = c.dateAt
	c.capture.OnProgress = func(status models.MCaptureStatus) {
		c.captureStatus = status
		c.publish(models.MsgCapture)
	}
	c.capture.OnDone = c.captureDone
	c.capture.OnEnd = c.captureEnded
	return c
}

// -----------------------------------------------------------------------------

// run executes fn on the loop and returns its error.
func (c *Controller) run(ctx context.Context, fn func() error) error {
	var err error
	if doErr := c.loop.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

// Close cancels any capture, stops playback and waits for encoders.
func (c *Controller) Close() {
	_ = c.loop.Do(context.Background(), func() {
		c.capture.Cancel(ReasonCancelled)
		c.race.Stop()
		c.renderer.Release()
	})
	c.capture.Wait()
}

// -----------------------------------------------------------------------------

// SetPerformance replaces the data behind the dashboard. Playback keeps its
// state and the cursor is clamped to the new range. Data arriving during a
// capture is held until the capture ends. The active set is kept when the
// player count is unchanged.
func (c *Controller) SetPerformance(ctx context.Context, perf *models.MPerformance, comp *models.MCompetition) error {
	return c.run(ctx, func() error {
		if c.capture.Active() {
			c.pending = &pendingData{perf: perf, comp: comp}
			return nil
		}
		c.applyPerformance(perf, comp)
		return nil
	})
}

func (c *Controller) applyPerformance(perf *models.MPerformance, comp *models.MCompetition) {
	if c.perf == nil || perf == nil || len(c.perf.Players) != len(perf.Players) {
		n := 0
		if perf != nil {
			n = len(perf.Players)
		}
		c.active = AllPlayers(n)
	}
	c.perf = perf
	c.comp = comp
	c.renderer.SetCompetition(comp)
	if perf != nil {
		c.renderer.InitialInvestment = perf.InitialInvestment
		c.race.SetLength(len(perf.TradingDays))
	} else {
		c.race.Stop()
	}
	if c.view == ViewRace {
		c.updateRaceBounds()
	}
	c.render(models.MsgRefreshed)
}

// Refresh values the competition again and loads the result. A failed
// valuation leaves the dashboard as it was.
func (c *Controller) Refresh(ctx context.Context, source interfaces.IPerformanceSource) error {
	perf, comp, err := source.Performance(ctx)
	if err != nil {
		c.Logger.Warning("Performance refresh failed: %v", err)
		return err
	}
	return c.SetPerformance(ctx, perf, comp)
}

// SetView switches between bar, line and race. Entering race resets it;
// leaving race stops it.
func (c *Controller) SetView(ctx context.Context, view string) error {
	v, ok := ParseView(view)
	if !ok {
		return helpers.NewValidationError("unknown view %q", view)
	}
	return c.run(ctx, func() error {
		if c.capture.Active() {
			return ErrCaptureInProgress
		}
		if v == ViewRace {
			c.view = ViewRace
			c.race.Reset()
			return nil
		}
		c.race.Stop()
		c.view = v
		c.render(models.MsgFrame)
		return nil
	})
}

// TogglePlayer adds or removes a player from the active set.
func (c *Controller) TogglePlayer(ctx context.Context, index int) error {
	return c.run(ctx, func() error {
		if c.perf == nil {
			return ErrNoPerformance
		}
		if index < 0 || index >= len(c.perf.Players) {
			return helpers.NewValidationError("invalid player index %d", index)
		}
		c.active.Toggle(index)
		c.refresh()
		return nil
	})
}

// SetIncludeShort switches the plotted value between longs only and longs
// plus the short leg.
func (c *Controller) SetIncludeShort(ctx context.Context, include bool) error {
	return c.run(ctx, func() error {
		c.includeShort = include
		c.refresh()
		return nil
	})
}

// SetTheme selects dark or light colours.
func (c *Controller) SetTheme(ctx context.Context, theme string) error {
	t, ok := ParseTheme(theme)
	if !ok {
		return helpers.NewValidationError("unknown theme %q", theme)
	}
	return c.run(ctx, func() error {
		c.theme = t
		c.renderer.Theme = t
		if !c.capture.Active() {
			c.render(models.MsgFrame)
		}
		return nil
	})
}

// refresh recomputes race bounds and re-renders after a filter change. A
// capture keeps the bounds it started with.
func (c *Controller) refresh() {
	if c.capture.Active() {
		c.publish(models.MsgFrame)
		return
	}
	if c.view == ViewRace {
		c.updateRaceBounds()
	}
	c.render(models.MsgFrame)
}

// -----------------------------------------------------------------------------

// Play starts the race, switching to the race view if needed.
func (c *Controller) Play(ctx context.Context) error {
	return c.run(ctx, func() error {
		if c.capture.Active() {
			return ErrCaptureInProgress
		}
		if c.perf == nil {
			return ErrNoPerformance
		}
		if c.view != ViewRace {
			c.view = ViewRace
			c.race.Reset()
		}
		c.race.Play()
		c.publish(models.MsgFrame)
		return nil
	})
}

// Pause holds the race at its cursor.
func (c *Controller) Pause(ctx context.Context) error {
	return c.run(ctx, func() error {
		c.race.Pause()
		c.publish(models.MsgFrame)
		return nil
	})
}

// Reset rewinds the race to the first trading day.
func (c *Controller) Reset(ctx context.Context) error {
	return c.run(ctx, func() error {
		if c.capture.Active() {
			return ErrCaptureInProgress
		}
		if c.perf == nil {
			return ErrNoPerformance
		}
		c.view = ViewRace
		c.race.Reset()
		return nil
	})
}

// SetSpeed sets the race multiplier, 1 to 10.
func (c *Controller) SetSpeed(ctx context.Context, speed int) error {
	return c.run(ctx, func() error {
		if err := c.race.SetSpeed(speed); err != nil {
			return helpers.NewValidationError("%v", err)
		}
		c.publish(models.MsgFrame)
		return nil
	})
}

// -----------------------------------------------------------------------------

// StartCapture records the race into a GIF. A playing race is paused first.
func (c *Controller) StartCapture(ctx context.Context) error {
	return c.run(ctx, c.startCapture)
}

func (c *Controller) startCapture() error {
	if c.capture.Active() {
		return ErrCaptureInProgress
	}
	if c.perf == nil || len(c.perf.TradingDays) == 0 {
		return ErrNoPerformance
	}
	if c.race.State() == RacePlaying {
		c.race.Pause()
	}
	c.view = ViewRace
	c.exportURL = ""
	c.captured = nil
	c.updateRaceBounds()
	return c.capture.Start(len(c.perf.TradingDays), c.theme)
}

// CancelCapture stops a running capture. It reports whether one was running.
func (c *Controller) CancelCapture(ctx context.Context) (bool, error) {
	var cancelled bool
	err := c.run(ctx, func() error {
		cancelled = c.capture.Cancel(ReasonCancelled)
		return nil
	})
	return cancelled, err
}

func (c *Controller) captureFrame(cursor int) (image.Image, error) {
	c.race.Seek(cursor)
	h, err := c.renderer.Render(c.perf, ViewRace, c.active, c.includeShort, &cursor)
	if err != nil {
		return nil, err
	}
	return h.Image(), nil
}

func (c *Controller) captureDone(data []byte) {
	c.captured = data
	if c.Exports != nil {
		c.exportURL = c.Exports.Put(GifFileName, data)
	}
	c.publish(models.MsgGifReady)
}

func (c *Controller) captureEnded(reason string, err error) {
	message := reason
	if reason == "" {
		message = "Done!"
	}
	c.captureStatus = models.MCaptureStatus{Active: false, Message: message}
	c.publish(models.MsgCapture)
	if err != nil {
		st := c.buildState(models.MsgError)
		st.Error = err.Error()
		c.send(st)
	}

	data := c.captured
	c.captured = nil
	if c.OnCaptureFinished != nil {
		c.OnCaptureFinished(data, reason, err)
	}

	if p := c.pending; p != nil {
		c.pending = nil
		c.applyPerformance(p.perf, p.comp)
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns the state last sent to clients.
func (c *Controller) Snapshot(ctx context.Context) (*models.MDashboardState, error) {
	var out models.MDashboardState
	err := c.run(ctx, func() error {
		if c.state == nil {
			c.state = c.buildState(models.MsgInitial)
		}
		out = *c.state
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Type = models.MsgInitial
	return &out, nil
}

// HandleCommand applies a client command.
func (c *Controller) HandleCommand(ctx context.Context, cmd models.MClientCommand) error {
	switch cmd.Command {
	case CmdPlay:
		return c.Play(ctx)
	case CmdPause:
		return c.Pause(ctx)
	case CmdReset:
		return c.Reset(ctx)
	case CmdSpeed:
		return c.SetSpeed(ctx, cmd.Speed)
	case CmdView:
		return c.SetView(ctx, cmd.View)
	case CmdTogglePlayer:
		return c.TogglePlayer(ctx, cmd.Player)
	case CmdIncludeShort:
		return c.SetIncludeShort(ctx, cmd.Enabled)
	case CmdTheme:
		return c.SetTheme(ctx, cmd.Theme)
	case CmdExportGIF:
		return c.StartCapture(ctx)
	case CmdCancelGIF:
		_, err := c.CancelCapture(ctx)
		return err
	default:
		return helpers.NewValidationError("unknown command %q", cmd.Command)
	}
}

// -----------------------------------------------------------------------------

func (c *Controller) updateRaceBounds() {
	c.renderer.SetRaceBounds(Bounds(c.perf, c.active, c.includeShort))
}

// render draws the current view and publishes it.
func (c *Controller) render(msgType string) {
	if c.perf == nil {
		c.publish(msgType)
		return
	}
	var cursor *int
	if c.view == ViewRace {
		at := c.race.Cursor()
		cursor = &at
	}
	if _, err := c.renderer.Render(c.perf, c.view, c.active, c.includeShort, cursor); err != nil {
		st := c.buildState(models.MsgError)
		st.Error = err.Error()
		c.send(st)
		return
	}
	c.publish(msgType)
}

func (c *Controller) dateAt(cursor int) string {
	if c.perf == nil || cursor < 0 || cursor >= len(c.perf.TradingDays) {
		return ""
	}
	return c.perf.TradingDays[cursor]
}

func (c *Controller) buildState(msgType string) *models.MDashboardState {
	st := &models.MDashboardState{
		Type:          msgType,
		View:          string(c.view),
		Theme:         string(c.theme),
		Cursor:        c.race.Cursor(),
		RaceState:     string(c.race.State()),
		Speed:         c.race.Speed(),
		IncludeShort:  c.includeShort,
		ActivePlayers: c.active.Indices(),
		Capture:       c.captureStatus,
		ExportURL:     c.exportURL,
		Timestamp:     c.loop.Clock().Now().Unix(),
	}
	if c.perf != nil {
		index := -1
		if c.view == ViewRace {
			index = c.race.Cursor()
			st.Date = c.dateAt(index)
		} else if n := len(c.perf.TradingDays); n > 0 {
			st.Date = c.perf.TradingDays[n-1]
		}
		st.Standings = Standings(c.perf, c.includeShort, index)
	}
	if h := c.renderer.Current(); h != nil {
		st.ChartPNG = h.PNG()
	}
	return st
}

func (c *Controller) publish(msgType string) {
	c.send(c.buildState(msgType))
}

// send broadcasts st. Error states reach current clients but are never
// kept as the state new clients start from.
func (c *Controller) send(st *models.MDashboardState) {
	if st.Type != models.MsgError {
		c.state = st
		if c.Exchanger != nil {
			c.Exchanger.UpdateLatest(st)
		}
	}
	if c.Exchanger != nil {
		c.Exchanger.Broadcast(st)
	}
}
