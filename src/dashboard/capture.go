package dashboard

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"cheese-stick/src/imaging"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
	"cheese-stick/src/timeline"
)

// Errors returned by the capture driver and the controller.
var (
	ErrCaptureInProgress = errors.New("a GIF capture is already in progress")
	ErrNoPerformance     = errors.New("no performance data loaded")
)

// Reasons a capture ended early.
const (
	ReasonCancelled = "cancelled"
	ReasonTimeout   = "timeout"
	ReasonFailed    = "encode failed"
)

// FrameSkip is the cursor step that keeps a capture within maxFrames.
func FrameSkip(totalDays, maxFrames int) int {
	if maxFrames <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(float64(totalDays)/float64(maxFrames))))
}

// -----------------------------------------------------------------------------

type captureSession struct {
	total     int
	skip      int
	cursor    int
	theme     Theme
	frames    []image.Image
	visited   []int
	cancelled bool
	step      *timeline.Handle
	timeout   *timeline.Handle
	stop      context.CancelFunc
	ctx       context.Context
}

// CaptureDriver samples the race into GIF frames, one timeline unit per
// frame, and encodes them off the loop. All methods except Wait must be
// called from the loop.
type CaptureDriver struct {
	loop      *timeline.Loop
	Encoder   *GifEncoder
	Width     int
	Height    int
	MaxFrames int
	FrameGap  time.Duration
	Timeout   time.Duration
	Logger    *logger.Logger

	// Frame renders the race at cursor.
	Frame func(cursor int) (image.Image, error)
	// Label is the date drawn on the frame at cursor.
	Label func(cursor int) string
	// OnProgress reports recording and encoding progress.
	OnProgress func(status models.MCaptureStatus)
	// OnDone receives the encoded GIF.
	OnDone func(data []byte)
	// OnEnd runs once per session. reason is empty on success.
	OnEnd func(reason string, err error)

	session *captureSession
	wg      sync.WaitGroup
}

// NewCaptureDriver builds a driver from the dashboard settings.
func NewCaptureDriver(loop *timeline.Loop, cfg models.MDashboardConfig, log *logger.Logger) *CaptureDriver {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &CaptureDriver{
		loop:      loop,
		Encoder:   NewGifEncoder(cfg.GifWorkers, time.Duration(cfg.GifFrameSeconds*float64(time.Second))),
		Width:     cfg.GifWidth,
		Height:    cfg.GifHeight,
		MaxFrames: cfg.GifMaxFrames,
		FrameGap:  50 * time.Millisecond,
		Timeout:   time.Duration(cfg.GifTimeoutSec) * time.Second,
		Logger:    log,
	}
}

// Active reports whether a session is recording or encoding.
func (d *CaptureDriver) Active() bool { return d.session != nil }

// Wait blocks until background encoders have returned.
func (d *CaptureDriver) Wait() { d.wg.Wait() }

// -----------------------------------------------------------------------------

// Start records totalDays of race, beginning with the frame at cursor 0.
func (d *CaptureDriver) Start(totalDays int, theme Theme) error {
	if d.session != nil {
		return ErrCaptureInProgress
	}
	if totalDays <= 0 {
		return ErrNoPerformance
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &captureSession{
		total: totalDays,
		skip:  FrameSkip(totalDays, d.MaxFrames),
		theme: theme,
		ctx:   ctx,
		stop:  stop,
	}
	d.session = s
	s.timeout = d.loop.After(d.Timeout, func() {
		d.Logger.Warning("GIF capture timed out after %s", d.Timeout)
		d.end(s, ReasonTimeout, nil)
	})

	d.Logger.Info("GIF capture started: %d days, frame skip %d", totalDays, s.skip)
	d.progress(models.MCaptureStatus{Active: true, Message: "Recording: 0%"})
	d.record(s)
	return nil
}

// Cancel stops the current session. It reports false when nothing was
// running, so cancelling twice is harmless.
func (d *CaptureDriver) Cancel(reason string) bool {
	if d.session == nil {
		return false
	}
	d.end(d.session, reason, nil)
	return true
}

// -----------------------------------------------------------------------------

func (d *CaptureDriver) record(s *captureSession) {
	if s.cancelled || d.session != s {
		return
	}

	if err := d.capture(s); err != nil {
		d.end(s, ReasonFailed, err)
		return
	}
	pct := int(math.Round(float64(s.cursor) / float64(s.total) * 100))
	d.progress(models.MCaptureStatus{Active: true, Progress: pct, Message: fmt.Sprintf("Recording: %d%%", pct)})

	next := s.cursor + s.skip
	if next >= s.total {
		if s.cursor != s.total-1 {
			s.cursor = s.total - 1
			if err := d.capture(s); err != nil {
				d.end(s, ReasonFailed, err)
				return
			}
		}
		d.encode(s)
		return
	}
	s.cursor = next
	s.step = d.loop.After(d.FrameGap, func() { d.record(s) })
}

// capture renders the cursor and appends the flattened, labelled snapshot.
func (d *CaptureDriver) capture(s *captureSession) error {
	img, err := d.Frame(s.cursor)
	if err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("no chart rendered at index %d", s.cursor)
	}
	tc := colorsFor(s.theme)
	frame := imaging.Fit(img, d.Width, d.Height, tc.background)
	if d.Label != nil {
		imaging.OverlayText(frame, d.Label(s.cursor), 10, 25, tc.dateText, tc.dateBox)
	}
	s.frames = append(s.frames, frame)
	s.visited = append(s.visited, s.cursor)
	return nil
}

func (d *CaptureDriver) encode(s *captureSession) {
	d.progress(models.MCaptureStatus{Active: true, Progress: 100, Message: "Creating GIF..."})
	frames := s.frames
	s.frames = nil

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		data, err := d.Encoder.Encode(s.ctx, frames)
		d.loop.Post(func() { d.complete(s, data, err) })
	}()
}

// complete runs on the loop when the encoder returns.
func (d *CaptureDriver) complete(s *captureSession, data []byte, err error) {
	if s.cancelled || d.session != s {
		d.Logger.Debug("Discarding GIF completion for a cancelled capture")
		return
	}
	if err != nil {
		d.Logger.Error("GIF encoding failed: %v", err)
		d.end(s, ReasonFailed, err)
		return
	}
	d.Logger.Info("GIF capture finished: %d frames, %d bytes", len(s.visited), len(data))
	if d.OnDone != nil {
		d.OnDone(data)
	}
	d.end(s, "", nil)
}

// end tears a session down exactly once.
func (d *CaptureDriver) end(s *captureSession, reason string, err error) {
	if s.cancelled || d.session != s {
		return
	}
	s.cancelled = true
	s.step.Cancel()
	s.timeout.Cancel()
	s.stop()
	s.frames = nil
	d.session = nil

	if reason != "" {
		d.Logger.Info("GIF capture ended: %s", reason)
	}
	if d.OnEnd != nil {
		d.OnEnd(reason, err)
	}
}

func (d *CaptureDriver) progress(status models.MCaptureStatus) {
	if d.OnProgress != nil {
		d.OnProgress(status)
	}
}
