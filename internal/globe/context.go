package globe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/littleexplorer/atlas/internal/cache"
	"github.com/littleexplorer/atlas/internal/queue"
	"github.com/littleexplorer/atlas/pkg/core"
)

// ErrContextClosed is returned by Frame after Close.
var ErrContextClosed = errors.New("render context closed")

// Presenter receives what the globe draws. Both calls happen on the frame goroutine.
type Presenter interface {
	PresentMarkers(snapshot *core.MarkerSnapshot)
	PresentFlightPaths(paths []core.FlightPath)
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Config holds the globe geometry and frame loop settings
type Config struct {
	Radius             float64
	OcclusionThreshold float64
	Raycast            bool
	FlyToStep          float64
	FocusDistance      float64
	ArcSegments        int
	ArcLift            float64
	AutoRotateSpeed    float64
	MinDistance        float64
	MaxDistance        float64
	FrameRate          int
	Viewport           Viewport
}

// DefaultCameraPosition faces East Asia.
var DefaultCameraPosition = mgl64.Vec3{-150, 80, -120}

const (
	DefaultRadius    = 50.0
	DefaultFovY      = 45.0
	DefaultNear      = 0.1
	DefaultFar       = 1000.0
	DefaultFrameRate = 60

	// inboxLimit bounds events queued between two frames.
	inboxLimit = 4096
)

// DefaultConfig returns the settings of the original globe view.
func DefaultConfig() Config {
	return Config{
		Radius:             DefaultRadius,
		OcclusionThreshold: DefaultOcclusionThreshold,
		FlyToStep:          DefaultFlyToStep,
		FocusDistance:      DefaultFocusDistance,
		ArcSegments:        DefaultArcSegments,
		ArcLift:            DefaultArcLift,
		AutoRotateSpeed:    DefaultAutoRotateSpeed,
		MinDistance:        DefaultMinDistance,
		MaxDistance:        DefaultMaxDistance,
		FrameRate:          DefaultFrameRate,
		Viewport:           Viewport{Width: 1280, Height: 720},
	}
}

// Option configures a render context.
type Option func(*Context)

// WithPresenter sets where snapshots and flight paths are sent.
func WithPresenter(p Presenter) Option {
	return func(c *Context) {
		c.presenter = p
	}
}

// WithDisposer sets who releases arcs when they are replaced or torn down.
func WithDisposer(d Disposer) Option {
	return func(c *Context) {
		c.disposer = d
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Context) {
		c.logger = l
	}
}

// scene holds the memories currently on the globe
type scene struct {
	memories []core.Memory
	index    *cache.MemoryCache
}

// renderer turns the scene into markers and arcs
type renderer struct {
	sync      *Synchronizer
	generator ArcGenerator
	arcs      *ArcLayer
}

// FrameStats is a point-in-time view of the frame loop. Safe to read from any goroutine.
type FrameStats struct {
	Frame    uint64
	Rendered uint64
	Skipped  int
	Visible  int
	LiveArcs int
}

// Context owns the scene, camera, renderer and controls of one globe view.
// All mutation happens inside Frame; other goroutines talk to it through posted events.
type Context struct {
	cfg       Config
	logger    Logger
	presenter Presenter
	disposer  Disposer

	scene    *scene
	camera   *Camera
	renderer *renderer
	controls *OrbitControls
	flyTo    *FlyTo

	inbox   *queue.Queue[Event]
	metrics *instruments

	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	rendered atomic.Uint64
	visible  atomic.Int64
	lastSeq  atomic.Uint64
}

// NewContext creates scene, camera, renderer and controls, in that order.
func NewContext(cfg Config, opts ...Option) (*Context, error) {
	c := &Context{
		cfg:    cfg,
		logger: nopLogger{},
		inbox:  queue.New[Event](inboxLimit),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.scene = &scene{index: cache.NewMemoryCache()}

	c.camera = NewCamera(DefaultCameraPosition, DefaultFovY, DefaultNear, DefaultFar, cfg.Viewport)

	c.renderer = &renderer{
		sync: NewSynchronizer(VisibilityTest{
			Radius:     cfg.Radius,
			Threshold:  cfg.OcclusionThreshold,
			Raycast:    cfg.Raycast,
			RayEpsilon: DefaultRayEpsilon,
		}),
		generator: ArcGenerator{
			Radius:   cfg.Radius,
			Segments: cfg.ArcSegments,
			Lift:     cfg.ArcLift,
		},
		arcs: NewArcLayer(c.disposer),
	}

	c.controls = NewOrbitControls(cfg.AutoRotateSpeed, cfg.MinDistance, cfg.MaxDistance)
	c.flyTo = NewFlyTo(c.controls, cfg.FlyToStep, cfg.FocusDistance)

	ins, err := newInstruments(c.renderer.arcs.Live)
	if err != nil {
		return nil, err
	}
	c.metrics = ins

	return c, nil
}

// Post queues an event for the next frame. Events posted after Close are dropped.
func (c *Context) Post(ev Event) {
	if c.closed.Load() {
		return
	}
	if c.inbox.Push(ev) == 0 {
		c.logger.Error("event inbox full, dropping event", "kind", ev.Kind, "dropped", c.inbox.Dropped())
	}
}

// SetMemories replaces the memories shown on the globe. The slice is copied.
func (c *Context) SetMemories(memories []core.Memory) {
	cp := make([]core.Memory, len(memories))
	copy(cp, memories)
	c.Post(Event{Kind: EventSetMemories, Memories: cp})
}

// Select flies the camera to the memory with the given ID.
func (c *Context) Select(id string) {
	c.Post(Event{Kind: EventSelect, ID: id})
}

// Resize changes the viewport.
func (c *Context) Resize(width, height float64) {
	c.Post(Event{Kind: EventResize, Viewport: Viewport{Width: width, Height: height}})
}

// Drag rotates the view, in radians. Ignored while the camera is flying.
func (c *Context) Drag(azimuth, polar float64) {
	c.Post(Event{Kind: EventDrag, Azimuth: azimuth, Polar: polar})
}

// Zoom scales the camera distance. Ignored while the camera is flying.
func (c *Context) Zoom(factor float64) {
	c.Post(Event{Kind: EventZoom, Factor: factor})
}

// Frame runs one iteration of the loop: apply queued events, move the camera,
// project markers and hand the snapshot to the presenter.
func (c *Context) Frame() (*core.MarkerSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrContextClosed
	}

	for _, ev := range c.inbox.Drain() {
		c.apply(ev)
	}

	if c.flyTo.Active() {
		c.controls.Discard()
		if c.flyTo.Advance(c.camera) {
			c.logger.Debug("fly-to landed", "position", c.camera.Position)
		}
	} else {
		c.controls.Update(c.camera)
	}

	snapshot, err := c.renderer.sync.Update(c.camera, c.scene.memories)
	if err != nil {
		c.metrics.skipped.Add(context.Background(), 1)
		return nil, err
	}

	visible := 0
	for _, m := range snapshot.Markers {
		if m.Visible {
			visible++
		}
	}
	c.visible.Store(int64(visible))
	c.lastSeq.Store(snapshot.Frame)
	c.rendered.Add(1)
	c.metrics.rendered.Add(context.Background(), 1)

	if c.presenter != nil {
		c.presenter.PresentMarkers(snapshot)
	}
	return snapshot, nil
}

func (c *Context) apply(ev Event) {
	switch ev.Kind {
	case EventSetMemories:
		c.setMemories(ev.Memories)
	case EventSelect:
		c.selectMemory(ev.ID)
	case EventResize:
		c.camera.Viewport = ev.Viewport
	case EventDrag:
		if c.flyTo.Active() {
			c.logger.Debug("drag dropped during fly-to")
			return
		}
		c.controls.Drag(ev.Azimuth, ev.Polar)
	case EventZoom:
		if c.flyTo.Active() {
			c.logger.Debug("zoom dropped during fly-to")
			return
		}
		c.controls.Zoom(ev.Factor)
	default:
		c.logger.Error("unknown render event", "kind", ev.Kind)
	}
}

func (c *Context) setMemories(memories []core.Memory) {
	c.scene.memories = memories
	c.scene.index.Load(memories)

	paths := c.renderer.generator.Generate(memories)
	if err := c.renderer.arcs.Replace(paths); err != nil {
		c.logger.Error("failed to install flight paths", "error", err)
		return
	}
	c.logger.Debug("flight paths regenerated", "memories", len(memories), "arcs", len(paths))

	if c.presenter != nil {
		c.presenter.PresentFlightPaths(paths)
	}
}

func (c *Context) selectMemory(id string) {
	mem, ok := c.scene.index.Get(id)
	if !ok {
		c.logger.Debug("selected memory not on globe", "id", id)
		return
	}
	if err := c.flyTo.Start(c.camera.Position, mem.Coordinates); err != nil {
		c.logger.Error("cannot fly to memory", "id", id, "error", err)
		return
	}
	c.logger.Debug("fly-to started", "id", id, "location", mem.LocationName)
}

// Run drives Frame at the configured frame rate until ctx is done, then tears the context down.
func (c *Context) Run(ctx context.Context) error {
	rate := c.cfg.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Frame(); err != nil {
				if errors.Is(err, ErrContextClosed) {
					return nil
				}
				if errors.Is(err, ErrUninitializedRenderContext) {
					c.logger.Debug("frame skipped", "error", err)
					continue
				}
				return fmt.Errorf("frame failed: %w", err)
			}
		}
	}
}

// Close tears down controls, renderer, camera and scene, in that order.
// Any flight is abandoned and every arc is disposed. Safe to call more than once.
func (c *Context) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		defer c.mu.Unlock()

		c.flyTo.Cancel()
		c.controls.AutoRotate = false
		c.controls.Discard()

		c.renderer.arcs.Close()
		err = c.metrics.unregister()

		c.camera.Viewport = Viewport{}
		c.scene.memories = nil
		c.scene.index.Reset()
		c.inbox.Clear()

		c.logger.Info("render context closed",
			"frames", c.rendered.Load(),
			"arcsDisposed", c.renderer.arcs.Disposed())
	})
	return err
}

// Stats returns frame loop counters.
func (c *Context) Stats() FrameStats {
	return FrameStats{
		Frame:    c.lastSeq.Load(),
		Rendered: c.rendered.Load(),
		Skipped:  c.renderer.sync.Skipped(),
		Visible:  int(c.visible.Load()),
		LiveArcs: c.renderer.arcs.Live(),
	}
}

// Latest returns the most recent marker snapshot.
func (c *Context) Latest() *core.MarkerSnapshot {
	return c.renderer.sync.Latest()
}

// CameraState returns a copy of the camera.
func (c *Context) CameraState() Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.camera
}

// Flying reports whether a fly-to animation is running.
func (c *Context) Flying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flyTo.Active()
}

// AutoRotating reports whether the controls are spinning the globe.
func (c *Context) AutoRotating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controls.AutoRotate
}
