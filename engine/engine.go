package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/systems"
	"golang.org/x/sync/errgroup"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// How often the frame statistics are logged while running.
const STATS_INTERVAL = 5 * time.Second

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *core.EngineConfig
	frameLimit    uint64
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	frames        atomic.Uint64

	isSuspended atomic.Bool
	stop        chan struct{}
	stopOnce    sync.Once
}

/**
 * @brief Creates the engine for a game. A nil backend builds the one named by
 * the renderer.backend configuration key.
 */
func New(g *Game, backend renderer.RendererBackend) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		err := fmt.Errorf("func New - game and its application config are required: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	cfg, err := g.ApplicationConfig.Load()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	level, err := core.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(level)

	if backend == nil {
		rt, err := renderer.ParseRendererType(cfg.Renderer.Backend)
		if err != nil {
			core.LogError(err.Error())
			return nil, err
		}
		if backend, err = renderer.NewBackend(rt); err != nil {
			return nil, err
		}
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	sm, err := systems.NewSystemManager(cfg, backend)
	if err != nil {
		core.LogError(err.Error())
		_ = am.Shutdown()
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		config:        cfg,
		frameLimit:    g.ApplicationConfig.FrameLimit,
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
		assetManager:  am,
		systemManager: sm,
		stop:          make(chan struct{}),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("func Initialize - engine already initialized: %w", core.ErrInvalidConfig)
	}
	e.currentStage = EngineStageInitializing

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	// initialize subsystems
	if dir := e.config.AssetsDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if err := e.assetManager.Initialize(dir); err != nil {
				return err
			}
			e.assetManager.SetTextureResolver(e.systemManager.RendererSystem.Textures().Get)
		} else {
			core.LogWarn("assets directory '%s' not found, hot reload disabled", dir)
		}
	}

	if err := e.systemManager.Initialize(); err != nil {
		return err
	}

	e.gameInstance.SystemManager = e.systemManager
	e.gameInstance.AssetManager = e.assetManager
	if e.gameInstance.Scene == nil {
		e.gameInstance.Scene = scene.NewGraph()
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.config.Width, e.config.Height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

/**
 * @brief Runs the frame loop until ctx is done, Stop is called, the frame
 * limit is reached or a frame fails. Frames run one after the other on the
 * calling goroutine's behalf; the statistics reporter runs beside them.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("func Run - engine is not initialized: %w", core.ErrNotInitialized)
	}
	e.currentStage = EngineStageRunning
	defer func() {
		e.currentStage = EngineStageInitialized
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// the reporter stops with the loop
		defer cancel()
		return e.loop(ctx)
	})
	g.Go(func() error {
		e.report(ctx)
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if e.config.TargetFPS > 0 {
		targetFrameSeconds = 1.0 / float64(e.config.TargetFPS)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		default:
		}

		frameStart := time.Now()
		if err := e.frame(); err != nil {
			return err
		}
		if e.frameLimit > 0 && e.frames.Load() >= e.frameLimit {
			core.LogInfo("frame limit of %d reached", e.frameLimit)
			return nil
		}

		// Figure out how long the frame took and give the rest of the budget back.
		elapsed := time.Since(frameStart).Seconds()
		e.metrics.Update(elapsed)
		if remaining := targetFrameSeconds - elapsed; remaining > 0 {
			timer := time.NewTimer(time.Duration(remaining * float64(time.Second)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-e.stop:
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

func (e *Engine) frame() error {
	// Update clock and get delta time.
	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime
	e.lastTime = currentTime

	// hand material reloads to the caches before anything is drawn
	if n := e.assetManager.ApplyPending(); n > 0 {
		core.LogDebug("%d materials reloaded", n)
	}

	if e.isSuspended.Load() {
		return nil
	}

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			return err
		}
	}
	// Call the game's render routine.
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(delta); err != nil {
			core.LogError("Game render failed, shutting down: %s", err)
			return err
		}
	}

	if err := e.systemManager.DrawFrame(e.gameInstance.Scene, e.gameInstance.Camera); err != nil {
		core.LogError("Frame submission failed, shutting down: %s", err)
		return err
	}
	e.frames.Add(1)
	return nil
}

func (e *Engine) report(ctx context.Context) {
	ticker := time.NewTicker(STATS_INTERVAL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fps, ms := e.metrics.Frame()
			core.LogInfo("%.1f fps, %.2f ms/frame, %d frames", fps, ms, e.frames.Load())
		}
	}
}

/** @brief Stops scheduling frames. The frame in flight completes. */
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
	})
}

/** @brief The number of frames submitted so far. */
func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Shutdown() error {
	e.Stop()
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	core.EventUnregister(core.EVENT_CODE_RESIZED, e)
	errs = append(errs, e.assetManager.Shutdown())
	errs = append(errs, e.systemManager.Shutdown())
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.config.Width, e.config.Height
}

func (e *Engine) onEvent(sender, listener interface{}, context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT recieved, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onResized(sender, listener interface{}, context core.EventContext) bool {
	if context.Type != core.EVENT_CODE_RESIZED {
		return false
	}
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := re.Width, re.Height

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended.Store(true)
		return false
	}
	if e.isSuspended.Swap(false) {
		core.LogInfo("Window restored, resuming application.")
	}
	if width != e.config.Width || height != e.config.Height {
		core.LogDebug("Window resize: %d, %d", width, height)
		e.config.Width = width
		e.config.Height = height
		if e.gameInstance.FnOnResize != nil {
			if err := e.gameInstance.FnOnResize(width, height); err != nil {
				core.LogError(err.Error())
			}
		}
		if err := e.systemManager.OnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	// the renderer listens too
	return false
}
