package testbed

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

// Frames between two render statistics lines.
const INFO_EVERY_FRAMES = 300

type TestGame struct {
	*engine.Game
}

type gameState struct {
	WorldCamera *components.Camera

	width  uint32
	height uint32

	spinner    scene.NodeHandle
	orbit      scene.NodeHandle
	pointLight scene.NodeHandle

	geometries []*metadata.Geometry
	materials  []*metadata.Material

	elapsed float64
	frames  uint64
}

func NewTestGame(configPath string, frameLimit uint64, logLevel core.LogLevel) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				ConfigPath: configPath,
				FrameLimit: frameLimit,
				LogLevel:   logLevel,
			},
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil || g.Scene == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}

	state := g.State.(*gameState)

	state.WorldCamera = g.SystemManager.CameraSystem.GetDefault()
	state.WorldCamera.SetPosition(math.NewVec3(6, 5, 12))
	state.WorldCamera.LookAt(math.NewVec3Zero(), math.NewVec3Up())

	floorMaterial := g.material("floor", metadata.MATERIAL_TYPE_STANDARD, math.NewVec3(0.6, 0.6, 0.6))
	crateMaterial := g.material("crate", metadata.MATERIAL_TYPE_PHONG, math.NewVec3(0.8, 0.4, 0.2))
	glassMaterial := g.material("glass", metadata.MATERIAL_TYPE_PHYSICAL, math.NewVec3(0.7, 0.9, 1.0))

	floor, err := g.addDrawable("floor", scene.InvalidNode, newPlaneGeometry("floor", 40, 40, 8), floorMaterial)
	if err != nil {
		return err
	}
	floor.Drawable.ReceiveShadow = true

	// Three cubes, each parented to the previous one, so rotating the first
	// swings the others around it.
	parent := scene.InvalidNode
	offsets := []math.Vec3{math.NewVec3(0, 1.5, 0), math.NewVec3(4, 0, 0), math.NewVec3(2.5, 0, 0)}
	sizes := []float32{3, 1.5, 0.75}
	for i := range offsets {
		n, err := g.addDrawable(fmt.Sprintf("cube_%d", i), parent, newBoxGeometry(fmt.Sprintf("cube_%d", i), sizes[i], sizes[i], sizes[i], 1, 1), crateMaterial)
		if err != nil {
			return err
		}
		n.SetPosition(offsets[i])
		n.Drawable.CastShadow = true
		n.Drawable.ReceiveShadow = true
		if i == 0 {
			state.spinner = n.Handle()
		}
		parent = n.Handle()
	}

	glass, err := g.addDrawable("glass", scene.InvalidNode, newBoxGeometry("glass", 2, 2, 2, 1, 1), glassMaterial)
	if err != nil {
		return err
	}
	glass.SetPosition(math.NewVec3(-4, 1, 2))

	if err := g.addLights(); err != nil {
		return err
	}

	g.Scene.UpdateWorldMatrices()
	core.LogInfo("testbed scene ready with %d nodes", g.Scene.NodeCount())
	return nil
}

// material loads name from the assets directory, falling back to a built-in
// definition when the directory does not carry it.
func (g *TestGame) material(name string, fallback metadata.MaterialType, color math.Vec3) *metadata.Material {
	state := g.State.(*gameState)
	var m *metadata.Material
	if _, ok := g.AssetManager.Lookup(name, metadata.ResourceTypeMaterial); ok {
		loaded, err := g.AssetManager.LoadMaterial(name)
		if err != nil {
			core.LogWarn("material '%s' failed to load, using the built-in one", name)
		}
		m = loaded
	}
	if m == nil {
		m = metadata.NewMaterial(name, fallback)
		m.Color = color
		if fallback == metadata.MATERIAL_TYPE_PHYSICAL {
			m.Transmission = 0.6
			m.Roughness = 0.1
		}
	}
	state.materials = append(state.materials, m)
	return m
}

func (g *TestGame) addDrawable(name string, parent scene.NodeHandle, geometry *metadata.Geometry, material *metadata.Material) (*scene.Node, error) {
	state := g.State.(*gameState)
	state.geometries = append(state.geometries, geometry)
	h, err := g.Scene.CreateDrawable(name, parent, scene.NewDrawable(geometry, material))
	if err != nil {
		return nil, err
	}
	return g.Scene.Node(h)
}

func (g *TestGame) addLights() error {
	state := g.State.(*gameState)

	ambient, err := g.Scene.CreateNode("ambient", scene.InvalidNode)
	if err != nil {
		return err
	}
	n, _ := g.Scene.Node(ambient)
	n.Light = metadata.NewAmbientLight(math.NewVec3(1, 1, 1), 0.2)

	sun, err := g.Scene.CreateNode("sun", scene.InvalidNode)
	if err != nil {
		return err
	}
	n, _ = g.Scene.Node(sun)
	n.SetPosition(math.NewVec3(10, 20, 10))
	n.Light = metadata.NewDirectionalLight(math.NewVec3(1, 0.95, 0.9), 1.5)
	n.Light.CastShadow = true
	n.Light.Shadow.MapWidth = 1024
	n.Light.Shadow.MapHeight = 1024
	n.Light.Shadow.CameraSize = 15

	// The point light circles the scene on an empty pivot node.
	state.orbit, err = g.Scene.CreateNode("orbit", scene.InvalidNode)
	if err != nil {
		return err
	}
	state.pointLight, err = g.Scene.CreateNode("lamp", state.orbit)
	if err != nil {
		return err
	}
	n, _ = g.Scene.Node(state.pointLight)
	n.SetPosition(math.NewVec3(6, 3, 0))
	n.Light = metadata.NewPointLight(math.NewVec3(1, 0.6, 0.3), 2, 25)
	n.Light.CastShadow = true
	n.Light.Shadow.MapWidth = 256
	n.Light.Shadow.MapHeight = 256
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime
	state.frames++

	spinner, err := g.Scene.Node(state.spinner)
	if err != nil {
		return err
	}
	spinner.Rotate(math.NewQuatFromAxisAngle(math.NewVec3Up(), float32(deltaTime)*0.5, false))

	orbit, err := g.Scene.Node(state.orbit)
	if err != nil {
		return err
	}
	orbit.Rotate(math.NewQuatFromAxisAngle(math.NewVec3Up(), -float32(deltaTime), false))

	if state.frames%INFO_EVERY_FRAMES == 0 {
		info := g.SystemManager.RendererSystem.Info()
		core.LogInfo("frame %d: %d calls, %d triangles, %d visible, %d culled, %d shadow maps, %d programs",
			info.Frame, info.Calls, info.Triangles, info.Visible, info.Culled, info.ShadowMaps, info.Programs)
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)

	state.width = width
	state.height = height

	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)

	for _, geometry := range state.geometries {
		geometry.Dispose()
	}
	for _, material := range state.materials {
		material.Dispose()
	}
	state.geometries = nil
	state.materials = nil
	return nil
}
