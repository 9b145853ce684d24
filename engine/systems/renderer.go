package systems

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/** @brief Scene fog, applied to materials with Fog set. */
type Fog struct {
	Type    FogType
	Color   math.Vec3
	Near    float32
	Far     float32
	Density float32
}

/**
 * @brief One camera rendered into one target. A nil Target renders to the
 * default framebuffer, a zero Viewport covers the whole target.
 */
type View struct {
	Camera   *components.Camera
	Target   *metadata.RenderTarget
	Viewport metadata.Rect
	/** @brief Clears the viewport first. The first view of a frame always clears. */
	Clear bool
}

/** @brief Statistics of the last frame and the size of the caches. */
type RenderInfo struct {
	Frame     uint64
	Calls     int
	Triangles int
	Lines     int
	Points    int
	/** @brief Items dropped because their program failed to build or their data was unusable. */
	SkippedDraws int
	Visible      int
	Culled       int
	ShadowMaps   int

	UniformUploads uint64
	UniformSkips   uint64
	BufferUploads  uint64
	BindingChanges uint64

	Programs   int
	Geometries int
	Textures   int
	Bindings   int
}

type renderPass struct {
	camera     *components.Camera
	view       math.Mat4
	projection math.Mat4
	position   math.Vec3
	target     *metadata.RenderTarget
	features   SceneFeatures
	lights     *LightsState
	/** @brief The light a shadow pass renders for, nil otherwise. */
	light *LightEntry
	/** @brief The opaque backdrop sampled by transmissive materials. */
	transmission *metadata.RenderTarget
	stamp        uint64
}

/**
 * @brief Drives a frame: it validates transforms, builds and sorts the render
 * list, renders shadow maps and the transmission backdrop, then submits every
 * item to the backend through the program, texture, geometry and binding caches.
 */
type RendererSystem struct {
	config  *core.RendererConfig
	backend renderer.RendererBackend

	programs   *ProgramCache
	materials  *MaterialSystem
	geometries *GeometrySystem
	textures   *TextureSystem
	bindings   *BindingStateCache
	lights     *LightsSystem
	shadows    *ShadowSystem
	culling    *CullingSystem
	builder    *RenderListBuilder
	list       *RenderList

	features SceneFeatures

	/** @brief Scene fog, nil disables fog. */
	Fog *Fog
	/** @brief World space planes clipping every material. */
	ClippingPlanes      []math.Plane
	ToneMappingExposure float32
	/** @brief Custom comparators, nil selects the stable defaults. */
	OpaqueSort      RenderItemComparator
	TransparentSort RenderItemComparator

	width       uint32
	height      uint32
	initialized bool
	suspended   bool
	disposed    bool

	clock     *core.Clock
	lastTime  float64
	frame     uint64
	passStamp uint64

	currentProgram metadata.ProgramID
	boundTarget    metadata.RenderTargetID
	targetBound    bool
	targets        map[*metadata.RenderTarget]struct{}

	transmissionTarget *metadata.RenderTarget
	shadowMatrices     [metadata.LIGHT_TYPE_COUNT][]float32
	shadowMaps         [metadata.LIGHT_TYPE_COUNT][]*metadata.Texture
	samplerUnits       []int32
	clipping           []float32

	fullscreenQuad     *metadata.Geometry
	fullscreenDrawable *scene.Drawable
	fullscreenCamera   *components.Camera

	diagnostics  *containers.RingQueue[metadata.Diagnostic]
	onDiagnostic metadata.FnOnDiagnostic

	info RenderInfo
}

/**
 * @brief Creates the renderer system and the caches it owns. The backend is
 * initialized separately by Initialize.
 *
 * @param config The renderer configuration.
 * @param backend The graphics backend to submit to.
 * @return The renderer system, or an error if the configuration is invalid.
 */
func NewRendererSystem(config *core.RendererConfig, backend renderer.RendererBackend) (*RendererSystem, error) {
	if config == nil {
		err := fmt.Errorf("func NewRendererSystem - config cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	if backend == nil {
		err := fmt.Errorf("func NewRendererSystem - backend cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	features, err := featuresFromConfig(config)
	if err != nil {
		err = fmt.Errorf("func NewRendererSystem - %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	r := &RendererSystem{
		config:              config,
		backend:             backend,
		features:            features,
		ToneMappingExposure: 1,
		clock:               core.NewClock(),
		targets:             make(map[*metadata.RenderTarget]struct{}),
	}
	history := config.DiagnosticHistory
	if history <= 0 {
		history = 64
	}
	r.diagnostics = containers.NewRingQueue[metadata.Diagnostic](history)

	if r.programs, err = NewProgramCache(&ProgramCacheConfig{MaxProgramCount: 512}, backend); err != nil {
		return nil, err
	}
	if r.materials, err = NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 4096}, r.programs); err != nil {
		return nil, err
	}
	if r.geometries, err = NewGeometrySystem(&GeometrySystemConfig{MaxGeometryCount: 4096}, backend); err != nil {
		return nil, err
	}
	if r.textures, err = NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 4096, MaxTextureUnits: config.MaxTextureUnits}, backend); err != nil {
		return nil, err
	}
	if r.lights, err = NewLightsSystem(&LightsSystemConfig{MaxLights: config.MaxLights, MaxShadowLights: config.MaxShadowLights}); err != nil {
		return nil, err
	}
	if r.shadows, err = NewShadowSystem(&ShadowSystemConfig{Enabled: features.ShadowMapEnabled, Type: features.ShadowMapType}); err != nil {
		return nil, err
	}
	r.bindings = NewBindingStateCache(backend, r.geometries)
	r.culling = NewCullingSystem()
	r.builder = NewRenderListBuilder(r.culling)
	r.list = NewRenderList()

	r.programs.onDiagnostic = r.raise
	r.geometries.onDiagnostic = r.raise
	r.textures.onDiagnostic = r.raise
	r.lights.onDiagnostic = r.raise
	r.builder.onDiagnostic = r.warning
	r.shadows.builder.onDiagnostic = r.warning
	r.materials.onProgramRetired = r.onProgramRetired

	r.fullscreenQuad = metadata.NewGeometry("fullscreen_quad")
	r.fullscreenQuad.SetAttribute(metadata.ATTRIBUTE_POSITION, metadata.NewBufferAttribute([]float32{
		-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0,
	}, 3))
	r.fullscreenQuad.SetAttribute(metadata.ATTRIBUTE_UV, metadata.NewBufferAttribute([]float32{
		0, 0, 1, 0, 1, 1, 0, 1,
	}, 2))
	r.fullscreenQuad.SetIndex([]uint32{0, 1, 2, 0, 2, 3})
	r.fullscreenDrawable = scene.NewDrawable(r.fullscreenQuad)
	r.fullscreenDrawable.FrustumCulled = false
	r.fullscreenCamera = components.NewOrthographicCamera(-1, 1, 1, -1, 0, 1)
	return r, nil
}

func featuresFromConfig(config *core.RendererConfig) (SceneFeatures, error) {
	shadowType, err := ParseShadowMapType(config.ShadowMapType)
	if err != nil {
		return SceneFeatures{}, err
	}
	toneMapping, err := ParseToneMapping(config.ToneMapping)
	if err != nil {
		return SceneFeatures{}, err
	}
	colorSpace, err := ParseColorSpace(config.OutputColorSpace)
	if err != nil {
		return SceneFeatures{}, err
	}
	precision, err := ParsePrecision(config.Precision)
	if err != nil {
		return SceneFeatures{}, err
	}
	return SceneFeatures{
		ShadowMapEnabled: config.ShadowMapEnabled,
		ShadowMapType:    shadowType,
		ToneMapping:      toneMapping,
		OutputColorSpace: colorSpace,
		Precision:        precision,
	}, nil
}

/**
 * @brief Initializes the backend and starts listening for context, resize and
 * disposal events.
 */
func (r *RendererSystem) Initialize(applicationName string, width, height uint32) error {
	if r.disposed {
		return fmt.Errorf("func Initialize - renderer was disposed: %w", core.ErrDisposed)
	}
	if r.initialized {
		return nil
	}
	if err := r.backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: applicationName,
		Width:           width,
		Height:          height,
	}); err != nil {
		core.LogError("failed to initialize the renderer backend: %s", err)
		return err
	}
	r.width = width
	r.height = height

	core.EventRegister(core.EVENT_CODE_CONTEXT_LOST, r, r.onEvent)
	core.EventRegister(core.EVENT_CODE_CONTEXT_RESTORED, r, r.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, r, r.onEvent)
	core.EventRegister(core.EVENT_CODE_GEOMETRY_DISPOSED, r, r.onEvent)
	core.EventRegister(core.EVENT_CODE_MATERIAL_DISPOSED, r, r.onEvent)
	core.EventRegister(core.EVENT_CODE_TEXTURE_DISPOSED, r, r.onEvent)
	core.EventRegister(core.EVENT_CODE_DRAWABLE_REMOVED, r, r.onEvent)
	core.EventRegister(core.EVENT_CODE_LIGHT_REMOVED, r, r.onEvent)

	r.clock.Start()
	r.initialized = true
	core.LogInfo("Renderer system initialized (%dx%d).", width, height)
	return nil
}

var rendererEvents = []core.SystemEventCode{
	core.EVENT_CODE_CONTEXT_LOST,
	core.EVENT_CODE_CONTEXT_RESTORED,
	core.EVENT_CODE_RESIZED,
	core.EVENT_CODE_GEOMETRY_DISPOSED,
	core.EVENT_CODE_MATERIAL_DISPOSED,
	core.EVENT_CODE_TEXTURE_DISPOSED,
	core.EVENT_CODE_DRAWABLE_REMOVED,
	core.EVENT_CODE_LIGHT_REMOVED,
}

func (r *RendererSystem) onEvent(sender, listener interface{}, ctx core.EventContext) bool {
	switch ctx.Type {
	case core.EVENT_CODE_CONTEXT_LOST:
		if sender == r.backend {
			r.loseContext()
		}
	case core.EVENT_CODE_CONTEXT_RESTORED:
		if sender == r.backend {
			r.suspended = false
			core.LogInfo("Rendering context restored, GPU resources are rebuilt on demand.")
		}
	case core.EVENT_CODE_RESIZED:
		if e, ok := ctx.Data.(*core.ResizeEvent); ok {
			if err := r.OnResize(e.Width, e.Height); err != nil {
				core.LogWarn("resize to %dx%d failed: %s", e.Width, e.Height, err)
			}
		}
	case core.EVENT_CODE_GEOMETRY_DISPOSED:
		if g, ok := ctx.Data.(*metadata.Geometry); ok {
			r.bindings.ReleaseByGeometry(g)
			r.geometries.Release(g)
		}
	case core.EVENT_CODE_MATERIAL_DISPOSED:
		if m, ok := ctx.Data.(*metadata.Material); ok {
			r.materials.Dispose(m)
		}
	case core.EVENT_CODE_TEXTURE_DISPOSED:
		if t, ok := ctx.Data.(*metadata.Texture); ok {
			r.textures.Release(t)
		}
	case core.EVENT_CODE_DRAWABLE_REMOVED:
		if id, ok := ctx.Data.(uint32); ok {
			r.bindings.ReleaseByDrawable(id)
		}
	case core.EVENT_CODE_LIGHT_REMOVED:
		if l, ok := ctx.Data.(*metadata.Light); ok {
			r.releaseLight(l)
		}
	}
	// every renderer gets to see the event
	return false
}

/** @brief Frees the blur programs and shadow maps of a light that left the graph. */
func (r *RendererSystem) releaseLight(light *metadata.Light) {
	for _, m := range r.shadows.ForgetLight(light) {
		r.materials.Dispose(m)
	}
	if light.Shadow == nil {
		return
	}
	r.releaseTarget(light.Shadow.Map)
	r.releaseTarget(light.Shadow.MapPass)
	light.Shadow.Map = nil
	light.Shadow.MapPass = nil
	light.Shadow.Rendered = false
}

func (r *RendererSystem) releaseTarget(target *metadata.RenderTarget) {
	if target == nil {
		return
	}
	if _, ok := r.targets[target]; !ok {
		return
	}
	if target.InternalID != 0 && !r.suspended {
		if r.targetBound && r.boundTarget == target.InternalID {
			r.targetBound = false
		}
		r.backend.RenderTargetDestroy(target.InternalID)
	}
	target.InternalID = 0
	r.textures.UnregisterRenderTarget(target)
	delete(r.targets, target)
}

/**
 * @brief Drops every cached GPU object without backend calls and suspends
 * rendering until the context comes back.
 */
func (r *RendererSystem) loseContext() {
	r.suspended = true
	r.programs.Invalidate()
	r.materials.Reset()
	r.geometries.Reset()
	r.textures.Reset()
	r.bindings.Reset()
	for target := range r.targets {
		target.InternalID = 0
	}
	r.targets = make(map[*metadata.RenderTarget]struct{})
	r.currentProgram = 0
	r.targetBound = false
	r.raise(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_CONTEXT_LOST, core.ErrContextLost,
		"rendering context lost, frames are skipped until it is restored")
}

func (r *RendererSystem) onProgramRetired(h ProgramHandle) {
	r.bindings.ReleaseByProgram(h)
	r.currentProgram = 0
}

/** @brief Renders graph from camera into the default framebuffer. */
func (r *RendererSystem) RenderFrame(graph *scene.Graph, camera *components.Camera) error {
	return r.RenderViews(graph, View{Camera: camera, Clear: true})
}

/**
 * @brief Renders graph once per view inside a single backend frame. World
 * matrices are revalidated once for all views.
 */
func (r *RendererSystem) RenderViews(graph *scene.Graph, views ...View) error {
	if r.disposed {
		return fmt.Errorf("func RenderViews - renderer was disposed: %w", core.ErrDisposed)
	}
	if !r.initialized {
		return fmt.Errorf("func RenderViews - renderer not initialized: %w", core.ErrNotInitialized)
	}
	if graph == nil {
		return fmt.Errorf("func RenderViews - graph cannot be nil: %w", core.ErrInvalidConfig)
	}
	if r.suspended || r.backend.IsContextLost() {
		core.LogDebug("Frame skipped, the rendering context is lost.")
		return nil
	}

	r.frame++
	r.info = RenderInfo{Frame: r.frame}
	uploads := r.geometries.Uploads
	changes := r.bindings.BindingChanges

	r.clock.Update()
	now := r.clock.Elapsed()
	delta := now - r.lastTime
	r.lastTime = now

	if err := r.backend.BeginFrame(delta); err != nil {
		if errors.Is(err, core.ErrContextLost) {
			return nil
		}
		return err
	}

	graph.UpdateWorldMatrices()
	var renderErr error
	for i, view := range views {
		if view.Camera == nil {
			renderErr = fmt.Errorf("view %d has no camera: %w", i, core.ErrInvalidConfig)
			break
		}
		if err := r.renderView(graph, view, i == 0 || view.Clear); err != nil {
			renderErr = err
			break
		}
	}

	if err := r.backend.EndFrame(delta); err != nil && renderErr == nil {
		renderErr = err
	}
	r.info.BufferUploads = r.geometries.Uploads - uploads
	r.info.BindingChanges = r.bindings.BindingChanges - changes
	return renderErr
}

func (r *RendererSystem) renderView(graph *scene.Graph, view View, clear bool) error {
	camera := view.Camera
	if err := r.builder.Build(graph, camera, r.list); err != nil {
		return err
	}
	if r.config.SortObjects {
		SortRenderList(r.list, r.OpaqueSort, r.TransparentSort)
	}
	r.info.Visible += r.list.Visible
	r.info.Culled += r.list.Culled

	lights := r.lights.Setup(r.list.Lights)
	if err := r.shadows.Render(graph, lights, r); err != nil {
		r.raise(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_CONFIGURATION, err, "shadow maps were not rendered")
	}
	r.info.ShadowMaps += r.shadows.MapsRendered
	r.collectShadows(lights)

	features := r.sceneFeatures()
	features.RenderingToTarget = view.Target != nil

	width, height := r.width, r.height
	if view.Target != nil {
		width, height = view.Target.Width, view.Target.Height
	}
	viewport := view.Viewport
	if viewport.Width == 0 || viewport.Height == 0 {
		viewport = metadata.Rect{Width: int32(width), Height: int32(height)}
	}

	pass := r.newPass(camera, view.Target, features, lights)

	if len(r.list.Transmissive) > 0 {
		target, err := r.renderTransmission(pass, viewport)
		if err != nil {
			r.raise(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_CONFIGURATION, err, "transmission backdrop was not rendered")
		}
		pass.transmission = target
	}

	if err := r.bindTarget(view.Target); err != nil {
		return err
	}
	r.backend.SetViewport(viewport)
	if clear {
		r.backend.Clear(metadata.CLEAR_ALL_FLAG, r.config.ClearColor)
	}
	r.drawList(r.list.Opaque, pass)
	r.drawList(r.list.Transmissive, pass)
	r.drawList(r.list.Transparent, pass)
	return nil
}

func (r *RendererSystem) sceneFeatures() SceneFeatures {
	features := r.features
	if r.Fog != nil {
		features.Fog = r.Fog.Type
	}
	features.NumClippingPlanes = uint8(len(r.ClippingPlanes))
	return features
}

func (r *RendererSystem) newPass(camera *components.Camera, target *metadata.RenderTarget, features SceneFeatures, lights *LightsState) *renderPass {
	r.passStamp++
	return &renderPass{
		camera:     camera,
		view:       camera.GetView(),
		projection: camera.GetProjection(),
		position:   camera.GetPosition(),
		target:     target,
		features:   features,
		lights:     lights,
		stamp:      r.passStamp,
	}
}

/**
 * @brief Renders the opaque items into the transmission target, the backdrop
 * transmissive materials sample. The target follows the viewport size scaled by
 * the configured resolution scale.
 */
func (r *RendererSystem) renderTransmission(main *renderPass, viewport metadata.Rect) (*metadata.RenderTarget, error) {
	scale := r.config.TransmissionResolutionScale
	if scale <= 0 {
		scale = 1
	}
	width := uint32(float32(viewport.Width) * scale)
	height := uint32(float32(viewport.Height) * scale)
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("transmission target of %dx%d: %w", width, height, core.ErrInvalidConfig)
	}
	if r.transmissionTarget == nil {
		r.transmissionTarget = metadata.NewRenderTarget("transmission", width, height,
			metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR|metadata.RENDER_TARGET_ATTACHMENT_TYPE_DEPTH)
	} else if r.transmissionTarget.Width != width || r.transmissionTarget.Height != height {
		r.transmissionTarget.SetSize(width, height)
	}

	features := main.features
	features.RenderingToTarget = true
	pass := r.newPass(main.camera, r.transmissionTarget, features, main.lights)
	if err := r.bindTarget(r.transmissionTarget); err != nil {
		return nil, err
	}
	r.backend.SetViewport(metadata.Rect{Width: int32(width), Height: int32(height)})
	r.backend.Clear(metadata.CLEAR_ALL_FLAG, r.config.ClearColor)
	r.drawList(r.list.Opaque, pass)
	return r.transmissionTarget, nil
}

/**
 * @brief Gathers the shadow matrices and maps of the selected shadow lights,
 * grouped by light type in upload order.
 */
func (r *RendererSystem) collectShadows(lights *LightsState) {
	for i := range r.shadowMatrices {
		r.shadowMatrices[i] = r.shadowMatrices[i][:0]
		r.shadowMaps[i] = r.shadowMaps[i][:0]
	}
	if lights == nil {
		return
	}
	for _, entry := range lights.Shadows {
		shadow := entry.Light.Shadow
		t := entry.Light.Type
		r.shadowMatrices[t] = append(r.shadowMatrices[t], shadow.Matrix.Data[:]...)
		var texture *metadata.Texture
		if shadow.Map != nil && shadow.Rendered {
			texture = shadow.Map.Texture
		}
		r.shadowMaps[t] = append(r.shadowMaps[t], texture)
	}
}

/** @brief Binds target creating or recreating its backend object as needed. */
func (r *RendererSystem) bindTarget(target *metadata.RenderTarget) error {
	var id metadata.RenderTargetID
	if target != nil {
		if target.Disposed {
			return fmt.Errorf("render target '%s': %w", target.Name, core.ErrDisposed)
		}
		if target.InternalID != 0 && target.NeedsResize {
			r.backend.RenderTargetDestroy(target.InternalID)
			target.InternalID = 0
			r.targetBound = false
		}
		if target.InternalID == 0 {
			internal, err := r.backend.RenderTargetCreate(target)
			if err != nil {
				return fmt.Errorf("render target '%s': %w", target.Name, err)
			}
			target.InternalID = internal
			r.targets[target] = struct{}{}
			r.textures.RegisterRenderTarget(target)
			r.targetBound = false
		}
		target.NeedsResize = false
		id = target.InternalID
	}
	if !r.targetBound || r.boundTarget != id {
		r.backend.RenderTargetBind(id)
		r.boundTarget = id
		r.targetBound = true
	}
	return nil
}

func (r *RendererSystem) drawList(items []*RenderItem, pass *renderPass) {
	for _, item := range items {
		r.drawItem(item, pass)
	}
}

func (r *RendererSystem) itemFeatures(item *RenderItem, base SceneFeatures) SceneFeatures {
	features := base
	geometry := item.Geometry
	if count := geometry.MorphTargetCount(); count > 0 && len(item.Drawable.MorphInfluences) > 0 {
		features.MorphTargets = true
		features.MorphTargetsCount = uint16(count)
		features.MorphNormals = len(geometry.MorphAttributes[metadata.ATTRIBUTE_NORMAL]) > 0
	}
	if len(item.Drawable.BoneMatrices) > 0 &&
		geometry.HasAttribute(metadata.ATTRIBUTE_SKIN_INDEX) && geometry.HasAttribute(metadata.ATTRIBUTE_SKIN_WEIGHT) {
		features.Skinning = true
		features.BoneCount = uint16(len(item.Drawable.BoneMatrices))
	}
	features.VertexColors = geometry.HasAttribute(metadata.ATTRIBUTE_COLOR)
	features.VertexTangents = geometry.HasAttribute(metadata.ATTRIBUTE_TANGENT) && item.Material.VertexTangents
	return features
}

/**
 * @brief Submits one item: resolves its program, refreshes the per pass,
 * material and object uniforms through the uniform cache, binds textures and
 * attributes and issues the draw.
 */
func (r *RendererSystem) drawItem(item *RenderItem, pass *renderPass) {
	geometry := item.Geometry
	material := item.Material
	if geometry == nil || geometry.Disposed || material == nil || material.Disposed {
		r.info.SkippedDraws++
		return
	}

	handle, entry, err := r.materials.GetProgram(material, pass.lights, r.itemFeatures(item, pass.features))
	if err != nil {
		r.raise(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_CONFIGURATION, err,
			"drawable %d cannot resolve a program for material '%s'", item.DrawableID, material.Name)
		r.info.SkippedDraws++
		return
	}
	if entry.IsStandIn() {
		r.info.SkippedDraws++
		return
	}
	if err := r.geometries.Update(geometry, r.frame); err != nil {
		r.raise(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_CONFIGURATION, err,
			"drawable %d geometry '%s' could not be uploaded", item.DrawableID, geometry.Name)
		r.info.SkippedDraws++
		return
	}

	if r.currentProgram != entry.Program {
		r.backend.ProgramUse(entry.Program)
		r.currentProgram = entry.Program
	}

	uniforms := entry.Uniforms
	uploads, skips := uniforms.Uploads, uniforms.Skips
	if uniforms.BeginPass(pass.stamp) {
		r.uploadPassUniforms(uniforms, pass)
	}
	r.uploadMaterialUniforms(uniforms, material)
	r.uploadObjectUniforms(uniforms, item, pass)
	r.bindTextures(uniforms, material, pass)
	r.info.UniformUploads += uniforms.Uploads - uploads
	r.info.UniformSkips += uniforms.Skips - skips

	r.bindings.Setup(item.DrawableID, handle, entry, geometry)

	start, count := geometry.DrawSpan(item.Group)
	if count == 0 {
		return
	}
	blending := material.Blending
	if !material.Transparent {
		blending = metadata.BLENDING_NONE
	}
	r.backend.Draw(metadata.DrawCall{
		Mode:       item.Drawable.Mode,
		Start:      start,
		Count:      count,
		Indexed:    geometry.Index != nil,
		Side:       material.Side,
		Blending:   blending,
		DepthTest:  material.DepthTest,
		DepthWrite: material.DepthWrite,
	})
	r.info.Calls++
	switch item.Drawable.Mode {
	case metadata.DRAW_MODE_LINES:
		r.info.Lines += int(count / 2)
	case metadata.DRAW_MODE_POINTS:
		r.info.Points += int(count)
	default:
		r.info.Triangles += int(count / 3)
	}
}

func (r *RendererSystem) uploadPassUniforms(u *UniformCache, pass *renderPass) {
	u.UploadByName("projectionMatrix", metadata.UniformMat4(pass.projection))
	u.UploadByName("viewMatrix", metadata.UniformMat4(pass.view))
	u.UploadByName("cameraPosition", metadata.UniformVec3(pass.position))

	if lights := pass.lights; lights != nil {
		u.UploadByName("ambientLightColor", metadata.UniformVec3(lights.Ambient))
		u.UploadByName("directionalLights", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32, lights.Directional))
		u.UploadByName("pointLights", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32, lights.Point))
		u.UploadByName("spotLights", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32, lights.Spot))
		u.UploadByName("hemisphereLights", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32, lights.Hemisphere))
		u.UploadByName("rectAreaLights", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32, lights.RectArea))
		u.UploadByName("directionalShadowMatrix", metadata.UniformFloats(metadata.ShaderUniformTypeMatrix4, r.shadowMatrices[metadata.LIGHT_TYPE_DIRECTIONAL]))
		u.UploadByName("pointShadowMatrix", metadata.UniformFloats(metadata.ShaderUniformTypeMatrix4, r.shadowMatrices[metadata.LIGHT_TYPE_POINT]))
		u.UploadByName("spotShadowMatrix", metadata.UniformFloats(metadata.ShaderUniformTypeMatrix4, r.shadowMatrices[metadata.LIGHT_TYPE_SPOT]))
	}

	if fog := r.Fog; fog != nil {
		u.UploadByName("fogColor", metadata.UniformVec3(fog.Color))
		u.UploadByName("fogNear", metadata.UniformFloat(fog.Near))
		u.UploadByName("fogFar", metadata.UniformFloat(fog.Far))
		u.UploadByName("fogDensity", metadata.UniformFloat(fog.Density))
	}
	u.UploadByName("toneMappingExposure", metadata.UniformFloat(r.ToneMappingExposure))

	if t := pass.transmission; t != nil {
		u.UploadByName("transmissionSamplerSize", metadata.UniformVec2(math.NewVec2(float32(t.Width), float32(t.Height))))
	}
	if entry := pass.light; entry != nil {
		u.UploadByName("referencePosition", metadata.UniformVec3(entry.Position()))
		u.UploadByName("nearDistance", metadata.UniformFloat(entry.Light.Shadow.CameraNear))
		u.UploadByName("farDistance", metadata.UniformFloat(entry.Light.Shadow.CameraFar))
	}
}

func (r *RendererSystem) uploadMaterialUniforms(u *UniformCache, m *metadata.Material) {
	u.UploadByName("diffuse", metadata.UniformVec3(m.Color))
	u.UploadByName("opacity", metadata.UniformFloat(math.Saturate(m.Opacity)))
	u.UploadByName("emissive", metadata.UniformVec3(m.Emissive))
	u.UploadByName("shininess", metadata.UniformFloat(m.Shininess))
	u.UploadByName("roughness", metadata.UniformFloat(math.Saturate(m.Roughness)))
	u.UploadByName("metalness", metadata.UniformFloat(math.Saturate(m.Metalness)))
	u.UploadByName("clearcoat", metadata.UniformFloat(m.Clearcoat))
	u.UploadByName("sheen", metadata.UniformFloat(m.Sheen))
	u.UploadByName("iridescence", metadata.UniformFloat(m.Iridescence))
	u.UploadByName("dispersion", metadata.UniformFloat(m.Dispersion))
	u.UploadByName("anisotropy", metadata.UniformFloat(m.Anisotropy))
	u.UploadByName("alphaTest", metadata.UniformFloat(math.Saturate(m.AlphaTest)))
	u.UploadByName("transmission", metadata.UniformFloat(math.Saturate(m.Transmission)))

	if u.Has("clippingPlanes") {
		r.clipping = r.clipping[:0]
		for _, planes := range [][]math.Plane{m.ClippingPlanes, r.ClippingPlanes} {
			for _, p := range planes {
				r.clipping = append(r.clipping, p.Normal.X, p.Normal.Y, p.Normal.Z, p.Constant)
			}
		}
		u.UploadByName("clippingPlanes", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32_4, r.clipping))
	}
	for name, value := range m.Uniforms {
		u.UploadByName(name, value)
	}
}

func (r *RendererSystem) uploadObjectUniforms(u *UniformCache, item *RenderItem, pass *renderPass) {
	world := math.NewMat4Identity()
	if item.Node != nil {
		world = item.Node.CachedWorld()
	}
	modelView := pass.view.Mul(world)
	u.UploadByName("modelMatrix", metadata.UniformMat4(world))
	u.UploadByName("modelViewMatrix", metadata.UniformMat4(modelView))
	u.UploadByName("normalMatrix", metadata.UniformNormalMatrix(modelView))

	if slot := u.Slot("morphTargetInfluences"); slot != nil {
		influences := make([]float32, slot.ArraySize)
		copy(influences, item.Drawable.MorphInfluences)
		u.Upload(slot, metadata.UniformFloats(metadata.ShaderUniformTypeFloat32, influences))
	}
	if slot := u.Slot("boneMatrices"); slot != nil {
		palette := make([]float32, 0, int(slot.ArraySize)*16)
		for i := 0; i < int(slot.ArraySize) && i < len(item.Drawable.BoneMatrices); i++ {
			palette = append(palette, item.Drawable.BoneMatrices[i].Data[:]...)
		}
		u.Upload(slot, metadata.UniformFloats(metadata.ShaderUniformTypeMatrix4, palette))
	}
}

/**
 * @brief Hands out texture units for the draw in a fixed order: the
 * transmission backdrop, the shadow maps, then the material maps. The order
 * keeps the unit of every sampler stable so its uniform is uploaded once.
 */
func (r *RendererSystem) bindTextures(u *UniformCache, m *metadata.Material, pass *renderPass) {
	r.textures.ResetUnits()

	if pass.transmission != nil && u.Has("transmissionSamplerMap") {
		r.bindSampler(u, "transmissionSamplerMap", pass.transmission.Texture)
	}
	for _, shadowed := range []struct {
		name string
		t    metadata.LightType
	}{
		{"directionalShadowMap", metadata.LIGHT_TYPE_DIRECTIONAL},
		{"pointShadowMap", metadata.LIGHT_TYPE_POINT},
		{"spotShadowMap", metadata.LIGHT_TYPE_SPOT},
	} {
		if !u.Has(shadowed.name) {
			continue
		}
		r.samplerUnits = r.samplerUnits[:0]
		for _, texture := range r.shadowMaps[shadowed.t] {
			unit, err := r.textures.BindNext(texture)
			if err != nil {
				break
			}
			r.samplerUnits = append(r.samplerUnits, unit)
		}
		u.UploadByName(shadowed.name, metadata.UniformValue{Type: metadata.ShaderUniformTypeSampler, Ints: r.samplerUnits})
	}

	for slot := metadata.MapSlot(0); slot < metadata.MAP_SLOT_COUNT; slot++ {
		tm := m.Maps[slot]
		if tm == nil || tm.Texture == nil {
			continue
		}
		name := slot.String()
		if !u.Has(name) {
			continue
		}
		r.bindSampler(u, name, tm.Texture)
	}
}

func (r *RendererSystem) bindSampler(u *UniformCache, name string, texture *metadata.Texture) {
	unit, err := r.textures.BindNext(texture)
	if err != nil {
		if !errors.Is(err, core.ErrResourceLimit) {
			r.raise(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_CONFIGURATION, err, "sampler '%s' is left unbound", name)
		}
		return
	}
	u.UploadByName(name, metadata.UniformSampler(unit))
}

/**
 * @brief Draws the depth only list of a shadow map into target. Implements
 * ShadowRenderer.
 */
func (r *RendererSystem) RenderShadowList(list *RenderList, camera *components.Camera, target *metadata.RenderTarget, viewport metadata.Rect, light *LightEntry, clear bool) error {
	features := SceneFeatures{Precision: r.features.Precision, RenderingToTarget: true}
	pass := r.newPass(camera, target, features, nil)
	pass.light = light
	if err := r.bindTarget(target); err != nil {
		return err
	}
	r.backend.SetViewport(viewport)
	if clear {
		r.backend.Clear(metadata.CLEAR_COLOUR_BUFFER_FLAG|metadata.CLEAR_DEPTH_BUFFER_FLAG, [4]float32{1, 1, 1, 1})
	}
	r.drawList(list.Opaque, pass)
	r.drawList(list.Transmissive, pass)
	r.drawList(list.Transparent, pass)
	return nil
}

/**
 * @brief Draws a screen covering quad with material into target. Implements
 * ShadowRenderer, used by the variance shadow map blur.
 */
func (r *RendererSystem) RenderFullscreen(material *metadata.Material, target *metadata.RenderTarget) error {
	if target == nil {
		return fmt.Errorf("func RenderFullscreen - target cannot be nil: %w", core.ErrInvalidConfig)
	}
	features := SceneFeatures{Precision: r.features.Precision, RenderingToTarget: true}
	pass := r.newPass(r.fullscreenCamera, target, features, nil)
	if err := r.bindTarget(target); err != nil {
		return err
	}
	r.backend.SetViewport(metadata.Rect{Width: int32(target.Width), Height: int32(target.Height)})
	r.drawItem(&RenderItem{
		DrawableID: r.fullscreenDrawable.ID,
		Drawable:   r.fullscreenDrawable,
		Geometry:   r.fullscreenQuad,
		Material:   material,
	}, pass)
	return nil
}

/**
 * @brief Updates the drawing buffer size. Offscreen targets owned by the
 * renderer follow on their next use.
 */
func (r *RendererSystem) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("func OnResize - size %dx%d: %w", width, height, core.ErrInvalidConfig)
	}
	r.width = width
	r.height = height
	if !r.initialized {
		return nil
	}
	return r.backend.Resized(width, height)
}

/** @brief The drawing buffer size. */
func (r *RendererSystem) Size() (uint32, uint32) {
	return r.width, r.height
}

/**
 * @brief Reads back RGBA8 pixels of target, nil reads the default framebuffer.
 * Blocks until the GPU finished the frame or ctx is done.
 */
func (r *RendererSystem) ReadPixels(ctx context.Context, target *metadata.RenderTarget, rect metadata.Rect) ([]uint8, error) {
	if !r.initialized {
		return nil, fmt.Errorf("func ReadPixels - renderer not initialized: %w", core.ErrNotInitialized)
	}
	if r.suspended {
		return nil, fmt.Errorf("func ReadPixels - %w", core.ErrContextLost)
	}
	var id metadata.RenderTargetID
	if target != nil {
		if target.InternalID == 0 {
			return nil, fmt.Errorf("render target '%s' was never rendered: %w", target.Name, core.ErrInvalidHandle)
		}
		id = target.InternalID
	}
	return r.backend.ReadPixels(ctx, id, rect)
}

/** @brief Statistics of the last frame together with the current cache sizes. */
func (r *RendererSystem) Info() RenderInfo {
	info := r.info
	info.Programs = r.programs.Count()
	info.Geometries = r.geometries.Count()
	info.Textures = r.textures.Count()
	info.Bindings = r.bindings.Count()
	return info
}

/** @brief The system sampling render target textures and handing out units. */
func (r *RendererSystem) Textures() *TextureSystem {
	return r.textures
}

/** @brief The system resolving materials to programs. */
func (r *RendererSystem) Materials() *MaterialSystem {
	return r.materials
}

/** @brief The shared program cache. */
func (r *RendererSystem) Programs() *ProgramCache {
	return r.programs
}

/** @brief The shadow sub-pass. */
func (r *RendererSystem) Shadows() *ShadowSystem {
	return r.shadows
}

/** @brief Routes every diagnostic to fn as well as the history, nil removes it. */
func (r *RendererSystem) SetDiagnosticHandler(fn metadata.FnOnDiagnostic) {
	r.onDiagnostic = fn
}

/** @brief The most recent diagnostics, oldest first. */
func (r *RendererSystem) Diagnostics() []metadata.Diagnostic {
	return r.diagnostics.Items()
}

func (r *RendererSystem) warning(code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
	r.raise(metadata.DIAGNOSTIC_SEVERITY_WARNING, code, err, format, args...)
}

func (r *RendererSystem) raise(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
	d := metadata.Diagnostic{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
		Frame:    r.frame,
	}
	r.diagnostics.Push(d)
	if severity == metadata.DIAGNOSTIC_SEVERITY_ERROR {
		core.LogError(d.String())
	} else {
		core.LogWarn(d.String())
	}
	if r.onDiagnostic != nil {
		r.onDiagnostic(d)
	}
}

/**
 * @brief Releases every GPU object the renderer created. The backend stays
 * usable, the renderer does not.
 */
func (r *RendererSystem) Dispose() error {
	if r.disposed {
		return nil
	}
	for _, code := range rendererEvents {
		core.EventUnregister(code, r)
	}
	if !r.suspended {
		_ = r.bindings.Shutdown()
		_ = r.materials.Shutdown()
		_ = r.programs.Shutdown()
		_ = r.geometries.Shutdown()
		_ = r.textures.Shutdown()
		for target := range r.targets {
			if target.InternalID != 0 {
				r.backend.RenderTargetDestroy(target.InternalID)
				target.InternalID = 0
			}
		}
	}
	r.targets = make(map[*metadata.RenderTarget]struct{})
	_ = r.shadows.Shutdown()
	r.disposed = true
	r.initialized = false
	core.LogInfo("Renderer system disposed.")
	return nil
}

func (r *RendererSystem) Shutdown() error {
	if err := r.Dispose(); err != nil {
		return err
	}
	return r.backend.Shutdown()
}
