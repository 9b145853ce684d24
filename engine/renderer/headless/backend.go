package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Counts every command the backend received.
 */
type Stats struct {
	Frames              uint64
	Clears              uint64
	Viewports           uint64
	ProgramCreates      uint64
	ProgramDestroys     uint64
	ProgramUses         uint64
	BufferCreates       uint64
	BufferUpdates       uint64
	BufferDestroys      uint64
	VertexArrayCreates  uint64
	VertexArrayBinds    uint64
	VertexArrayDestroys uint64
	AttribPointers      uint64
	AttribDisables      uint64
	IndexBufferBinds    uint64
	UniformUploads      uint64
	TextureUploads      uint64
	TextureBinds        uint64
	TextureDestroys     uint64
	TargetCreates       uint64
	TargetDestroys      uint64
	TargetBinds         uint64
	Draws               uint64
	ReadPixels          uint64
}

/** @brief One recorded draw call with the state it was issued under. */
type DrawRecord struct {
	Program metadata.ProgramID
	Target  metadata.RenderTargetID
	Call    metadata.DrawCall
	/** @brief The enabled attribute locations at draw time. */
	Attributes int
}

/** @brief One recorded uniform upload. */
type UniformRecord struct {
	Program  metadata.ProgramID
	Location int32
	Name     string
	Value    metadata.UniformValue
}

type Option func(*HeadlessRenderer)

/** @brief Overrides the number of texture units the backend reports. */
func WithMaxTextureUnits(units uint32) Option {
	return func(hr *HeadlessRenderer) {
		hr.capabilities.MaxTextureUnits = units
	}
}

/** @brief Reports no vertex array object support. */
func WithoutVertexArrays() Option {
	return func(hr *HeadlessRenderer) {
		hr.capabilities.VertexArrays = false
	}
}

/** @brief Delays read-back fences. */
func WithFenceLatency(latency time.Duration) Option {
	return func(hr *HeadlessRenderer) {
		hr.fenceLatency = latency
	}
}

/** @brief Keeps the full draw and upload log, off by default. */
func WithRecording() Option {
	return func(hr *HeadlessRenderer) {
		hr.recording = true
	}
}

/**
 * @brief An in-memory backend. It validates and records commands instead of
 * rasterizing, keeps clear colours as pixel data so read-back returns real
 * values and can simulate compile failures and context loss.
 */
type HeadlessRenderer struct {
	FrameNumber  uint64
	context      *HeadlessContext
	capabilities metadata.Capabilities
	stats        Stats
	fenceLatency time.Duration
	recording    bool
	draws        []DrawRecord
	uniforms     []UniformRecord

	initialized bool
	inFrame     bool
	contextLost bool
	failCompile func(source *metadata.ProgramSource) bool
}

func New(options ...Option) *HeadlessRenderer {
	hr := &HeadlessRenderer{
		capabilities: metadata.Capabilities{
			MaxTextureUnits:     16,
			MaxVertexAttributes: 16,
			VertexArrays:        true,
			MaxTextureSize:      8192,
		},
	}
	for _, option := range options {
		option(hr)
	}
	return hr
}

func (hr *HeadlessRenderer) Initialize(config *metadata.RendererBackendConfig) error {
	if config == nil {
		err := fmt.Errorf("func Initialize - config cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return err
	}
	hr.context = newHeadlessContext(config.Width, config.Height)
	hr.initialized = true
	core.LogInfo("Headless renderer backend initialized for '%s' (%dx%d).", config.ApplicationName, config.Width, config.Height)
	return nil
}

func (hr *HeadlessRenderer) Shutdown() error {
	if !hr.initialized {
		return nil
	}
	hr.context.reset()
	hr.initialized = false
	core.LogInfo("Headless renderer backend shut down.")
	return nil
}

func (hr *HeadlessRenderer) Resized(width, height uint32) error {
	if !hr.initialized {
		return core.ErrNotInitialized
	}
	hr.context.FramebufferWidth = width
	hr.context.FramebufferHeight = height
	hr.context.framebuffer = make([]uint8, int(width)*int(height)*4)
	core.LogDebug("Headless renderer backend->resized: w/h: %d/%d", width, height)
	return nil
}

func (hr *HeadlessRenderer) BeginFrame(deltaTime float64) error {
	if !hr.initialized {
		return core.ErrNotInitialized
	}
	if hr.contextLost {
		return core.ErrContextLost
	}
	if hr.inFrame {
		return fmt.Errorf("func BeginFrame - frame %d already begun", hr.FrameNumber)
	}
	hr.inFrame = true
	return nil
}

func (hr *HeadlessRenderer) EndFrame(deltaTime float64) error {
	if !hr.inFrame {
		return fmt.Errorf("func EndFrame - no frame in progress")
	}
	hr.inFrame = false
	hr.FrameNumber++
	hr.stats.Frames++
	return nil
}

func (hr *HeadlessRenderer) Capabilities() metadata.Capabilities {
	return hr.capabilities
}

func (hr *HeadlessRenderer) IsContextLost() bool {
	return hr.contextLost
}

// usable reports whether commands can be recorded.
func (hr *HeadlessRenderer) usable() bool {
	return hr.initialized && !hr.contextLost
}

func (hr *HeadlessRenderer) SetViewport(rect metadata.Rect) {
	if !hr.usable() {
		return
	}
	hr.context.viewport = rect
	hr.stats.Viewports++
}

func (hr *HeadlessRenderer) Clear(flags metadata.ClearFlag, colour [4]float32) {
	if !hr.usable() {
		return
	}
	hr.stats.Clears++
	if flags&metadata.CLEAR_COLOUR_BUFFER_FLAG == 0 {
		return
	}
	var rgba [4]uint8
	for i, c := range colour {
		rgba[i] = uint8(min(max(c, 0), 1)*255 + 0.5)
	}
	pixels, _, _ := hr.context.currentPixels()
	for i := 0; i+3 < len(pixels); i += 4 {
		copy(pixels[i:i+4], rgba[:])
	}
}

/**
 * @brief Fails the next program builds matching fn. A nil fn clears the hook.
 */
func (hr *HeadlessRenderer) FailCompile(fn func(source *metadata.ProgramSource) bool) {
	hr.failCompile = fn
}

func (hr *HeadlessRenderer) ProgramCreate(source *metadata.ProgramSource) (metadata.ProgramID, error) {
	if !hr.usable() {
		return 0, core.ErrContextLost
	}
	if hr.failCompile != nil && hr.failCompile(source) {
		return 0, fmt.Errorf("program '%s' failed to link: %w", source.Label, core.ErrCompileFailed)
	}

	program := &headlessProgram{
		source: source,
		values: make(map[int32]metadata.UniformValue),
	}
	for i, attr := range source.Attributes {
		program.attributes = append(program.attributes, metadata.ShaderAttribute{
			Name:     attr.Name,
			Location: uint32(i),
			Size:     attr.Size,
		})
	}
	for i, uniform := range source.Uniforms {
		program.uniforms = append(program.uniforms, metadata.ShaderUniform{
			Name:      uniform.Name,
			Location:  int32(i),
			Type:      uniform.Type,
			Scope:     uniform.Scope,
			ArraySize: uniform.ArraySize,
		})
	}

	id := metadata.ProgramID(hr.context.newName())
	hr.context.programs[id] = program
	hr.stats.ProgramCreates++
	return id, nil
}

func (hr *HeadlessRenderer) ProgramDestroy(program metadata.ProgramID) {
	if !hr.usable() {
		return
	}
	if _, ok := hr.context.programs[program]; ok {
		delete(hr.context.programs, program)
		hr.stats.ProgramDestroys++
		if hr.context.boundProgram == program {
			hr.context.boundProgram = 0
		}
	}
}

func (hr *HeadlessRenderer) ProgramUse(program metadata.ProgramID) {
	if !hr.usable() {
		return
	}
	hr.context.boundProgram = program
	hr.stats.ProgramUses++
}

func (hr *HeadlessRenderer) ProgramAttributes(program metadata.ProgramID) []metadata.ShaderAttribute {
	if p, ok := hr.context.programs[program]; ok {
		return p.attributes
	}
	return nil
}

func (hr *HeadlessRenderer) ProgramUniforms(program metadata.ProgramID) []metadata.ShaderUniform {
	if p, ok := hr.context.programs[program]; ok {
		return p.uniforms
	}
	return nil
}

func bufferLength(data interface{}) (int, error) {
	switch d := data.(type) {
	case []float32:
		return len(d), nil
	case []uint32:
		return len(d), nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported buffer data %T", data)
}

func (hr *HeadlessRenderer) BufferCreate(bufferType metadata.RenderBufferType, data interface{}) (metadata.BufferID, error) {
	if !hr.usable() {
		return 0, core.ErrContextLost
	}
	size, err := bufferLength(data)
	if err != nil {
		return 0, err
	}
	id := metadata.BufferID(hr.context.newName())
	hr.context.buffers[id] = &headlessBuffer{bufferType: bufferType, size: size}
	hr.stats.BufferCreates++
	return id, nil
}

func (hr *HeadlessRenderer) BufferUpdate(buffer metadata.BufferID, data interface{}) error {
	if !hr.usable() {
		return core.ErrContextLost
	}
	b, ok := hr.context.buffers[buffer]
	if !ok {
		return fmt.Errorf("buffer %d: %w", buffer, core.ErrInvalidHandle)
	}
	size, err := bufferLength(data)
	if err != nil {
		return err
	}
	b.size = size
	hr.stats.BufferUpdates++
	return nil
}

func (hr *HeadlessRenderer) BufferDestroy(buffer metadata.BufferID) {
	if !hr.usable() {
		return
	}
	if _, ok := hr.context.buffers[buffer]; ok {
		delete(hr.context.buffers, buffer)
		hr.stats.BufferDestroys++
	}
}

func (hr *HeadlessRenderer) VertexArrayCreate() metadata.VertexArrayID {
	if !hr.usable() || !hr.capabilities.VertexArrays {
		return 0
	}
	id := metadata.VertexArrayID(hr.context.newName())
	hr.context.vertexArrays[id] = &headlessVertexArray{attributes: make(map[uint32]headlessAttribBinding)}
	hr.stats.VertexArrayCreates++
	return id
}

func (hr *HeadlessRenderer) VertexArrayBind(vao metadata.VertexArrayID) {
	if !hr.usable() {
		return
	}
	hr.context.boundVertexArray = vao
	hr.stats.VertexArrayBinds++
}

func (hr *HeadlessRenderer) VertexArrayDestroy(vao metadata.VertexArrayID) {
	if !hr.usable() {
		return
	}
	if _, ok := hr.context.vertexArrays[vao]; ok {
		delete(hr.context.vertexArrays, vao)
		hr.stats.VertexArrayDestroys++
		if hr.context.boundVertexArray == vao {
			hr.context.boundVertexArray = 0
		}
	}
}

func (hr *HeadlessRenderer) VertexAttribPointer(location uint32, buffer metadata.BufferID, size uint8, normalized bool, stride, offset uint32) {
	if !hr.usable() {
		return
	}
	hr.context.currentVertexArray().attributes[location] = headlessAttribBinding{
		buffer:     buffer,
		size:       size,
		normalized: normalized,
		stride:     stride,
		offset:     offset,
	}
	hr.stats.AttribPointers++
}

func (hr *HeadlessRenderer) VertexAttribDisable(location uint32) {
	if !hr.usable() {
		return
	}
	delete(hr.context.currentVertexArray().attributes, location)
	hr.stats.AttribDisables++
}

func (hr *HeadlessRenderer) IndexBufferBind(buffer metadata.BufferID) {
	if !hr.usable() {
		return
	}
	hr.context.currentVertexArray().index = buffer
	hr.stats.IndexBufferBinds++
}

func (hr *HeadlessRenderer) UniformUpload(program metadata.ProgramID, location int32, value metadata.UniformValue) {
	if !hr.usable() {
		return
	}
	p, ok := hr.context.programs[program]
	if !ok {
		core.LogWarn("uniform upload to unknown program %d", program)
		return
	}
	var stored metadata.UniformValue
	stored.CopyFrom(value)
	p.values[location] = stored
	hr.stats.UniformUploads++
	if hr.recording {
		name := ""
		if int(location) < len(p.uniforms) {
			name = p.uniforms[location].Name
		}
		hr.uniforms = append(hr.uniforms, UniformRecord{Program: program, Location: location, Name: name, Value: stored})
	}
}

func (hr *HeadlessRenderer) TextureUpload(texture *metadata.Texture, existing metadata.TextureID) (metadata.TextureID, error) {
	if !hr.usable() {
		return 0, core.ErrContextLost
	}
	if texture.Width > hr.capabilities.MaxTextureSize || texture.Height > hr.capabilities.MaxTextureSize {
		return 0, fmt.Errorf("texture '%s' is %dx%d, larger than %d: %w",
			texture.Name, texture.Width, texture.Height, hr.capabilities.MaxTextureSize, core.ErrResourceLimit)
	}
	id := existing
	if _, ok := hr.context.textures[id]; !ok {
		id = metadata.TextureID(hr.context.newName())
	}
	hr.context.textures[id] = &headlessTexture{width: texture.Width, height: texture.Height, version: texture.Version}
	hr.stats.TextureUploads++
	return id, nil
}

func (hr *HeadlessRenderer) TextureBind(unit uint32, texture metadata.TextureID) {
	if !hr.usable() {
		return
	}
	hr.context.boundTextures[unit] = texture
	hr.stats.TextureBinds++
}

func (hr *HeadlessRenderer) TextureDestroy(texture metadata.TextureID) {
	if !hr.usable() {
		return
	}
	if _, ok := hr.context.textures[texture]; ok {
		delete(hr.context.textures, texture)
		hr.stats.TextureDestroys++
	}
}

func (hr *HeadlessRenderer) RenderTargetCreate(target *metadata.RenderTarget) (metadata.RenderTargetID, error) {
	if !hr.usable() {
		return 0, core.ErrContextLost
	}
	if target.Width == 0 || target.Height == 0 {
		return 0, fmt.Errorf("render target '%s' has an empty size: %w", target.Name, core.ErrInvalidConfig)
	}
	tex := metadata.TextureID(hr.context.newName())
	hr.context.textures[tex] = &headlessTexture{width: target.Width, height: target.Height}
	id := metadata.RenderTargetID(hr.context.newName())
	hr.context.targets[id] = &headlessTarget{
		width:   target.Width,
		height:  target.Height,
		texture: tex,
		pixels:  make([]uint8, int(target.Width)*int(target.Height)*4),
	}
	hr.stats.TargetCreates++
	return id, nil
}

func (hr *HeadlessRenderer) RenderTargetDestroy(target metadata.RenderTargetID) {
	if !hr.usable() {
		return
	}
	if t, ok := hr.context.targets[target]; ok {
		delete(hr.context.textures, t.texture)
		delete(hr.context.targets, target)
		hr.stats.TargetDestroys++
		if hr.context.boundTarget == target {
			hr.context.boundTarget = 0
		}
	}
}

func (hr *HeadlessRenderer) RenderTargetBind(target metadata.RenderTargetID) {
	if !hr.usable() {
		return
	}
	hr.context.boundTarget = target
	hr.stats.TargetBinds++
}

func (hr *HeadlessRenderer) RenderTargetTexture(target metadata.RenderTargetID) metadata.TextureID {
	if t, ok := hr.context.targets[target]; ok {
		return t.texture
	}
	return 0
}

func (hr *HeadlessRenderer) Draw(call metadata.DrawCall) {
	if !hr.usable() {
		return
	}
	if _, ok := hr.context.programs[hr.context.boundProgram]; !ok {
		core.LogWarn("draw issued without a valid program bound")
		return
	}
	hr.stats.Draws++
	if hr.recording {
		hr.draws = append(hr.draws, DrawRecord{
			Program:    hr.context.boundProgram,
			Target:     hr.context.boundTarget,
			Call:       call,
			Attributes: len(hr.context.currentVertexArray().attributes),
		})
	}
}

/**
 * @brief Copies the requested region once a fence placed after the recorded
 * commands signals. The copy is taken at call time so the render goroutine may
 * keep recording while the caller waits.
 */
func (hr *HeadlessRenderer) ReadPixels(ctx context.Context, target metadata.RenderTargetID, rect metadata.Rect) ([]uint8, error) {
	if !hr.usable() {
		return nil, core.ErrContextLost
	}
	pixels, width, height := hr.context.framebuffer, hr.context.FramebufferWidth, hr.context.FramebufferHeight
	if target != 0 {
		t, ok := hr.context.targets[target]
		if !ok {
			return nil, fmt.Errorf("render target %d: %w", target, core.ErrInvalidHandle)
		}
		pixels, width, height = t.pixels, t.width, t.height
	}
	if rect.X < 0 || rect.Y < 0 || rect.Width <= 0 || rect.Height <= 0 ||
		uint32(rect.X+rect.Width) > width || uint32(rect.Y+rect.Height) > height {
		return nil, fmt.Errorf("read-back rectangle %+v outside %dx%d: %w", rect, width, height, core.ErrInvalidConfig)
	}

	out := make([]uint8, 0, rect.Width*rect.Height*4)
	for y := rect.Y; y < rect.Y+rect.Height; y++ {
		row := (int(y)*int(width) + int(rect.X)) * 4
		out = append(out, pixels[row:row+int(rect.Width)*4]...)
	}
	hr.stats.ReadPixels++

	fence := NewFence(hr.fenceLatency)
	if err := fence.FenceWait(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

/**
 * @brief Drops every GPU object and fires EVENT_CODE_CONTEXT_LOST.
 */
func (hr *HeadlessRenderer) LoseContext() {
	if hr.contextLost {
		return
	}
	hr.contextLost = true
	hr.inFrame = false
	if hr.context != nil {
		hr.context.reset()
	}
	core.LogWarn("Headless renderer backend: context lost.")
	core.EventFire(core.EVENT_CODE_CONTEXT_LOST, hr, core.EventContext{})
}

/**
 * @brief Gives back an empty context and fires EVENT_CODE_CONTEXT_RESTORED.
 */
func (hr *HeadlessRenderer) RestoreContext() {
	if !hr.contextLost {
		return
	}
	hr.contextLost = false
	core.LogInfo("Headless renderer backend: context restored.")
	core.EventFire(core.EVENT_CODE_CONTEXT_RESTORED, hr, core.EventContext{})
}

func (hr *HeadlessRenderer) Stats() Stats {
	return hr.stats
}

func (hr *HeadlessRenderer) ResetStats() {
	hr.stats = Stats{}
	hr.draws = hr.draws[:0]
	hr.uniforms = hr.uniforms[:0]
}

/** @brief The recorded draws, only filled WithRecording. */
func (hr *HeadlessRenderer) Draws() []DrawRecord {
	return hr.draws
}

/** @brief The recorded uniform uploads, only filled WithRecording. */
func (hr *HeadlessRenderer) Uniforms() []UniformRecord {
	return hr.uniforms
}

/** @brief The number of live objects of each kind on the simulated GPU. */
func (hr *HeadlessRenderer) LiveObjects() (programs, buffers, vertexArrays, textures, targets int) {
	if hr.context == nil {
		return 0, 0, 0, 0, 0
	}
	c := hr.context
	return len(c.programs), len(c.buffers), len(c.vertexArrays), len(c.textures), len(c.targets)
}

/** @brief The last value uploaded to a program location, for tests. */
func (hr *HeadlessRenderer) UniformValue(program metadata.ProgramID, location int32) (metadata.UniformValue, bool) {
	p, ok := hr.context.programs[program]
	if !ok {
		return metadata.UniformValue{}, false
	}
	v, ok := p.values[location]
	return v, ok
}
