package systems

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be registered by name. */
	MaxTextureCount uint32
	/** @brief Units available per draw. Zero uses the backend capability. */
	MaxTextureUnits uint32
}

type textureReference struct {
	id      metadata.TextureID
	version uint32
}

/**
 * @brief Uploads textures on demand, resolves render target attachments and
 * hands out texture units for a draw.
 */
type TextureSystem struct {
	Config         *TextureSystemConfig
	DefaultTexture *metadata.Texture

	backend renderer.RendererBackend
	// Textures registered by name, used by material loading.
	registered map[string]*metadata.Texture
	uploaded   map[*metadata.Texture]*textureReference
	// Attachment textures and the target that renders into them.
	targets map[*metadata.Texture]*metadata.RenderTarget

	nextUnit uint32
	bound    []metadata.TextureID

	onDiagnostic func(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{})
}

func NewTextureSystem(config *TextureSystemConfig, backend renderer.RendererBackend) (*TextureSystem, error) {
	if config == nil || config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	if backend == nil {
		err := fmt.Errorf("func NewTextureSystem - backend cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	ts := &TextureSystem{
		Config:         config,
		DefaultTexture: metadata.NewDefaultTexture(),
		backend:        backend,
		registered:     make(map[string]*metadata.Texture),
		uploaded:       make(map[*metadata.Texture]*textureReference),
		targets:        make(map[*metadata.Texture]*metadata.RenderTarget),
	}
	ts.registered[ts.DefaultTexture.Name] = ts.DefaultTexture
	return ts, nil
}

func (ts *TextureSystem) maxUnits() uint32 {
	units := ts.backend.Capabilities().MaxTextureUnits
	if ts.Config.MaxTextureUnits > 0 && ts.Config.MaxTextureUnits < units {
		units = ts.Config.MaxTextureUnits
	}
	return units
}

/**
 * @brief Makes a texture available by name. Registering a name twice replaces
 * the previous texture.
 */
func (ts *TextureSystem) Register(texture *metadata.Texture) error {
	if texture == nil {
		return fmt.Errorf("func Register - texture cannot be nil: %w", core.ErrInvalidConfig)
	}
	if _, ok := ts.registered[texture.Name]; !ok && uint32(len(ts.registered)) >= ts.Config.MaxTextureCount {
		return fmt.Errorf("cannot register texture '%s', %d textures already registered: %w", texture.Name, len(ts.registered), core.ErrResourceLimit)
	}
	ts.registered[texture.Name] = texture
	return nil
}

/** @brief A registered texture by name, nil if unknown. */
func (ts *TextureSystem) Get(name string) *metadata.Texture {
	return ts.registered[name]
}

/** @brief Declares that the attachment of target is sampled as a texture. */
func (ts *TextureSystem) RegisterRenderTarget(target *metadata.RenderTarget) {
	if target != nil && target.Texture != nil {
		ts.targets[target.Texture] = target
	}
}

func (ts *TextureSystem) UnregisterRenderTarget(target *metadata.RenderTarget) {
	if target != nil && target.Texture != nil {
		delete(ts.targets, target.Texture)
	}
}

/**
 * @brief The backend texture to sample for t, uploading it the first time and
 * whenever its Version moved. Attachments resolve to their target's texture,
 * textures without data fall back to the default texture.
 */
func (ts *TextureSystem) Resolve(t *metadata.Texture) (metadata.TextureID, error) {
	if t == nil || t.Disposed {
		t = ts.DefaultTexture
	}
	if target, ok := ts.targets[t]; ok {
		if target.InternalID == 0 {
			return 0, fmt.Errorf("render target '%s' sampled before it was rendered: %w", target.Name, core.ErrInvalidHandle)
		}
		return ts.backend.RenderTargetTexture(target.InternalID), nil
	}
	if len(t.Data) == 0 && t != ts.DefaultTexture {
		return ts.Resolve(ts.DefaultTexture)
	}

	ref, ok := ts.uploaded[t]
	if ok && ref.version == t.Version {
		return ref.id, nil
	}
	var existing metadata.TextureID
	if ok {
		existing = ref.id
	}
	id, err := ts.backend.TextureUpload(t, existing)
	if err != nil {
		return 0, fmt.Errorf("texture '%s': %w", t.Name, err)
	}
	if !ok {
		ref = &textureReference{}
		ts.uploaded[t] = ref
	}
	ref.id = id
	ref.version = t.Version
	return id, nil
}

/** @brief Starts the unit allocation of a new draw. */
func (ts *TextureSystem) ResetUnits() {
	ts.nextUnit = 0
}

/**
 * @brief Binds t to the next free unit and returns the unit. Running out of
 * units raises a resource limit diagnostic and the sampler is left unbound.
 */
func (ts *TextureSystem) BindNext(t *metadata.Texture) (int32, error) {
	limit := ts.maxUnits()
	if ts.nextUnit >= limit {
		err := fmt.Errorf("draw samples more than %d textures: %w", limit, core.ErrResourceLimit)
		ts.diagnostic(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_RESOURCE_LIMIT, core.ErrResourceLimit,
			"draw samples more than %d textures, '%s' is left unbound", limit, textureName(t))
		return -1, err
	}
	id, err := ts.Resolve(t)
	if err != nil {
		return -1, err
	}
	unit := ts.nextUnit
	ts.nextUnit++
	ts.bind(unit, id)
	return int32(unit), nil
}

/** @brief Binds a backend texture to a fixed unit, skipping redundant binds. */
func (ts *TextureSystem) bind(unit uint32, id metadata.TextureID) {
	for uint32(len(ts.bound)) <= unit {
		ts.bound = append(ts.bound, 0)
	}
	if ts.bound[unit] == id {
		return
	}
	ts.bound[unit] = id
	ts.backend.TextureBind(unit, id)
}

func textureName(t *metadata.Texture) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

/** @brief Destroys the backend copy of t. */
func (ts *TextureSystem) Release(t *metadata.Texture) {
	ref, ok := ts.uploaded[t]
	if !ok {
		return
	}
	for unit, id := range ts.bound {
		if id == ref.id {
			ts.bound[unit] = 0
		}
	}
	ts.backend.TextureDestroy(ref.id)
	delete(ts.uploaded, t)
	if registered, ok := ts.registered[t.Name]; ok && registered == t && t != ts.DefaultTexture {
		delete(ts.registered, t.Name)
	}
}

/** @brief The number of textures with a backend copy. */
func (ts *TextureSystem) Count() int {
	return len(ts.uploaded)
}

/** @brief Forgets every backend texture without backend calls, used after a context loss. */
func (ts *TextureSystem) Reset() {
	ts.uploaded = make(map[*metadata.Texture]*textureReference)
	ts.bound = ts.bound[:0]
	ts.nextUnit = 0
}

func (ts *TextureSystem) Shutdown() error {
	for t, ref := range ts.uploaded {
		ts.backend.TextureDestroy(ref.id)
		delete(ts.uploaded, t)
	}
	ts.bound = ts.bound[:0]
	ts.targets = make(map[*metadata.Texture]*metadata.RenderTarget)
	return nil
}

func (ts *TextureSystem) diagnostic(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
	if ts.onDiagnostic != nil {
		ts.onDiagnostic(severity, code, err, format, args...)
		return
	}
	core.LogWarn(format, args...)
}
