package systems

import (
	"hash/fnv"

	"github.com/chewxy/math32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

// Packed float counts per light in the light uniform arrays.
const (
	// direction xyz, colour rgb
	DIRECTIONAL_LIGHT_STRIDE = 6
	// position xyz, colour rgb, distance, decay
	POINT_LIGHT_STRIDE = 8
	// position xyz, direction xyz, colour rgb, distance, decay, cone cos, penumbra cos
	SPOT_LIGHT_STRIDE = 13
	// direction xyz, sky rgb, ground rgb
	HEMISPHERE_LIGHT_STRIDE = 9
	// position xyz, half width, half height, colour rgb
	RECT_AREA_LIGHT_STRIDE = 8
)

/**
 * @brief The per frame light uniforms and the counts that shape programs.
 * Version only moves when the counts change, so a stable light setup never
 * forces materials to look their program up again.
 */
type LightsState struct {
	Ambient      math.Vec3
	Counts       [metadata.LIGHT_TYPE_COUNT]int
	ShadowCounts [metadata.LIGHT_TYPE_COUNT]int

	Directional []float32
	Point       []float32
	Spot        []float32
	Hemisphere  []float32
	RectArea    []float32

	/** @brief Shadow casting lights in upload order, truncated to the shadow limit. */
	Shadows []*LightEntry

	Version uint64
	hash    uint64
}

type LightsSystemConfig struct {
	MaxLights       uint32
	MaxShadowLights uint32
}

/**
 * @brief Turns the lights collected by the render list builder into packed uniform
 * arrays, enforcing the light limits.
 */
type LightsSystem struct {
	config  *LightsSystemConfig
	state   LightsState
	entries []*LightEntry

	onDiagnostic func(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{})
}

func NewLightsSystem(config *LightsSystemConfig) (*LightsSystem, error) {
	if config == nil {
		config = &LightsSystemConfig{MaxLights: 16, MaxShadowLights: 4}
	}
	return &LightsSystem{config: config}, nil
}

func (ls *LightsSystem) State() *LightsState {
	return &ls.state
}

func lightOrder(a, b *LightEntry) int {
	sa, sb := a.Light.CastsShadow(), b.Light.CastsShadow()
	if sa != sb {
		if sa {
			return -1
		}
		return 1
	}
	return 0
}

/**
 * @brief Rebuilds the light state from the lights of a render list. Shadow
 * casting lights come first so the shadow arrays line up with the light arrays.
 */
func (ls *LightsSystem) Setup(lights []LightEntry) *LightsState {
	ls.entries = ls.entries[:0]
	for i := range lights {
		ls.entries = append(ls.entries, &lights[i])
	}
	slices.SortStableFunc(ls.entries, lightOrder)

	if limit := int(ls.config.MaxLights); limit > 0 && len(ls.entries) > limit {
		ls.diagnostic(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_RESOURCE_LIMIT, core.ErrResourceLimit,
			"%d lights exceed the maximum of %d, the rest is ignored", len(ls.entries), limit)
		ls.entries = ls.entries[:limit]
	}

	s := &ls.state
	s.Ambient = math.NewVec3Zero()
	s.Counts = [metadata.LIGHT_TYPE_COUNT]int{}
	s.ShadowCounts = [metadata.LIGHT_TYPE_COUNT]int{}
	s.Directional = s.Directional[:0]
	s.Point = s.Point[:0]
	s.Spot = s.Spot[:0]
	s.Hemisphere = s.Hemisphere[:0]
	s.RectArea = s.RectArea[:0]
	s.Shadows = s.Shadows[:0]

	shadowBudget := int(ls.config.MaxShadowLights)
	truncated := 0
	for _, entry := range ls.entries {
		l := entry.Light
		color := l.Color.MulScalar(l.Intensity)
		s.Counts[l.Type]++
		switch l.Type {
		case metadata.LIGHT_TYPE_AMBIENT:
			s.Ambient = s.Ambient.Add(color)
		case metadata.LIGHT_TYPE_DIRECTIONAL:
			d := entry.Direction()
			s.Directional = append(s.Directional, d.X, d.Y, d.Z, color.X, color.Y, color.Z)
		case metadata.LIGHT_TYPE_POINT:
			p := entry.Position()
			s.Point = append(s.Point, p.X, p.Y, p.Z, color.X, color.Y, color.Z, l.Distance, l.Decay)
		case metadata.LIGHT_TYPE_SPOT:
			p := entry.Position()
			d := entry.Direction()
			coneCos := math32.Cos(l.Angle)
			penumbraCos := math32.Cos(l.Angle * (1 - l.Penumbra))
			s.Spot = append(s.Spot, p.X, p.Y, p.Z, d.X, d.Y, d.Z, color.X, color.Y, color.Z, l.Distance, l.Decay, coneCos, penumbraCos)
		case metadata.LIGHT_TYPE_HEMISPHERE:
			up := math.NewVec3Up().TransformDirection(entry.World).Normalized()
			ground := l.GroundColor.MulScalar(l.Intensity)
			s.Hemisphere = append(s.Hemisphere, up.X, up.Y, up.Z, color.X, color.Y, color.Z, ground.X, ground.Y, ground.Z)
		case metadata.LIGHT_TYPE_RECT_AREA:
			p := entry.Position()
			s.RectArea = append(s.RectArea, p.X, p.Y, p.Z, l.Width*0.5, l.Height*0.5, color.X, color.Y, color.Z)
		}

		if l.CastsShadow() {
			if len(s.Shadows) >= shadowBudget {
				truncated++
				continue
			}
			s.Shadows = append(s.Shadows, entry)
			s.ShadowCounts[l.Type]++
		}
	}
	if truncated > 0 {
		ls.diagnostic(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_RESOURCE_LIMIT, core.ErrResourceLimit,
			"%d shadow casting lights exceed the maximum of %d, %d render without shadows", len(s.Shadows)+truncated, shadowBudget, truncated)
	}

	if h := s.countsHash(); h != s.hash || s.Version == 0 {
		s.hash = h
		s.Version++
	}
	return s
}

func (s *LightsState) countsHash() uint64 {
	var buf [2 * metadata.LIGHT_TYPE_COUNT]byte
	for i := 0; i < int(metadata.LIGHT_TYPE_COUNT); i++ {
		buf[i] = byte(s.Counts[i])
		buf[int(metadata.LIGHT_TYPE_COUNT)+i] = byte(s.ShadowCounts[i])
	}
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

func (ls *LightsSystem) diagnostic(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
	if ls.onDiagnostic != nil {
		ls.onDiagnostic(severity, code, err, format, args...)
		return
	}
	core.LogWarn(format, args...)
}
