package systems

import (
	"io"
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/headless"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func newQuad(name string) *metadata.Geometry {
	g := metadata.NewGeometry(name)
	g.SetAttribute(metadata.ATTRIBUTE_POSITION, metadata.NewBufferAttribute([]float32{
		-0.5, -0.5, 0, 0.5, -0.5, 0, 0.5, 0.5, 0, -0.5, 0.5, 0,
	}, 3))
	g.SetAttribute(metadata.ATTRIBUTE_NORMAL, metadata.NewBufferAttribute([]float32{
		0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1,
	}, 3))
	g.SetAttribute(metadata.ATTRIBUTE_UV, metadata.NewBufferAttribute([]float32{
		0, 0, 1, 0, 1, 1, 0, 1,
	}, 2))
	g.SetIndex([]uint32{0, 1, 2, 0, 2, 3})
	return g
}

// A camera at the origin looking down -Z with a 90 degree square frustum, so
// at z=-10 the visible half extent is 10.
func newTestCamera() *components.Camera {
	return components.NewPerspectiveCamera(math.K_HALF_PI, 1, 0.1, 100)
}

func testRendererConfig() *core.RendererConfig {
	config := core.DefaultConfig().Renderer
	return &config
}

func newTestRenderer(t *testing.T, config *core.RendererConfig, options ...headless.Option) (*RendererSystem, *headless.HeadlessRenderer) {
	t.Helper()
	if config == nil {
		config = testRendererConfig()
	}
	backend := headless.New(options...)
	r, err := NewRendererSystem(config, backend)
	require.NoError(t, err)
	require.NoError(t, r.Initialize("test", 64, 64))
	t.Cleanup(func() {
		_ = r.Shutdown()
	})
	return r, backend
}

func addDrawable(t *testing.T, g *scene.Graph, name string, position math.Vec3, geometry *metadata.Geometry, materials ...*metadata.Material) *scene.Node {
	t.Helper()
	h, err := g.CreateDrawable(name, scene.InvalidNode, scene.NewDrawable(geometry, materials...))
	require.NoError(t, err)
	n, err := g.Node(h)
	require.NoError(t, err)
	n.SetPosition(position)
	return n
}

func addLight(t *testing.T, g *scene.Graph, name string, position math.Vec3, light *metadata.Light) *scene.Node {
	t.Helper()
	h, err := g.CreateNode(name, scene.InvalidNode)
	require.NoError(t, err)
	n, err := g.Node(h)
	require.NoError(t, err)
	n.Light = light
	n.SetPosition(position)
	return n
}

func hasDiagnostic(diagnostics []metadata.Diagnostic, code metadata.DiagnosticCode) bool {
	for _, d := range diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}
