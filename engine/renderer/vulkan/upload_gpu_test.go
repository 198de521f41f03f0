//go:build gpu

package vulkan

import (
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gpuShaderDir = "../../../assets/shaders"

func newGPUBackend(t *testing.T) *VulkanBackend {
	t.Helper()
	vert, err := os.ReadFile(filepath.Join(gpuShaderDir, "shader.vert.spv"))
	if err != nil {
		t.Skipf("compiled shaders missing, run mage build:shaders: %s", err)
	}
	frag, err := os.ReadFile(filepath.Join(gpuShaderDir, "shader.frag.spv"))
	if err != nil {
		t.Skipf("compiled shaders missing, run mage build:shaders: %s", err)
	}

	window, err := platform.NewWindow(platform.WindowConfig{Title: "gpu test", Width: 320, Height: 240}, core.NewInput())
	require.NoError(t, err)
	t.Cleanup(window.Destroy)

	backend, err := NewVulkanBackend(window, BackendConfig{
		ApplicationName:   "gpu test",
		Validation:        true,
		MaxFramesInFlight: 2,
		VertexShader:      vert,
		FragmentShader:    frag,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Shutdown() })
	return backend
}

func TestGPUUploadRoundTrip(t *testing.T) {
	backend := newGPUBackend(t)
	uploader := backend.Uploader()

	mesh := metadata.DefaultQuad()
	vertices := mesh.VertexBytes()
	buffer, err := uploader.UploadBuffer(vertices, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	require.NoError(t, err)
	defer buffer.Destroy(backend.Context())

	read, err := uploader.ReadBuffer(buffer)
	require.NoError(t, err)
	assert.Equal(t, vertices, read[:len(vertices)])
}

func TestGPULoadSceneAndReload(t *testing.T) {
	backend := newGPUBackend(t)

	require.NoError(t, backend.LoadMesh(metadata.DefaultQuad()))
	require.NoError(t, backend.LoadTexture(nil))
	require.NoError(t, backend.LoadTexture(metadata.DefaultImage()))

	// garbage SPIR-V must leave the old pipeline in place
	assert.Error(t, backend.ReloadPipeline([]byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}))
	assert.NotNil(t, backend.pipeline)

	info := backend.Info()
	assert.NotEmpty(t, info.DeviceName)
	assert.GreaterOrEqual(t, info.ImageCount, 2)
}

func TestGPURecreateSwapchainIsStable(t *testing.T) {
	backend := newGPUBackend(t)

	before := backend.Info()
	format := backend.swapchain.ImageFormat
	require.Greater(t, before.ImageCount, 0)

	for i := 0; i < 2; i++ {
		require.NoError(t, backend.RecreateSwapchain())

		after := backend.Info()
		assert.Equal(t, before.ImageCount, after.ImageCount)
		assert.Equal(t, before.Extent, after.Extent)
		assert.Equal(t, format, backend.swapchain.ImageFormat)
		assert.Len(t, backend.swapchain.Framebuffers, after.ImageCount)
	}
}
