package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirv() []byte {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, loaders.SpirvMagic)
	return code
}

func newCatalog(t *testing.T) (*AssetManager, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shaders"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", "shader.vert.spv"), spirv(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("ignored"), 0o644))

	am, err := NewAssetManager(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Shutdown() })
	return am, root
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, metadata.ResourceTypeShader, determineAssetType("a/b.frag.spv"))
	assert.Equal(t, metadata.ResourceTypeTexture, determineAssetType("tex.PNG"))
	assert.Equal(t, metadata.ResourceTypeTexture, determineAssetType("tex.webp"))
	assert.Equal(t, metadata.ResourceTypeModel, determineAssetType("room.obj"))
	assert.Equal(t, metadata.ResourceTypeModel, determineAssetType("room.glb"))
	assert.Equal(t, metadata.ResourceTypeNone, determineAssetType("notes.md"))
}

func TestCatalogIndexesKnownFiles(t *testing.T) {
	am, _ := newCatalog(t)
	assert.Equal(t, 1, am.Len())

	info, ok := am.Lookup("shaders/shader.vert.spv")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShader, info.Type)

	_, ok = am.Lookup("readme.txt")
	assert.False(t, ok)
}

func TestLoadShader(t *testing.T) {
	am, _ := newCatalog(t)
	code, err := am.LoadShader("shaders/shader.vert.spv")
	require.NoError(t, err)
	assert.Len(t, code, 20)

	_, err = am.LoadTexture("shaders/shader.vert.spv")
	assert.Error(t, err)

	_, err = am.LoadAsset("readme.txt")
	assert.Error(t, err)
}

func TestNewAssetManagerRejectsMissingRoot(t *testing.T) {
	_, err := NewAssetManager(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatcherQueuesChanges(t *testing.T) {
	am, root := newCatalog(t)
	require.NoError(t, am.Watch())

	target := filepath.Join(root, "shaders", "shader.frag.spv")
	require.NoError(t, os.WriteFile(target, spirv(), 0o644))

	var events []AssetEvent
	require.Eventually(t, func() bool {
		events = append(events, am.Drain()...)
		for _, e := range events {
			if e.Path == target {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	for _, e := range events {
		if e.Path == target {
			assert.Equal(t, metadata.ResourceTypeShader, e.Type)
			assert.Equal(t, AssetChanged, e.Kind)
		}
	}
	_, ok := am.Lookup(target)
	assert.True(t, ok)
}

func TestDrainCoalescesPerPath(t *testing.T) {
	am, _ := newCatalog(t)
	require.NoError(t, am.queue.Enqueue(AssetEvent{Path: "a.spv", Kind: AssetChanged}))
	require.NoError(t, am.queue.Enqueue(AssetEvent{Path: "b.png", Kind: AssetChanged}))
	require.NoError(t, am.queue.Enqueue(AssetEvent{Path: "a.spv", Kind: AssetRemoved}))

	events := am.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "a.spv", events[0].Path)
	assert.Equal(t, AssetRemoved, events[0].Kind)
	assert.Equal(t, "b.png", events[1].Path)
	assert.Empty(t, am.Drain())
}

func TestShutdownIsIdempotent(t *testing.T) {
	am, _ := newCatalog(t)
	require.NoError(t, am.Watch())
	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
}
