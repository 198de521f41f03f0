package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/containers"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// DefaultEventQueueSize bounds the number of pending change events.
const DefaultEventQueueSize = 64

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

type EventKind uint8

const (
	AssetChanged EventKind = iota
	AssetRemoved
)

// AssetEvent is a file change seen by the watcher.
type AssetEvent struct {
	Path string
	Type metadata.ResourceType
	Kind EventKind
}

// AssetManager indexes the files under a root directory by type and, when
// watching, queues change events that the main loop drains with Drain.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	watcher *fsnotify.Watcher
	queue   *containers.RingQueue[AssetEvent]
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

func NewAssetManager(root string) (*AssetManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving asset root %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "asset root %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Newf("asset root %s is not a directory", abs)
	}

	am := &AssetManager{
		root:    abs,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		queue:   containers.NewRingQueue[AssetEvent](DefaultEventQueueSize),
		done:    make(chan struct{}),
	}
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeTexture, &loaders.TextureLoader{})
	am.registerLoader(metadata.ResourceTypeModel, &loaders.ModelLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	if err := am.index(); err != nil {
		return nil, err
	}
	core.LogInfo("asset catalog at %s: %d files", abs, am.Len())
	return am, nil
}

func (am *AssetManager) Root() string {
	return am.root
}

// Resolve turns a path relative to the asset root into an absolute one.
func (am *AssetManager) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(am.root, name)
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Lookup returns the catalog entry of a path relative to the root or absolute.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[am.Resolve(name)]
	return info, ok
}

// Watch starts the fsnotify watcher over the root and every sub directory.
func (am *AssetManager) Watch() error {
	if am.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	am.watcher = w
	if err := am.watchRecursive(am.root); err != nil {
		w.Close()
		am.watcher = nil
		return err
	}

	am.wg.Add(1)
	go am.start()
	return nil
}

func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads a file with the loader registered for its type.
func (am *AssetManager) LoadAsset(name string) (*metadata.Resource, error) {
	path := am.Resolve(name)
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return nil, errors.Newf("unknown asset type: %s", name)
	}

	loader, ok := am.loaders[assetType]
	if !ok {
		return nil, errors.Newf("no loader registered for asset type %s", assetType)
	}
	res, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: assetType, LastLoaded: time.Now()}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	loader, ok := am.loaders[res.Type]
	if !ok {
		return nil
	}
	return loader.Unload(res)
}

func (am *AssetManager) LoadShader(name string) ([]byte, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return nil, err
	}
	if res.Type != metadata.ResourceTypeShader {
		return nil, errors.Newf("%s is a %s, not a shader", name, res.Type)
	}
	return res.Data.([]byte), nil
}

func (am *AssetManager) LoadTexture(name string) (*metadata.ImageData, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return nil, err
	}
	if res.Type != metadata.ResourceTypeTexture {
		return nil, errors.Newf("%s is a %s, not a texture", name, res.Type)
	}
	return res.Data.(*metadata.ImageData), nil
}

func (am *AssetManager) LoadModel(name string) (*metadata.Model, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return nil, err
	}
	if res.Type != metadata.ResourceTypeModel {
		return nil, errors.Newf("%s is a %s, not a model", name, res.Type)
	}
	return res.Data.(*metadata.Model), nil
}

// Drain returns the queued change events, at most one per path, in arrival
// order. It must be called from the main loop.
func (am *AssetManager) Drain() []AssetEvent {
	var events []AssetEvent
	seen := map[string]int{}
	for {
		e, err := am.queue.Dequeue()
		if err != nil {
			break
		}
		if i, ok := seen[e.Path]; ok {
			events[i] = e
			continue
		}
		seen[e.Path] = len(events)
		events = append(events, e)
	}
	return events
}

// Shutdown stops the watcher goroutine. It is safe to call more than once.
func (am *AssetManager) Shutdown() error {
	if am.closed {
		return nil
	}
	am.closed = true
	if am.watcher == nil {
		return nil
	}
	close(am.done)
	am.wg.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.watcher.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.watcher.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("watching %s: %s", e.Name, err)
			}
		}
		return
	}

	assetType := determineAssetType(e.Name)
	if assetType == metadata.ResourceTypeNone {
		return
	}

	event := AssetEvent{Path: e.Name, Type: assetType, Kind: AssetChanged}
	switch {
	case e.Has(fsnotify.Remove), e.Has(fsnotify.Rename):
		am.removeAsset(e.Name)
		event.Kind = AssetRemoved
	case e.Has(fsnotify.Create), e.Has(fsnotify.Write):
		am.indexFile(e.Name, assetType)
	default:
		return
	}

	if err := am.queue.Enqueue(event); err != nil {
		core.LogWarn("dropping asset event for %s: %s", e.Name, err)
	}
}

func (am *AssetManager) index() error {
	return filepath.WalkDir(am.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if t := determineAssetType(path); t != metadata.ResourceTypeNone {
			am.indexFile(path, t)
		}
		return nil
	})
}

// watchRecursive adds the directory and all its sub directories to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if t := determineAssetType(walkPath); t != metadata.ResourceTypeNone {
				am.indexFile(walkPath, t)
			}
			return nil
		}
		return am.watcher.Add(walkPath)
	})
}

func (am *AssetManager) indexFile(path string, assetType metadata.ResourceType) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{Path: path, Type: assetType}
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeTexture
	case ".obj", ".gltf", ".glb":
		return metadata.ResourceTypeModel
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
