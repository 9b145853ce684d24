package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

type assetPattern struct {
	pattern      glob.Glob
	resourceType metadata.ResourceType
}

// Matched against slash separated paths, first match wins.
var assetPatterns = []assetPattern{
	{glob.MustCompile("**"+loaders.MATERIAL_EXTENSION, '/'), metadata.ResourceTypeMaterial},
	{glob.MustCompile("**.config.toml", '/'), metadata.ResourceTypeConfig},
	{glob.MustCompile("**.{txt,md}", '/'), metadata.ResourceTypeText},
}

// A material file re-parsed by the watcher, waiting for the render goroutine.
type materialReload struct {
	path   string
	config *metadata.MaterialConfig
	err    error
}

// Pending reloads the watcher may queue before it waits for ApplyPending.
const MAX_PENDING_RELOADS = 64

/**
 * @brief Indexes the files of an asset directory, loads them through per type
 * loaders and hot reloads material definitions.
 *
 * The fsnotify watcher runs on its own goroutine and only parses files. Live
 * materials are touched exclusively by ApplyPending, called by the render
 * goroutine at the start of a frame.
 */
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	// owned by the render goroutine
	materials map[string]*metadata.Material
	textures  func(name string) *metadata.Texture

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	pending  chan materialReload
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:    make(map[string]AssetInfo),
		loaders:   make(map[metadata.ResourceType]Loader),
		materials: make(map[string]*metadata.Material),
		fsnotify:  fsWatch,
		pending:   make(chan materialReload, MAX_PENDING_RELOADS),
		done:      make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})
	am.registerLoader(metadata.ResourceTypeConfig, &loaders.ConfigLoader{})
	am.registerLoader(metadata.ResourceTypeText, &loaders.TextLoader{})
	return am, nil
}

/**
 * @brief Indexes assetsDir and every directory below it, then starts watching them.
 */
func (am *AssetManager) Initialize(assetsDir string) error {
	fi, err := os.Stat(assetsDir)
	if err != nil {
		return fmt.Errorf("func Initialize - cannot open assets directory: %w", err)
	}
	if !fi.IsDir() {
		err := fmt.Errorf("func Initialize - '%s' is not a directory: %w", assetsDir, core.ErrInvalidConfig)
		core.LogError(err.Error())
		return err
	}
	am.root = filepath.Clean(assetsDir)

	if err := am.addRecursive(am.root); err != nil {
		return err
	}

	am.wg.Add(1)
	go am.start()

	core.LogInfo("asset manager watching '%s' (%d assets)", am.root, am.Count())
	return nil
}

/** @brief Supplies the textures material maps refer to by name. */
func (am *AssetManager) SetTextureResolver(fn func(name string) *metadata.Texture) {
	am.textures = fn
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

/** @brief The number of indexed assets. */
func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

/**
 * @brief Finds an indexed asset by path, or by file name without its type
 * extension ("brick" for "materials/brick.material.toml").
 */
func (am *AssetManager) Lookup(name string, resourceType metadata.ResourceType) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	if asset, ok := am.assets[filepath.Clean(name)]; ok && asset.Type == resourceType {
		return asset, true
	}
	if asset, ok := am.assets[filepath.Join(am.root, name)]; ok && asset.Type == resourceType {
		return asset, true
	}
	for _, asset := range am.assets {
		if asset.Type == resourceType && assetName(asset.Path) == name {
			return asset, true
		}
	}
	return AssetInfo{}, false
}

func assetName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	asset, exists := am.Lookup(name, resourceType)
	if !exists {
		return nil, fmt.Errorf("asset not found: %s (%s): %w", name, resourceType, core.ErrInvalidConfig)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	res, err := loader.Load(asset.Path, resourceType, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	asset.LastLoaded = time.Now()
	am.assets[asset.Path] = asset // Update the loaded time
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

/**
 * @brief Returns the live material defined by a material file, loading it on
 * first use. Reloads of the file are applied to the same instance.
 */
func (am *AssetManager) LoadMaterial(name string) (*metadata.Material, error) {
	if asset, ok := am.Lookup(name, metadata.ResourceTypeMaterial); ok {
		if m, loaded := am.materials[asset.Path]; loaded && !m.Disposed {
			return m, nil
		}
	}
	res, err := am.LoadAsset(name, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	m, err := metadata.NewMaterialFromConfig(res.Data.(*metadata.MaterialConfig), am.textures)
	if err != nil {
		err = fmt.Errorf("%s: %w", res.FullPath, err)
		core.LogError(err.Error())
		return nil, err
	}
	am.materials[res.FullPath] = m
	return m, nil
}

/**
 * @brief Applies the material reloads queued by the watcher to the live
 * materials and fires EVENT_CODE_MATERIAL_RELOADED for each. Must be called
 * from the goroutine that renders. Returns the number of materials updated.
 */
func (am *AssetManager) ApplyPending() int {
	applied := 0
	for {
		select {
		case r := <-am.pending:
			m, ok := am.materials[r.path]
			if !ok || m.Disposed {
				continue
			}
			if r.err != nil {
				core.LogWarn("material '%s' not reloaded, keeping the previous definition: %s", m.Name, r.err)
				continue
			}
			if err := m.ApplyConfig(r.config, am.textures); err != nil {
				core.LogWarn("material '%s' not reloaded: %s", m.Name, err)
				continue
			}
			core.LogDebug("material '%s' reloaded from %s", m.Name, r.path)
			core.EventFire(core.EVENT_CODE_MATERIAL_RELOADED, am, core.EventContext{Data: m})
			applied++
		default:
			return applied
		}
	}
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("cannot watch '%s': %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if am.handleFileEvent(e.Name) == metadata.ResourceTypeMaterial {
					if !am.queueReload(filepath.Clean(e.Name)) {
						return
					}
				}
			}
			//Can't stat a deleted directory, so just pretend that it's always a directory and
			//try to remove from the watch list...  we really have no clue if it's a directory or not...
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) queueReload(path string) bool {
	r := materialReload{path: path}
	res, err := am.loaders[metadata.ResourceTypeMaterial].Load(path, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		r.err = err
	} else {
		r.config = res.Data.(*metadata.MaterialConfig)
	}
	select {
	case am.pending <- r:
		return true
	case <-am.done:
		return false
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found on the way.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) metadata.ResourceType {
	path = filepath.Clean(path)
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[path]
	info.Path = path
	info.Type = assetType
	am.assets[path] = info
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) metadata.ResourceType {
	slashed := filepath.ToSlash(path)
	for _, p := range assetPatterns {
		if p.pattern.Match(slashed) {
			return p.resourceType
		}
	}
	return metadata.ResourceTypeNone
}

/**
 * @brief Stops the watcher. Materials already handed out stay valid.
 */
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	err := am.fsnotify.Close()
	am.wg.Wait()
	return err
}
