// Package scene turns a loaded glTF 1.0 model into a running scene: the node
// hierarchy, one joint instance and bone texture per skinned node, the clips
// that animate them, and the per-frame draws.
package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-gltf/engine/technique"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	ErrNilModel    = errors.New("scene requires a model")
	ErrNilRenderer = errors.New("scene requires a renderer")
)

// SkinnedInstance is one skinned node together with its private joints, its
// bone texture and the clips allowed to pose it.
type SkinnedInstance struct {
	Node     *Node
	Joints   *skeleton.Instance
	Skin     *skeleton.Skin
	Clips    []*animator.Clip
	Skeleton []int // instance indices of the duplicated skeleton roots
}

// Stats counts what the last DrawInfos call produced.
type Stats struct {
	Draws   int
	Skinned int
	Culled  int
	Skipped int
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	model    *loader.Model
	r        renderer.Renderer
	cam      camera.Camera
	log      *zap.Logger
	animOpts []animator.AnimatorBuilderOption

	culling          bool
	autoFrame        bool
	parallelSkinning bool
	computePool      worker.DynamicWorkerPool
	computeWorkers   int

	built    bool
	buildErr error

	roots     []*Node
	nodes     map[string]*Node
	arena     *skeleton.Arena
	instances []*SkinnedInstance
	byNode    map[string]*SkinnedInstance
	textures  map[string]renderer.TextureHandle
	clips     *animator.ClipStore
	anim      animator.Animator
	assembler *technique.Assembler
	bounds    common.Bounds
	primBound map[primKey]common.Bounds

	programErr error

	stats Stats
}

type primKey struct {
	mesh  string
	index int
}

// Scene drives one model: it builds the runtime structures once the model's
// resources are in, evaluates animation each frame and produces the draws.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether the engine should update and draw the scene.
	Active() bool

	// SetActive sets whether the engine should update and draw the scene.
	SetActive(active bool)

	// Model returns the model the scene is built from.
	Model() *loader.Model

	// Renderer returns the renderer the scene allocates from and draws through.
	Renderer() renderer.Renderer

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Animator returns the playback state, nil until the scene is built.
	Animator() animator.Animator

	// Build constructs nodes, joint instances, skins, textures and clips.
	// It succeeds once and later calls return the first result.
	//
	// Returns:
	//   - error: loader.ErrNotReady while resources are loading, the model's
	//     load error, or a build error
	Build() error

	// Ready reports whether the scene was built successfully.
	Ready() bool

	// Err returns the build failure, nil while building is still possible.
	Err() error

	// Evaluate poses every skinned instance at time t and refreshes its
	// bone texture. Each instance plays the animator's active clips that are
	// allowed to drive it.
	//
	// Parameters:
	//   - t: the unwrapped clip time in seconds
	//
	// Returns:
	//   - error: loader.ErrNotReady before Build, or a texture upload error
	Evaluate(t float32) error

	// Update builds the scene once the model is ready, then advances the
	// animator by dt and evaluates at the new clock. While the model is
	// still loading it does nothing.
	//
	// Parameters:
	//   - dt: the frame delta in seconds
	//
	// Returns:
	//   - error: a build or evaluation error
	Update(dt float32) error

	// Reset rewinds the animator and returns the camera to its fitted pose.
	Reset()

	// Roots returns the root nodes of the displayed scene.
	Roots() []*Node

	// Node returns the node with the given id.
	Node(id string) (*Node, bool)

	// NodeWorld returns the world matrix of a node.
	//
	// Parameters:
	//   - id: the node id
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	//   - error: ErrUnknownNode if no displayed node has the id
	NodeWorld(id string) (mgl32.Mat4, error)

	// Clips returns the clip names in order.
	Clips() []string

	// Instances returns the skinned instances in pre-order of their nodes.
	Instances() []*SkinnedInstance

	// Skins returns the bound skins in the order of Instances.
	Skins() []*skeleton.Skin

	// Bounds returns the world-space box of the bind-pose geometry.
	Bounds() common.Bounds

	// DrawInfos assembles one draw per visible primitive with the camera's
	// current matrices. Primitives that fail to assemble are logged and skipped.
	//
	// Returns:
	//   - []*renderer.DrawInfo: the draws, in node pre-order
	//   - error: loader.ErrNotReady before Build
	DrawInfos() ([]*renderer.DrawInfo, error)

	// Draw submits DrawInfos to the renderer. Must be called between the
	// renderer's BeginFrame and EndFrame. An unbuilt scene draws nothing.
	Draw() error

	// Stats returns the counters of the last DrawInfos call.
	Stats() Stats

	// ProgramErr returns the technique/program mismatches found at build
	// time. They are informational; the scene still draws.
	ProgramErr() error
}

var _ Scene = &scene{}

// NewScene creates a scene over a model. The model does not need to be
// ready; the scene builds itself on the first Update after it is.
//
// Parameters:
//   - name: the name of the scene
//   - model: the model to display
//   - r: the renderer to allocate textures from and draw through
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
//   - error: ErrNilModel or ErrNilRenderer
func NewScene(name string, model *loader.Model, r renderer.Renderer, options ...SceneBuilderOption) (Scene, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	if r == nil {
		return nil, ErrNilRenderer
	}

	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		active:         true,
		model:          model,
		r:              r,
		log:            logger.Named("scene"),
		culling:        true,
		computeWorkers: max(runtime.NumCPU()-1, 1),
		nodes:          make(map[string]*Node),
		byNode:         make(map[string]*SkinnedInstance),
		textures:       make(map[string]renderer.TextureHandle),
		primBound:      make(map[primKey]common.Bounds),
		bounds:         common.EmptyBounds(),
	}
	for _, option := range options {
		option(s)
	}
	if s.cam == nil {
		s.cam = camera.NewCamera(camera.WithController(camera.NewOrbitController()))
		s.autoFrame = true
	}
	if s.parallelSkinning && s.computePool == nil {
		s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	}
	s.log = s.log.With(zap.String("scene", name))
	return s, nil
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Model() *loader.Model { return s.model }

func (s *scene) Renderer() renderer.Renderer { return s.r }

func (s *scene) Camera() camera.Camera { return s.cam }

func (s *scene) Animator() animator.Animator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anim
}

func (s *scene) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.built && s.buildErr == nil
}

func (s *scene) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buildErr
}

func (s *scene) Build() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked()
}

// buildLocked runs the build once the model has settled. Caller must hold the write lock.
func (s *scene) buildLocked() error {
	if s.built {
		return s.buildErr
	}
	select {
	case <-s.model.Resolved():
	default:
		return loader.ErrNotReady
	}

	s.built = true
	if err := s.model.Err(); err != nil {
		s.buildErr = fmt.Errorf("model %q: %w", s.model.Name, err)
		return s.buildErr
	}
	if err := s.build(); err != nil {
		s.buildErr = err
		s.log.Error("scene build failed", zap.Error(err))
		return err
	}

	s.log.Info("scene built",
		zap.Int("nodes", len(s.nodes)),
		zap.Int("joints", s.arena.Len()),
		zap.Int("instances", len(s.instances)),
		zap.Int("clips", s.clips.Len()),
		zap.Int("textures", len(s.textures)))
	return nil
}

func (s *scene) build() error {
	doc := s.model.Document

	rootIDs, err := doc.DefaultSceneRoots()
	if err != nil {
		return err
	}
	if s.roots, err = BuildNodes(doc.Nodes, rootIDs, s.log); err != nil {
		return err
	}
	for _, root := range s.roots {
		root.Walk(func(n *Node) bool {
			s.nodes[n.ID] = n
			return true
		})
	}

	if s.arena, err = skeleton.BuildArena(doc.Nodes, s.log.Named("skeleton")); err != nil {
		return err
	}

	if err := s.uploadTextures(); err != nil {
		return err
	}

	if s.clips, err = animator.BuildClips(doc.Animations, s.model.Accessors, s.log.Named("animator")); err != nil {
		return err
	}
	opts := append([]animator.AnimatorBuilderOption{animator.WithLogger(s.log.Named("animator"))}, s.animOpts...)
	s.anim = animator.NewAnimator(s.clips, opts...)

	for _, root := range s.roots {
		var walkErr error
		root.Walk(func(n *Node) bool {
			if n.Skin == "" || walkErr != nil {
				return walkErr == nil
			}
			walkErr = s.bindInstance(n)
			return walkErr == nil
		})
		if walkErr != nil {
			return walkErr
		}
	}
	s.assignClips()

	s.assembler = technique.NewAssembler(doc, s.model.Accessors,
		technique.WithTextures(s.textures),
		technique.WithLogger(s.log.Named("technique")))
	if err := s.checkPrograms(); err != nil {
		return err
	}

	s.computeBounds()
	if ctrl := s.cam.Controller(); s.autoFrame && ctrl != nil && !s.bounds.Empty() {
		ctrl.Fit(s.bounds.Center(), s.bounds.Radius(), s.cam.Fov())
		r := s.bounds.Radius()
		s.cam.SetClip(max(r/100, 0.001), r*100)
		s.cam.Update()
	}
	return nil
}

// bindInstance duplicates the skeletons of a skinned node into a private
// instance and binds its skin to them.
func (s *scene) bindInstance(n *Node) error {
	doc := s.model.Document
	gskin, ok := doc.Skins[n.Skin]
	if !ok {
		s.log.Warn("node references unknown skin", zap.String("node", n.ID), zap.String("skin", n.Skin))
		return nil
	}

	inst := skeleton.NewInstance(n.ID)
	var roots []int
	for _, id := range n.Skeletons {
		idx, ok := s.arena.Index(id)
		if !ok {
			s.log.Warn("skeleton root is not a joint", zap.String("node", n.ID), zap.String("skeleton", id))
			continue
		}
		root, err := s.arena.Duplicate(idx, inst, skeleton.NoParent)
		if err != nil {
			return fmt.Errorf("node %q skeleton %q: %w", n.ID, id, err)
		}
		roots = append(roots, root)
	}

	spec := skeleton.SkinSpec{
		ID:              n.Skin,
		JointNames:      gskin.JointNames,
		BindShapeMatrix: common.Mat4Or(gskin.BindShapeMatrix, mgl32.Ident4()),
	}
	if gskin.InverseBindMatrices != "" {
		ibm, err := s.model.Accessors.Matrices(gskin.InverseBindMatrices)
		if err != nil {
			return fmt.Errorf("skin %q inverse bind matrices: %w", n.Skin, err)
		}
		spec.InverseBindMatrices = ibm
	}

	skin, err := skeleton.Bind(spec, inst, roots, s.r, s.log.Named("skeleton"))
	if err != nil {
		return fmt.Errorf("node %q: %w", n.ID, err)
	}

	si := &SkinnedInstance{Node: n, Joints: inst, Skin: skin, Skeleton: roots}
	s.instances = append(s.instances, si)
	s.byNode[n.ID] = si
	return nil
}

// assignClips decides which clips may pose which instance. A clip listed in
// some node's extras.animations drives only instances at or under that
// node; any other clip drives every instance holding one of its targets.
func (s *scene) assignClips() {
	rooted := make(map[string][]*Node)
	for _, root := range s.roots {
		root.Walk(func(n *Node) bool {
			for _, id := range n.Animations {
				rooted[id] = append(rooted[id], n)
			}
			return true
		})
	}

	for _, name := range s.clips.Names() {
		clip, _ := s.clips.Clip(name)
		targets := clip.Targets()
		for _, si := range s.instances {
			if owners, ok := rooted[name]; ok && !underAny(si.Node, owners) {
				continue
			}
			for _, id := range targets {
				if _, ok := si.Joints.Index(id); ok {
					si.Clips = append(si.Clips, clip)
					break
				}
			}
		}
	}
}

func underAny(n *Node, ancestors []*Node) bool {
	for _, a := range ancestors {
		if n.IsDescendantOf(a) {
			return true
		}
	}
	return false
}

// uploadTextures converts each document texture's image to RGBA8 and
// uploads it. Textures whose image is missing are logged and skipped.
func (s *scene) uploadTextures() error {
	doc := s.model.Document
	if len(doc.Textures) == 0 {
		return nil
	}
	assets, err := s.model.Assets.Wait(context.Background())
	if err != nil {
		return err
	}

	for _, id := range common.SortedKeys(doc.Textures) {
		tex := doc.Textures[id]
		img, ok := assets.Image(loader.ImageAssetName(tex.Source))
		if !ok {
			s.log.Warn("texture references unknown image", zap.String("texture", id), zap.String("image", tex.Source))
			continue
		}
		rgba := toRGBA(img)
		b := rgba.Bounds()
		handle, err := s.r.AllocateTexture(renderer.TextureConfig{
			Label:  "texture:" + id,
			Width:  b.Dx(),
			Height: b.Dy(),
			Format: renderer.TextureFormatRGBA8,
		})
		if err != nil {
			return fmt.Errorf("texture %q: %w", id, err)
		}
		if err := handle.Update(rgba.Pix); err != nil {
			return fmt.Errorf("texture %q: %w", id, err)
		}
		s.textures[id] = handle
	}
	return nil
}

// checkPrograms compares each technique against the GLSL interface of its
// program. Mismatches are only logged.
func (s *scene) checkPrograms() error {
	doc := s.model.Document
	if len(doc.Techniques) == 0 {
		return nil
	}
	assets, err := s.model.Assets.Wait(context.Background())
	if err != nil {
		return err
	}
	sources := make(map[string][]byte, len(doc.Shaders))
	for id := range doc.Shaders {
		if src, ok := assets.Binary(loader.ShaderAssetName(id)); ok {
			sources[id] = src
		}
	}
	s.programErr = technique.CheckPrograms(doc, sources, s.log.Named("technique"))
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// computeBounds accumulates the world-space box of every primitive from
// its POSITION accessor's min and max.
func (s *scene) computeBounds() {
	doc := s.model.Document
	for _, root := range s.roots {
		root.Walk(func(n *Node) bool {
			for _, meshID := range n.Meshes {
				mesh, ok := doc.Meshes[meshID]
				if !ok {
					continue
				}
				for i, prim := range mesh.Primitives {
					acc, ok := doc.Accessors[prim.Attributes["POSITION"]]
					if !ok {
						continue
					}
					local, ok := common.BoundsOf(acc.Min, acc.Max)
					if !ok {
						continue
					}
					s.primBound[primKey{meshID, i}] = local
					s.bounds = s.bounds.Union(local.Transform(n.World))
				}
			}
			return true
		})
	}
}

func (s *scene) Evaluate(t float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked(t)
}

func (s *scene) evaluateLocked(t float32) error {
	if !s.built || s.buildErr != nil {
		return loader.ErrNotReady
	}

	active := make(map[*animator.Clip]bool)
	for _, c := range s.anim.Active() {
		active[c] = true
	}
	evaluate := func(si *SkinnedInstance) error {
		clips := make([]*animator.Clip, 0, len(si.Clips))
		for _, c := range si.Clips {
			if active[c] {
				clips = append(clips, c)
			}
		}
		return animator.EvaluateClips(clips, t, si.Joints, []*skeleton.Skin{si.Skin})
	}

	if !s.parallelSkinning || len(s.instances) < 2 {
		for _, si := range s.instances {
			if err := evaluate(si); err != nil {
				return err
			}
		}
		return nil
	}

	// Each instance owns its joints and texture, so instances pose in parallel.
	// The WaitGroup is the frame barrier.
	var wg sync.WaitGroup
	errs := make([]error, len(s.instances))
	for i, si := range s.instances {
		wg.Add(1)
		idx, inst := i, si
		s.computePool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = evaluate(inst)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *scene) Update(dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buildLocked(); err != nil {
		if errors.Is(err, loader.ErrNotReady) {
			return nil
		}
		return err
	}
	s.cam.Update()
	return s.evaluateLocked(s.anim.Advance(dt))
}

func (s *scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anim != nil {
		s.anim.Seek(0)
	}
	if ctrl := s.cam.Controller(); ctrl != nil {
		ctrl.Reset()
	}
	s.cam.Update()
}

func (s *scene) Roots() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Node(nil), s.roots...)
}

func (s *scene) Node(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

func (s *scene) NodeWorld(id string) (mgl32.Mat4, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return mgl32.Ident4(), fmt.Errorf("%q: %w", id, ErrUnknownNode)
	}
	return n.World, nil
}

func (s *scene) Clips() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clips == nil {
		return nil
	}
	return s.clips.Names()
}

func (s *scene) Instances() []*SkinnedInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*SkinnedInstance(nil), s.instances...)
}

func (s *scene) Skins() []*skeleton.Skin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skins := make([]*skeleton.Skin, len(s.instances))
	for i, si := range s.instances {
		skins[i] = si.Skin
	}
	return skins
}

func (s *scene) Bounds() common.Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

func (s *scene) DrawInfos() ([]*renderer.DrawInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawInfosLocked()
}

func (s *scene) drawInfosLocked() ([]*renderer.DrawInfo, error) {
	if !s.built || s.buildErr != nil {
		return nil, loader.ErrNotReady
	}

	view, proj := s.cam.View(), s.cam.Projection()
	frustum := common.ExtractFrustum(proj.Mul4(view))
	doc := s.model.Document

	var stats Stats
	var draws []*renderer.DrawInfo
	for _, root := range s.roots {
		root.Walk(func(n *Node) bool {
			var skin *technique.Skinning
			if si, ok := s.byNode[n.ID]; ok {
				skin = &technique.Skinning{
					Texture:         si.Skin.Texture(),
					Size:            si.Skin.TextureSize(),
					BindShapeMatrix: si.Skin.BindShapeMatrix(),
				}
			}
			frame := technique.Frame{Model: n.World, View: view, Projection: proj}

			for _, meshID := range n.Meshes {
				mesh, ok := doc.Meshes[meshID]
				if !ok {
					s.log.Warn("node references unknown mesh", zap.String("node", n.ID), zap.String("mesh", meshID))
					continue
				}
				for i, prim := range mesh.Primitives {
					// Skinned geometry moves away from its bind-pose box, so it is never culled.
					if b, ok := s.primBound[primKey{meshID, i}]; ok && s.culling && skin == nil &&
						!frustum.ContainsBounds(b.Transform(n.World)) {
						stats.Culled++
						continue
					}
					info, err := s.assembler.Assemble(technique.PrimitiveRef{
						Node: n.ID, Mesh: meshID, Index: i, Primitive: prim,
					}, frame, skin)
					if err != nil {
						s.log.Warn("skipping primitive", zap.String("node", n.ID),
							zap.String("mesh", meshID), zap.Int("primitive", i), zap.Error(err))
						stats.Skipped++
						continue
					}
					draws = append(draws, info)
					stats.Draws++
					if info.Skinned() {
						stats.Skinned++
					}
				}
			}
			return true
		})
	}
	s.stats = stats
	return draws, nil
}

func (s *scene) Draw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.built || s.buildErr != nil {
		return nil
	}
	draws, err := s.drawInfosLocked()
	if err != nil {
		return err
	}
	for _, d := range draws {
		if err := s.r.SubmitDraw(d); err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *scene) ProgramErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.programErr
}
