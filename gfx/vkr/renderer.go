// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"time"
	"unsafe"

	"github.com/devblok/toy2d/model"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultFenceTimeout bounds the wait on a frame slot's fence.
const DefaultFenceTimeout = 5 * time.Second

// RendererConfiguration holds the per-frame parameters of the renderer.
type RendererConfiguration struct {
	MaxFlightCount uint32
	FenceTimeout   time.Duration
	ClearColor     [4]float32
	QuadScale      float32
}

// NewRenderer creates the frame slots, uploads the quad geometry and
// the initial uniforms. The renderer draws to a surface of the given size.
func NewRenderer(ctx *Context, swapchain *Swapchain, process *RenderProcess, commands *CommandManager, descriptors *DescriptorSetManager, width, height uint32, cfg RendererConfiguration) (r *Renderer, err error) {
	if cfg.MaxFlightCount == 0 {
		return nil, initError("vkr.NewRenderer", errors.New("MaxFlightCount must be at least 1"))
	}
	if cfg.FenceTimeout <= 0 {
		cfg.FenceTimeout = DefaultFenceTimeout
	}
	if cfg.QuadScale == 0 {
		cfg.QuadScale = model.QuadScale
	}

	r = &Renderer{
		ctx:         ctx,
		swapchain:   swapchain,
		process:     process,
		commands:    commands,
		descriptors: descriptors,
		uploads:     NewUploadQueue(commands, ctx.GraphicsQueue()),
		cfg:         cfg,
		width:       width,
		height:      height,
		ring:        newFrameRing(cfg.MaxFlightCount),
		frames:      make([]frame, cfg.MaxFlightCount),
		uniform: model.Uniform{
			Projection: glm.Ident4(),
			View:       glm.Ident4(),
		},
		color:        model.White,
		captureFrame: -1,
	}
	defer func() {
		if err != nil {
			r.Release()
			r = nil
		}
	}()

	cmds, err := commands.CreateCommandBuffers(cfg.MaxFlightCount)
	if err != nil {
		return
	}
	sets, err := descriptors.AllocBufferSets(cfg.MaxFlightCount)
	if err != nil {
		commands.FreeCmds(cmds...)
		return
	}

	for i := range r.frames {
		r.frames[i].cmd, r.frames[i].set = cmds[i], sets[i]
	}

	mvpSize := uint(unsafe.Sizeof(model.Uniform{}))
	colorSize := uint(unsafe.Sizeof(model.Color{}))
	for i := range r.frames {
		f := &r.frames[i]
		if err = f.createSync(ctx.Device()); err != nil {
			return
		}
		if err = f.createUniforms(ctx, mvpSize, colorSize); err != nil {
			return
		}
		descriptors.WriteBufferSet(f.set, f.mvp, f.color)
	}

	if err = r.createGeometry(); err != nil {
		return
	}

	if err = r.queueUniform(); err != nil {
		return
	}
	if err = r.queueColor(); err != nil {
		return
	}
	if err = r.uploads.Flush(); err != nil {
		return
	}

	log.WithFields(log.Fields{
		"frames":  cfg.MaxFlightCount,
		"timeout": cfg.FenceTimeout,
	}).Debug("renderer ready")
	return r, nil
}

// Renderer records, submits and presents frames. It must be driven from a
// single goroutine.
type Renderer struct {
	ctx         *Context
	swapchain   *Swapchain
	process     *RenderProcess
	commands    *CommandManager
	descriptors *DescriptorSetManager
	uploads     *UploadQueue
	cfg         RendererConfiguration

	width, height uint32

	ring   frameRing
	frames []frame

	vertices *Buffer
	indices  *Buffer

	uniform model.Uniform
	color   model.Color

	imageIndex uint32
	recording  bool
	stale      bool

	capture       *Buffer
	captureNext   bool
	captureFrame  int
	captureExtent vk.Extent2D
	captureFormat vk.Format
}

// createGeometry uploads the quad vertices and indices into device local
// buffers, through temporary staging buffers.
func (r *Renderer) createGeometry() (err error) {
	vertexData := model.VerticesBytes(model.QuadVertices)
	indexData := model.IndicesBytes(model.QuadIndices)

	if r.vertices, err = r.createResident(vertexData, vk.BufferUsageVertexBufferBit); err != nil {
		return
	}
	r.indices, err = r.createResident(indexData, vk.BufferUsageIndexBufferBit)
	return
}

func (r *Renderer) createResident(data []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	staging, err := NewBuffer(r.ctx, uint(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), HostVisible)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	if err := staging.Write(data); err != nil {
		return nil, err
	}

	resident, err := NewBuffer(r.ctx, uint(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|usage), DeviceLocal)
	if err != nil {
		return nil, err
	}
	if err := CopyBuffer(r.commands, r.ctx.GraphicsQueue(), staging, resident, uint(len(data))); err != nil {
		resident.Release()
		return nil, err
	}
	return resident, nil
}

// queueUniform writes the uniform into every slot's staging buffer and
// schedules the copies to the resident buffers.
func (r *Renderer) queueUniform() error {
	data := r.uniform.Bytes()
	for i := range r.frames {
		f := &r.frames[i]
		if err := f.mvpStaging.Write(data); err != nil {
			return err
		}
		r.uploads.Enqueue(f.mvpStaging, f.mvp, uint(len(data)))
	}
	return nil
}

func (r *Renderer) queueColor() error {
	data := r.color.Bytes()
	for i := range r.frames {
		f := &r.frames[i]
		if err := f.colorStaging.Write(data); err != nil {
			return err
		}
		r.uploads.Enqueue(f.colorStaging, f.color, uint(len(data)))
	}
	return nil
}

// SetProject sets an orthographic projection with an identity view. The
// change is visible from the next frame on.
func (r *Renderer) SetProject(right, left, bottom, top, far, near float32) error {
	r.uniform.Projection = model.Ortho(right, left, bottom, top, far, near)
	r.uniform.View = glm.Ident4()
	return r.queueUniform()
}

// SetDrawColor sets the tint every texture is multiplied with. Called
// between StartRender and EndRender it applies to the frame being recorded.
func (r *Renderer) SetDrawColor(color model.Color) error {
	r.color = color
	return r.queueColor()
}

// DrawColor returns the current tint.
func (r *Renderer) DrawColor() model.Color {
	return r.color
}

// Flush submits pending uniform uploads right away instead of waiting for
// the next StartRender.
func (r *Renderer) Flush() error {
	return r.uploads.Flush()
}

// MaxFlightCount returns the number of frame slots.
func (r *Renderer) MaxFlightCount() uint32 {
	return r.ring.count()
}

// Recording reports whether a frame is between StartRender and EndRender.
func (r *Renderer) Recording() bool {
	return r.recording
}

func (r *Renderer) waitFrame(f *frame) error {
	err := check(vk.WaitForFences(r.ctx.Device(), 1, []vk.Fence{f.fence}, vk.True, uint64(r.cfg.FenceTimeout.Nanoseconds())), "vk.WaitForFences", DeviceLost)
	if err != nil {
		return err
	}
	r.ring.completed()
	return nil
}

// StartRender waits for the current slot, acquires the next swapchain image
// and begins recording. A SwapchainOutOfDate error means the swapchain was
// rebuilt and the frame should be skipped.
func (r *Renderer) StartRender() error {
	if r.recording {
		return errors.New("vkr.Renderer.StartRender(): frame already started")
	}

	f := &r.frames[r.ring.current]
	if err := r.waitFrame(f); err != nil {
		return err
	}

	if !r.swapchain.Ready() {
		if err := r.Rebuild(r.width, r.height); err != nil {
			return err
		}
	}
	if err := r.uploads.Flush(); err != nil {
		return err
	}

	ret := vk.AcquireNextImage(r.ctx.Device(), r.swapchain.Handle(), uint64(r.cfg.FenceTimeout.Nanoseconds()), f.imageAvailable, vk.NullFence, &r.imageIndex)
	switch ret {
	case vk.Success:
	case vk.Suboptimal:
		r.stale = true
	case vk.ErrorOutOfDate:
		if err := r.Rebuild(r.width, r.height); err != nil {
			return err
		}
		return &Error{Kind: SwapchainOutOfDate, Op: "vk.AcquireNextImage", Result: ret}
	default:
		return check(ret, "vk.AcquireNextImage", DeviceLost)
	}

	if err := check(vk.ResetCommandBuffer(f.cmd, 0), "vk.ResetCommandBuffer", DeviceLost); err != nil {
		return r.abandonFrame(f, err)
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vk.BeginCommandBuffer(f.cmd, &cbbi), "vk.BeginCommandBuffer", AllocationFailed); err != nil {
		return r.abandonFrame(f, err)
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(r.cfg.ClearColor[:])
	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.process.RenderPass(),
		Framebuffer: r.swapchain.Framebuffer(r.imageIndex),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: r.swapchain.Info().Extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(f.cmd, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(f.cmd, vk.PipelineBindPointGraphics, r.process.Pipeline())

	r.recording = true
	return nil
}

// DrawTexture draws texture on the quad centered at x, y and rotated by
// rotation degrees. Calls outside StartRender and EndRender are ignored.
func (r *Renderer) DrawTexture(x, y, rotation float32, texture *Texture) {
	if !r.recording || texture == nil {
		return
	}
	f := &r.frames[r.ring.current]

	vk.CmdBindVertexBuffers(f.cmd, 0, 1, []vk.Buffer{r.vertices.Get()}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(f.cmd, r.indices.Get(), 0, vk.IndexTypeUint32)

	sets := []vk.DescriptorSet{f.set, texture.Set()}
	vk.CmdBindDescriptorSets(f.cmd, vk.PipelineBindPointGraphics, r.process.Layout(), 0, uint32(len(sets)), sets, 0, nil)

	pc := model.PushConstant{
		Model: model.QuadModel(x, y, rotation, r.cfg.QuadScale),
	}
	vk.CmdPushConstants(f.cmd, r.process.Layout(), vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))
	vk.CmdDrawIndexed(f.cmd, uint32(len(model.QuadIndices)), 1, 0, 0, 0)
}

// EndRender finishes recording, submits the frame and presents it.
// Out-of-date or suboptimal presentation rebuilds the swapchain.
func (r *Renderer) EndRender() error {
	if !r.recording {
		return nil
	}
	r.recording = false

	slot := r.ring.current
	f := &r.frames[slot]
	vk.CmdEndRenderPass(f.cmd)

	captured := false
	if r.captureNext {
		var err error
		if captured, err = r.recordCapture(f); err != nil {
			vk.EndCommandBuffer(f.cmd)
			return r.abandonFrame(f, err)
		}
	}

	if err := check(vk.EndCommandBuffer(f.cmd), "vk.EndCommandBuffer", AllocationFailed); err != nil {
		return r.abandonFrame(f, err)
	}

	// uniforms changed while recording belong to this frame
	if err := r.uploads.Flush(); err != nil {
		return r.abandonFrame(f, err)
	}

	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{f.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{f.cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{f.renderFinished},
	}}
	if err := check(vk.ResetFences(r.ctx.Device(), 1, []vk.Fence{f.fence}), "vk.ResetFences", DeviceLost); err != nil {
		return r.abandonFrame(f, err)
	}
	if err := r.ring.submitted(); err != nil {
		return r.abandonFrame(f, err)
	}
	if err := check(vk.QueueSubmit(r.ctx.GraphicsQueue(), 1, submitInfo, f.fence), "vk.QueueSubmit", DeviceLost); err != nil {
		r.ring.completed()
		return r.abandonFrame(f, err)
	}
	if captured {
		r.captureNext = false
		r.captureFrame = int(slot)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{r.swapchain.Handle()},
		PImageIndices:      []uint32{r.imageIndex},
	}
	ret := vk.QueuePresent(r.ctx.PresentQueue(), &presentInfo)
	r.ring.advance()

	switch ret {
	case vk.Success:
		if r.stale {
			return r.Rebuild(r.width, r.height)
		}
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return r.Rebuild(r.width, r.height)
	}
	return check(ret, "vk.QueuePresent", PresentFailed)
}

// Rebuild recreates the swapchain for the given size together with the
// render pass, the pipeline and the framebuffers. Buffers, textures and
// descriptor sets are kept.
func (r *Renderer) Rebuild(width, height uint32) error {
	if err := r.ctx.WaitIdle(); err != nil {
		return err
	}
	// every submitted frame is done after the wait
	for i := range r.ring.inFlight {
		r.ring.inFlight[i] = false
	}

	if err := r.swapchain.Recreate(width, height); err != nil {
		return err
	}
	if err := r.process.RecreateRenderPass(); err != nil {
		return err
	}
	if err := r.process.RecreateGraphicsPipeline(); err != nil {
		return err
	}
	if err := r.swapchain.InitFramebuffers(r.process.RenderPass()); err != nil {
		return err
	}

	r.width, r.height = width, height
	r.stale = false
	if r.captureNext {
		if err := r.prepareCapture(); err != nil {
			log.WithError(err).Warn("capture buffer not resized, capture postponed")
		}
	}

	log.WithFields(log.Fields{
		"width":  r.swapchain.Info().Extent.Width,
		"height": r.swapchain.Info().Extent.Height,
	}).Info("swapchain rebuilt")
	return nil
}

// abandonFrame gives up on a frame after its image was acquired. An empty
// submission consumes the acquire semaphore and signals the slot fence, and
// the swapchain is rebuilt to take the acquired image back. cause is
// returned.
func (r *Renderer) abandonFrame(f *frame, cause error) error {
	r.recording = false
	device := r.ctx.Device()

	if vk.GetFenceStatus(device, f.fence) == vk.Success {
		if err := check(vk.ResetFences(device, 1, []vk.Fence{f.fence}), "vk.ResetFences", DeviceLost); err != nil {
			log.WithError(err).Error("abandoning frame")
			return cause
		}
	}
	submitInfo := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.imageAvailable},
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)},
	}}
	if err := check(vk.QueueSubmit(r.ctx.GraphicsQueue(), 1, submitInfo, f.fence), "vk.QueueSubmit", DeviceLost); err != nil {
		log.WithError(err).Error("abandoning frame")
		return cause
	}
	if err := r.Rebuild(r.width, r.height); err != nil {
		log.WithError(err).Warn("rebuild after abandoned frame")
	}
	log.WithError(cause).Warn("frame abandoned")
	return cause
}

// Release destroys the frame slots and the quad buffers. The device must be
// idle.
func (r *Renderer) Release() {
	device := r.ctx.Device()
	releaseBuffer(&r.capture)
	for i := range r.frames {
		f := &r.frames[i]
		if r.uploads != nil {
			r.uploads.Drop(f.mvpStaging)
			r.uploads.Drop(f.colorStaging)
		}
		if f.cmd != nil {
			r.commands.FreeCmds(f.cmd)
			f.cmd = nil
		}
		f.release(device)
	}
	r.frames = nil
	releaseBuffer(&r.vertices)
	releaseBuffer(&r.indices)
}
