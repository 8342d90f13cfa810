// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/toy2d/model"
	vk "github.com/vulkan-go/vulkan"
)

// CullMode selects which triangle faces the rasterizer drops.
type CullMode int

// Cull modes understood by the pipeline.
const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

func (c CullMode) flags() vk.CullModeFlags {
	switch c {
	case CullBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	case CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

// NewRenderProcess creates the pipeline layout, the render pass for the
// swapchain format and the graphics pipeline.
func NewRenderProcess(ctx *Context, swapchain *Swapchain, shader *Shader, descriptors *DescriptorSetManager, cull CullMode) (rp *RenderProcess, err error) {
	rp = &RenderProcess{
		device:      ctx.Device(),
		swapchain:   swapchain,
		shader:      shader,
		descriptors: descriptors,
		cull:        cull,
	}
	defer func() {
		if err != nil {
			rp.Release()
			rp = nil
		}
	}()

	if err = rp.createPipelineLayout(); err != nil {
		return
	}
	if err = rp.createPipelineCache(); err != nil {
		return
	}
	if err = rp.createRenderPass(); err != nil {
		return
	}
	if err = rp.createGraphicsPipeline(); err != nil {
		return
	}
	return rp, nil
}

// RenderProcess owns the render pass, the pipeline layout and the
// graphics pipeline.
type RenderProcess struct {
	device      vk.Device
	swapchain   *Swapchain
	shader      *Shader
	descriptors *DescriptorSetManager
	cull        CullMode

	layout     vk.PipelineLayout
	cache      vk.PipelineCache
	renderPass vk.RenderPass
	pipeline   vk.Pipeline
}

func (rp *RenderProcess) createPipelineLayout() error {
	layouts := rp.descriptors.Layouts()
	pcr := []vk.PushConstantRange{{
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(model.PushConstant{})),
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}

	plci := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(layouts)),
		PSetLayouts:            layouts,
		PushConstantRangeCount: uint32(len(pcr)),
		PPushConstantRanges:    pcr,
	}

	var pipelineLayout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(rp.device, &plci, nil, &pipelineLayout), "vk.CreatePipelineLayout", InitializationFailed); err != nil {
		return err
	}
	rp.layout = pipelineLayout
	return nil
}

func (rp *RenderProcess) createPipelineCache() error {
	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if err := check(vk.CreatePipelineCache(rp.device, &pcci, nil, &cache), "vk.CreatePipelineCache", InitializationFailed); err != nil {
		return err
	}
	rp.cache = cache
	return nil
}

func (rp *RenderProcess) createRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         rp.swapchain.Info().Format.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentRef)),
		PColorAttachments:    colorAttachmentRef,
	}

	// the acquire semaphore is waited at color output, so the first write
	// to the image has to wait there too
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if err := check(vk.CreateRenderPass(rp.device, &rpci, nil, &renderPass), "vk.CreateRenderPass", InitializationFailed); err != nil {
		return err
	}
	rp.renderPass = renderPass
	return nil
}

func (rp *RenderProcess) createGraphicsPipeline() error {
	extent := rp.swapchain.Info().Extent
	vertexAttributeDescriptions := model.VertexAttributeDescriptions()
	vertexBindingDescriptions := model.VertexBindingDescriptions()
	stages := rp.shader.Stages()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexAttributeDescriptionCount: uint32(len(vertexAttributeDescriptions)),
			PVertexAttributeDescriptions:    vertexAttributeDescriptions,
			VertexBindingDescriptionCount:   uint32(len(vertexBindingDescriptions)),
			PVertexBindingDescriptions:      vertexBindingDescriptions,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			PViewports: []vk.Viewport{{
				X:        0,
				Y:        0,
				Width:    float32(extent.Width),
				Height:   float32(extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			}},
			ScissorCount: 1,
			PScissors: []vk.Rect2D{{
				Offset: vk.Offset2D{X: 0, Y: 0},
				Extent: extent,
			}},
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    rp.cull.flags(),
			FrontFace:   vk.FrontFaceClockwise,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorOne,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorOne,
				DstAlphaBlendFactor: vk.BlendFactorZero,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      0xF,
			}},
		},
		Layout:     rp.layout,
		RenderPass: rp.renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := check(vk.CreateGraphicsPipelines(rp.device, rp.cache, uint32(len(gpci)), gpci, nil, pipelines), "vk.CreateGraphicsPipelines", InitializationFailed); err != nil {
		return err
	}
	rp.pipeline = pipelines[0]
	return nil
}

// RecreateRenderPass destroys and rebuilds the render pass, for when the
// swapchain format may have changed.
func (rp *RenderProcess) RecreateRenderPass() error {
	if rp.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(rp.device, rp.renderPass, nil)
		rp.renderPass = vk.NullRenderPass
	}
	return rp.createRenderPass()
}

// RecreateGraphicsPipeline destroys and rebuilds the pipeline against the
// current swapchain extent and render pass.
func (rp *RenderProcess) RecreateGraphicsPipeline() error {
	if rp.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(rp.device, rp.pipeline, nil)
		rp.pipeline = vk.NullPipeline
	}
	return rp.createGraphicsPipeline()
}

// RenderPass returns the render pass.
func (rp *RenderProcess) RenderPass() vk.RenderPass {
	return rp.renderPass
}

// Layout returns the pipeline layout.
func (rp *RenderProcess) Layout() vk.PipelineLayout {
	return rp.layout
}

// Pipeline returns the graphics pipeline.
func (rp *RenderProcess) Pipeline() vk.Pipeline {
	return rp.pipeline
}

// Release destroys the pipeline, cache, render pass and layout.
func (rp *RenderProcess) Release() {
	if rp.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(rp.device, rp.pipeline, nil)
	}
	if rp.cache != vk.NullPipelineCache {
		vk.DestroyPipelineCache(rp.device, rp.cache, nil)
	}
	if rp.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(rp.device, rp.renderPass, nil)
	}
	if rp.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(rp.device, rp.layout, nil)
	}
}
