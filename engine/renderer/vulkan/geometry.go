package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// VulkanGeometry is a mesh resident in device local memory.
type VulkanGeometry struct {
	Name         string
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	VertexCount  uint32
	IndexCount   uint32
	SubMeshes    []metadata.SubMesh
}

func GeometryUpload(uploader *Uploader, mesh *metadata.Mesh) (*VulkanGeometry, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	vertices, err := uploader.UploadBuffer(mesh.VertexBytes(), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	indices, err := uploader.UploadBuffer(mesh.IndexBytes(), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertices.Destroy(uploader.context)
		return nil, err
	}
	return &VulkanGeometry{
		Name:         mesh.Name,
		VertexBuffer: vertices,
		IndexBuffer:  indices,
		VertexCount:  uint32(len(mesh.Vertices)),
		IndexCount:   uint32(len(mesh.Indices)),
		SubMeshes:    append([]metadata.SubMesh(nil), mesh.SubMeshes...),
	}, nil
}

// Draw binds the buffers and issues one indexed draw over the whole index
// buffer. Submeshes tile it and their indices are already rebased, so the
// vertex offset is always zero.
func (g *VulkanGeometry) Draw(cmd *VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(cmd.Handle, 0, 1, []vk.Buffer{g.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd.Handle, g.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cmd.Handle, g.IndexCount, 1, 0, 0, 0)
}

func (g *VulkanGeometry) Destroy(context *VulkanContext) {
	if g.IndexBuffer != nil {
		g.IndexBuffer.Destroy(context)
		g.IndexBuffer = nil
	}
	if g.VertexBuffer != nil {
		g.VertexBuffer.Destroy(context)
		g.VertexBuffer = nil
	}
}

// VulkanTexture is a sampled image with its sampler.
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler
}

func TextureUpload(uploader *Uploader, img *metadata.ImageData) (*VulkanTexture, error) {
	if img == nil || len(img.Pixels) == 0 {
		img = metadata.DefaultImage()
	}
	image, err := uploader.UploadImage(img, TextureFormat)
	if err != nil {
		return nil, err
	}
	sampler, err := SamplerCreate(uploader.context, metadata.DefaultTextureMap())
	if err != nil {
		image.Destroy(uploader.context)
		return nil, err
	}
	return &VulkanTexture{Image: image, Sampler: sampler}, nil
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Sampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, t.Sampler, context.Allocator)
		t.Sampler = nil
	}
	if t.Image != nil {
		t.Image.Destroy(context)
		t.Image = nil
	}
}
