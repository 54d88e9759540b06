package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required BytesPerRow alignment of
// texture-to-buffer copies.
const copyPitchAlignment = 256

// ReadTexture copies a 4 byte per texel texture back to the CPU and returns
// tightly packed rows. BGRA textures are converted to RGBA.
//
// The texture must have CopySrc usage and be in the render attachment
// state. ReadTexture blocks until the device is idle.
func ReadTexture(device hal.Device, queue hal.Queue, texture hal.Texture, format gputypes.TextureFormat, width, height uint32) ([]byte, error) {
	bytesPerRow := width * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(height)

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer device.DestroyBuffer(staging)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create readback encoder: %w", err)
	}
	defer encoder.Destroy()
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("gpu: begin readback encoding: %w", err)
	}

	// After a render pass the texture is in the attachment layout;
	// the copy needs it as a transfer source.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(texture, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: height},
		TextureBase:  hal.ImageCopyTexture{Texture: texture, MipLevel: 0},
		Size:         hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("gpu: end readback encoding: %w", err)
	}
	queue.SetSwapchainSuppressed(true)
	defer queue.SetSwapchainSuppressed(false)
	if _, err := queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		device.FreeCommandBuffer(cmd)
		return nil, fmt.Errorf("gpu: submit readback: %w", err)
	}
	if err := device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("gpu: wait for readback: %w", err)
	}
	device.FreeCommandBuffer(cmd)

	raw, err := ReadBuffer(device, staging, stagingSize)
	if err != nil {
		return nil, err
	}

	return unpackRows(raw, format, width, height, alignedBytesPerRow), nil
}

// unpackRows strips the row padding of a staging copy laid out with pitch
// bytes per row and swaps BGRA texels to RGBA. Rows missing from raw are
// left zero.
func unpackRows(raw []byte, format gputypes.TextureFormat, width, height, pitch uint32) []byte {
	bytesPerRow := uint64(width) * 4
	out := make([]byte, bytesPerRow*uint64(height))
	for row := uint64(0); row < uint64(height); row++ {
		start := row * uint64(pitch)
		if start+bytesPerRow > uint64(len(raw)) {
			break
		}
		copy(out[row*bytesPerRow:(row+1)*bytesPerRow], raw[start:start+bytesPerRow])
	}
	if format == gputypes.TextureFormatBGRA8Unorm || format == gputypes.TextureFormatBGRA8UnormSrgb {
		for i := 0; i+3 < len(out); i += 4 {
			out[i], out[i+2] = out[i+2], out[i]
		}
	}
	return out
}

// ReadBuffer maps size bytes of a MapRead buffer and returns a copy.
// The GPU must have finished writing buf.
func ReadBuffer(device hal.Device, buf hal.Buffer, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	m, err := device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("gpu: map buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafeBytes(m, size))
	if err := device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("gpu: unmap buffer: %w", err)
	}
	return out, nil
}

func unsafeBytes(m hal.BufferMapping, size uint64) []byte {
	if m.Ptr == nil || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(m.Ptr), size)
}
