package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyBufferAlignment is the alignment of buffer sizes and WriteBuffer
// lengths.
const copyBufferAlignment = 4

// Buffer pool errors.
var (
	// ErrBufferSlotOutOfRange is returned when WriteAt skips a slot.
	ErrBufferSlotOutOfRange = errors.New("gpu: buffer slot out of range")
)

// sizedBuffer is one pooled GPU buffer.
type sizedBuffer struct {
	buffer   hal.Buffer
	capacity uint64 // allocated bytes, multiple of copyBufferAlignment
	size     uint64 // bytes written by the last WriteAt
}

// BufferPool is an append-only sequence of GPU buffers addressed by
// position. Slot i holds the data of the i-th mesh of the most recent frame.
// A slot is overwritten in place when the new data fits, and replaced by a
// larger buffer when it does not. The pool never shrinks.
type BufferPool struct {
	device hal.Device
	queue  hal.Queue
	label  string
	usage  gputypes.BufferUsage
	retire *retireQueue

	slots []sizedBuffer
}

// NewBufferPool creates an empty pool whose buffers have the given usage
// plus CopyDst. Replaced buffers are handed to retire.
func NewBufferPool(device hal.Device, queue hal.Queue, label string, usage gputypes.BufferUsage, retire *retireQueue) *BufferPool {
	return &BufferPool{
		device: device,
		queue:  queue,
		label:  label,
		usage:  usage | gputypes.BufferUsageCopyDst,
		retire: retire,
	}
}

// WriteAt writes data into slot index. index may be at most Len(); writing
// at Len() appends a slot. It reports whether a new buffer was created.
func (p *BufferPool) WriteAt(index int, data []byte) (bool, error) {
	if index < 0 || index > len(p.slots) {
		return false, fmt.Errorf("%w: slot %d, pool length %d", ErrBufferSlotOutOfRange, index, len(p.slots))
	}
	size := uint64(len(data))
	padded := alignUp(size)

	if index < len(p.slots) {
		slot := &p.slots[index]
		if padded <= slot.capacity {
			if err := p.write(slot.buffer, data); err != nil {
				return false, err
			}
			slot.size = size
			return false, nil
		}
	}

	buf, capacity, err := p.create(index, data)
	if err != nil {
		return false, err
	}
	if index == len(p.slots) {
		p.slots = append(p.slots, sizedBuffer{})
	} else {
		old := p.slots[index].buffer
		p.retire.add(func() { p.device.DestroyBuffer(old) })
		slogger().Debug("buffer pool: slot reallocated",
			"pool", p.label, "slot", index,
			"old_capacity", p.slots[index].capacity, "new_capacity", capacity)
	}
	p.slots[index] = sizedBuffer{buffer: buf, capacity: capacity, size: size}
	return true, nil
}

// create allocates a buffer sized to data and uploads it.
func (p *BufferPool) create(index int, data []byte) (hal.Buffer, uint64, error) {
	capacity := max(alignUp(uint64(len(data))), copyBufferAlignment)
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("%s_%d", p.label, index),
		Size:  capacity,
		Usage: p.usage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("gpu: create %s buffer (%d bytes): %w", p.label, capacity, err)
	}
	if err := p.write(buf, data); err != nil {
		p.device.DestroyBuffer(buf)
		return nil, 0, err
	}
	return buf, capacity, nil
}

// write uploads data at offset 0, padding the length to the copy alignment.
func (p *BufferPool) write(buf hal.Buffer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if rem := len(data) % copyBufferAlignment; rem != 0 {
		padded := make([]byte, len(data)+copyBufferAlignment-rem)
		copy(padded, data)
		data = padded
	}
	if err := p.queue.WriteBuffer(buf, 0, data); err != nil {
		return fmt.Errorf("gpu: write %s buffer: %w", p.label, err)
	}
	return nil
}

// Len returns the number of slots.
func (p *BufferPool) Len() int { return len(p.slots) }

// Buffer returns the buffer in slot i.
func (p *BufferPool) Buffer(i int) hal.Buffer { return p.slots[i].buffer }

// Size returns the number of bytes last written to slot i.
func (p *BufferPool) Size(i int) uint64 { return p.slots[i].size }

// Capacity returns the allocated size of slot i.
func (p *BufferPool) Capacity(i int) uint64 { return p.slots[i].capacity }

// Destroy releases every buffer immediately. The caller must have waited for
// the device to become idle. Safe to call multiple times.
func (p *BufferPool) Destroy() {
	for _, s := range p.slots {
		p.device.DestroyBuffer(s.buffer)
	}
	p.slots = nil
}

func alignUp(n uint64) uint64 {
	return (n + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
}
