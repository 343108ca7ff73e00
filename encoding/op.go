// Package encoding provides the command list format used to capture
// Vulkan-style command buffer recordings for later replay.
//
// A List is a flat stream of 32-bit words. Every command starts with one
// header word that packs the operation and the number of payload words
// that follow it:
//
//	bits 31..24  Op
//	bits 23..0   payload length in words
//
// The header length always matches the trailing payload, so a List can be
// walked without interpreting payloads. Payloads are fixed-layout and
// word-aligned. Variable-length arrays are encoded as an inline count
// followed by that many elements.
//
// The format is process-local. There is no versioning and lists are never
// persisted.
package encoding

import "fmt"

// Op identifies the kind of an encoded command.
type Op uint8

// Op constants. Each comment documents the payload layout in words.
// "lo/hi" pairs are 64-bit values split into two words, "f" marks float32
// bit patterns.
const (
	// OpBindPipeline binds a graphics or compute pipeline.
	// Data: bindPoint, program, vertexArray, topology, stencilFuncFront,
	// stencilFuncBack, strideCount, strides...
	OpBindPipeline Op = iota + 1

	// OpSetViewport sets dynamic viewports.
	// Data: first, count, count*(x, y, width, height, minDepth, maxDepth)f
	OpSetViewport

	// OpSetScissor sets dynamic scissor rectangles.
	// Data: first, count, count*(x, y, width, height)
	OpSetScissor

	// OpSetLineWidth sets the rasterized line width.
	// Data: width f
	OpSetLineWidth

	// OpSetDepthBias sets depth bias factors.
	// Data: constantFactor f, clamp f, slopeFactor f
	OpSetDepthBias

	// OpSetBlendConstants sets the blend constant color.
	// Data: r f, g f, b f, a f
	OpSetBlendConstants

	// OpSetStencilCompareMask sets the stencil compare mask.
	// Data: faceMask, mask
	OpSetStencilCompareMask

	// OpSetStencilWriteMask sets the stencil write mask.
	// Data: faceMask, mask
	OpSetStencilWriteMask

	// OpSetStencilReference sets the stencil reference value.
	// Data: faceMask, reference
	OpSetStencilReference

	// OpBindDescriptorSets binds opaque descriptor set handles.
	// Data: bindPoint, firstSet, setCount, dynamicCount,
	// setCount*(lo, hi), dynamicCount*offset
	OpBindDescriptorSets

	// OpBindIndexBuffer binds the index buffer.
	// Data: buffer, offset lo, offset hi, indexFormat
	OpBindIndexBuffer

	// OpBindVertexBuffers binds vertex buffers.
	// Data: first, count, count*(buffer, offset lo, offset hi)
	OpBindVertexBuffers

	// OpDraw draws non-indexed primitives.
	// Data: vertexCount, instanceCount, firstVertex, firstInstance
	OpDraw

	// OpDrawIndexed draws indexed primitives.
	// Data: indexCount, instanceCount, firstIndex, vertexOffset, firstInstance
	OpDrawIndexed

	// OpDrawIndirect draws with parameters sourced from a buffer.
	// Data: buffer, offset lo, offset hi, drawCount, stride
	OpDrawIndirect

	// OpDrawIndexedIndirect draws indexed with parameters sourced from a buffer.
	// Data: buffer, offset lo, offset hi, drawCount, stride
	OpDrawIndexedIndirect

	// OpDispatch dispatches compute work groups.
	// Data: x, y, z
	OpDispatch

	// OpDispatchIndirect dispatches with group counts sourced from a buffer.
	// Data: buffer, offset lo, offset hi
	OpDispatchIndirect

	// OpCopyBuffer copies regions between buffers.
	// Data: src, dst, count, count*(srcOffset lo, hi, dstOffset lo, hi, size lo, hi)
	OpCopyBuffer

	// OpUpdateBuffer writes inline data into a buffer.
	// Data: dst, offset lo, offset hi, byteLen, ceil(byteLen/4) data words
	OpUpdateBuffer

	// OpFillBuffer fills a buffer range with a repeated word.
	// Data: dst, offset lo, offset hi, size lo, size hi, value
	OpFillBuffer

	// OpBlitImage copies and scales regions between framebuffer-backed images.
	// Data: srcFramebuffer, srcHeight, dstFramebuffer, dstHeight, filter, count,
	// count*(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1)
	OpBlitImage

	// OpClearColorImage clears a color image outside a render pass.
	// Data: framebuffer, height, r f, g f, b f, a f
	OpClearColorImage

	// OpClearDepthStencilImage clears a depth/stencil image outside a render pass.
	// Data: framebuffer, height, aspectMask, depth f, stencil
	OpClearDepthStencilImage

	// OpClearAttachments clears regions of attachments in the current subpass.
	// Data: attachmentCount, attachmentCount*(aspectMask, drawBuffer, v0, v1, v2, v3),
	// rectCount, rectCount*(x, y, width, height)
	OpClearAttachments

	// OpPipelineBarrier orders memory accesses.
	// Data: srcStageMask, dstStageMask, count, count*(srcAccess, dstAccess)
	OpPipelineBarrier

	// OpPushConstants updates push constant storage.
	// Data: stageFlags, offset, byteLen, ceil(byteLen/4) data words
	OpPushConstants

	// OpBeginRenderPass begins a render pass instance.
	// Data: framebuffer, width, height, areaX, areaY, areaWidth, areaHeight,
	// attachmentCount, attachmentCount*(aspectMask, slot, loadOp, stencilLoadOp,
	// v0, v1, v2, v3), drawBufferCount, drawBuffers...
	OpBeginRenderPass

	// OpNextSubpass advances to the next subpass.
	// Data: drawBufferCount, drawBuffers...
	OpNextSubpass

	// OpEndRenderPass ends the current render pass instance.
	// Data: discardCount, discardAttachments...
	OpEndRenderPass

	// OpExecuteCommands replays secondary command lists.
	// Data: count, count*listIndex
	OpExecuteCommands

	// OpBeginQuery begins a query.
	// Data: target, query
	OpBeginQuery

	// OpEndQuery ends the active query of a target.
	// Data: target
	OpEndQuery

	// OpWriteTimestamp records a timestamp into a query.
	// Data: query
	OpWriteTimestamp

	// OpBeginDebugLabel opens a debug label region.
	// Data: byteLen, ceil(byteLen/4) UTF-8 words
	OpBeginDebugLabel

	// OpEndDebugLabel closes the innermost debug label region.
	// Data: none
	OpEndDebugLabel

	opCount
)

var opNames = [opCount]string{
	OpBindPipeline:           "BindPipeline",
	OpSetViewport:            "SetViewport",
	OpSetScissor:             "SetScissor",
	OpSetLineWidth:           "SetLineWidth",
	OpSetDepthBias:           "SetDepthBias",
	OpSetBlendConstants:      "SetBlendConstants",
	OpSetStencilCompareMask:  "SetStencilCompareMask",
	OpSetStencilWriteMask:    "SetStencilWriteMask",
	OpSetStencilReference:    "SetStencilReference",
	OpBindDescriptorSets:     "BindDescriptorSets",
	OpBindIndexBuffer:        "BindIndexBuffer",
	OpBindVertexBuffers:      "BindVertexBuffers",
	OpDraw:                   "Draw",
	OpDrawIndexed:            "DrawIndexed",
	OpDrawIndirect:           "DrawIndirect",
	OpDrawIndexedIndirect:    "DrawIndexedIndirect",
	OpDispatch:               "Dispatch",
	OpDispatchIndirect:       "DispatchIndirect",
	OpCopyBuffer:             "CopyBuffer",
	OpUpdateBuffer:           "UpdateBuffer",
	OpFillBuffer:             "FillBuffer",
	OpBlitImage:              "BlitImage",
	OpClearColorImage:        "ClearColorImage",
	OpClearDepthStencilImage: "ClearDepthStencilImage",
	OpClearAttachments:       "ClearAttachments",
	OpPipelineBarrier:        "PipelineBarrier",
	OpPushConstants:          "PushConstants",
	OpBeginRenderPass:        "BeginRenderPass",
	OpNextSubpass:            "NextSubpass",
	OpEndRenderPass:          "EndRenderPass",
	OpExecuteCommands:        "ExecuteCommands",
	OpBeginQuery:             "BeginQuery",
	OpEndQuery:               "EndQuery",
	OpWriteTimestamp:         "WriteTimestamp",
	OpBeginDebugLabel:        "BeginDebugLabel",
	OpEndDebugLabel:          "EndDebugLabel",
}

// fixedSize holds the payload length of fixed-layout ops, -1 for ops with
// inline arrays.
var fixedSize = [opCount]int{
	OpBindPipeline:           -1,
	OpSetViewport:            -1,
	OpSetScissor:             -1,
	OpSetLineWidth:           1,
	OpSetDepthBias:           3,
	OpSetBlendConstants:      4,
	OpSetStencilCompareMask:  2,
	OpSetStencilWriteMask:    2,
	OpSetStencilReference:    2,
	OpBindDescriptorSets:     -1,
	OpBindIndexBuffer:        4,
	OpBindVertexBuffers:      -1,
	OpDraw:                   4,
	OpDrawIndexed:            5,
	OpDrawIndirect:           5,
	OpDrawIndexedIndirect:    5,
	OpDispatch:               3,
	OpDispatchIndirect:       3,
	OpCopyBuffer:             -1,
	OpUpdateBuffer:           -1,
	OpFillBuffer:             6,
	OpBlitImage:              -1,
	OpClearColorImage:        6,
	OpClearDepthStencilImage: 5,
	OpClearAttachments:       -1,
	OpPipelineBarrier:        -1,
	OpPushConstants:          -1,
	OpBeginRenderPass:        -1,
	OpNextSubpass:            -1,
	OpEndRenderPass:          -1,
	OpExecuteCommands:        -1,
	OpBeginQuery:             2,
	OpEndQuery:               1,
	OpWriteTimestamp:         1,
	OpBeginDebugLabel:        -1,
	OpEndDebugLabel:          0,
}

// String returns the command name.
func (o Op) String() string {
	if o.Valid() {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Valid reports whether o is a known operation.
func (o Op) Valid() bool {
	return o > 0 && o < opCount
}

// FixedSize returns the payload length in words for ops with a fixed
// layout. The second result is false for ops carrying inline arrays.
func (o Op) FixedSize() (int, bool) {
	if !o.Valid() {
		return 0, false
	}
	n := fixedSize[o]
	return n, n >= 0
}

const (
	opShift   = 24
	maxLength = 1<<opShift - 1
)

// packHeader builds a header word. Payloads that do not fit the length
// field are a programming error.
func packHeader(op Op, n int) uint32 {
	if n < 0 || n > maxLength {
		panic(fmt.Sprintf("encoding: %v payload of %d words does not fit the header", op, n))
	}
	return uint32(op)<<opShift | uint32(n)
}

func unpackHeader(w uint32) (Op, int) {
	return Op(w >> opShift), int(w & maxLength)
}
