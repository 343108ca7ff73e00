// Package vkgl emulates Vulkan command buffer and queue semantics on top of
// an immediate mode GL style call table.
//
// # Overview
//
// Vulkan records commands ahead of time and submits them in batches. GL
// executes every call at once against a single implicit context. vkgl
// bridges the two: command buffers record into compact word lists
// (package encoding) without touching the backend, and queues replay
// those lists on the goroutine that owns the context (package replay),
// through a state cache that drops redundant calls.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/vkgl"
//	    _ "github.com/gogpu/vkgl/backend/soft"
//	)
//
//	dev, err := vkgl.NewDevice()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	pool, _ := dev.CreateCommandPool(vkgl.PoolCreateResetCommandBuffer)
//	bufs, _ := pool.AllocateCommandBuffers(vkgl.LevelPrimary, 1)
//	cb := bufs[0]
//
//	cb.Begin(vkgl.BeginInfo{})
//	cb.CmdBeginRenderPass(vkgl.RenderPassBeginInfo{...})
//	cb.CmdSetViewport(0, []vkgl.Viewport{{Width: 640, Height: 480, MaxDepth: 1}})
//	cb.CmdDraw(3, 1, 0, 0)
//	cb.CmdEndRenderPass()
//	cb.End()
//
//	fence, _ := dev.CreateFence(false)
//	q := dev.Queue(0, 0)
//	q.Submit([]vkgl.SubmitInfo{{CommandBuffers: bufs}}, fence)
//	fence.Wait(vkgl.Forever)
//
// # Command Buffer States
//
// A buffer moves Initial, Recording, Executable, Pending and back. It
// becomes Invalid when an object it references is destroyed or a
// secondary it executes is freed. Commands recorded in the wrong state
// fail with an error that wraps ErrorValidationFailed and one of the
// Err* sentinels, and leave the list unchanged.
//
// # Coordinate System
//
// Viewports and scissors use the Vulkan top-left origin. They are flipped
// at replay against the height of the bound framebuffer:
//
//	y' = fbHeight - (height + y)
//
// # Backends
//
// Backends live under backend/ and register themselves with the backend
// registry on import: soft (pure Go rasterizer targets), trace (records
// calls, for tests) and gles (a wgpu GL context, registered explicitly).
// A table can also be injected with WithProcs.
//
// # Synchronization
//
// Fences map onto backend sync objects inserted after each submission.
// Binary semaphores are signaled as soon as their batch has been
// replayed, since every queue shares one context and runs in call order.
// With WithPresenter, fences and presentation go through a wgpu HAL queue.
package vkgl

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
