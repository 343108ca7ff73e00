// Package gles adapts an OpenGL ES 3.x / desktop GL context loaded by
// wgpu's hal/gles/gl bindings into a backend call table.
//
// The gl bindings expose the subset of entry points wgpu itself needs.
// Calls outside that subset are taken from Config.Extra when present and
// otherwise emulated where the emulation is exact: indexed viewport and
// scissor 0, base-instance 0 draws, color clears of draw buffer 0, and
// fence syncs backed by Finish. Anything else raises INVALID_OPERATION
// through GetError, which the replay engine reports after the list.
//
// Warnings go to backend.Logger, so vkgl.SetLogger reaches this package.
// SetLogger overrides that.
//
// The package does not self-register because opening a context needs a
// window system binding. Call Register from the code that owns one:
//
//	gles.Register(func() (gles.Config, error) {
//		ctx, err := gles.Load(eglGetProcAddress)
//		if err != nil {
//			return gles.Config{}, err
//		}
//		return gles.Config{GL: ctx, SwapBuffers: swap}, nil
//	})
package gles
