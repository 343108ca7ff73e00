//go:build linux && !(js && wasm)

package gles

import "github.com/gogpu/wgpu/hal/gles/gl"

var _ GL = (*gl.Context)(nil)

// Load resolves the context's entry points through getProcAddr, which is
// usually eglGetProcAddress or glXGetProcAddress.
func Load(getProcAddr gl.ProcAddressFunc) (*gl.Context, error) {
	ctx := new(gl.Context)
	if err := ctx.Load(getProcAddr); err != nil {
		return nil, err
	}
	return ctx, nil
}
