package backend

// Backend enums used by the replay engine that are missing from the
// hal/gles/gl constant set. Values follow the OpenGL 4.6 registry.
//
//nolint:revive
const (
	CONTEXT_LOST = 0x0507

	COLOR   = 0x1800
	DEPTH   = 0x1801
	STENCIL = 0x1802

	DRAW_INDIRECT_BUFFER  = 0x8F3F
	ATOMIC_COUNTER_BUFFER = 0x92C0

	SAMPLES_PASSED     = 0x8914
	ANY_SAMPLES_PASSED = 0x8C2F
	TIME_ELAPSED       = 0x88BF
	TIMESTAMP          = 0x8E28
)
