package resource

import "github.com/gogpu/gputypes"

// formatInfo is the per-format table used by the helpers below.
type formatInfo struct {
	name     string
	channels int
	bytes    int
	depth    bool
	float    bool
}

var formats = map[gputypes.TextureFormat]formatInfo{
	gputypes.TextureFormatR8Unorm:             {"R8Unorm", 1, 1, false, false},
	gputypes.TextureFormatRGBA8Unorm:          {"RGBA8Unorm", 4, 4, false, false},
	gputypes.TextureFormatBGRA8Unorm:          {"BGRA8Unorm", 4, 4, false, false},
	gputypes.TextureFormatRGBA16Float:         {"RGBA16Float", 4, 8, false, true},
	gputypes.TextureFormatRGBA32Float:         {"RGBA32Float", 4, 16, false, true},
	gputypes.TextureFormatDepth32Float:        {"Depth32Float", 1, 4, true, true},
	gputypes.TextureFormatDepth24PlusStencil8: {"Depth24PlusStencil8", 1, 4, true, false},
}

// IsDepthFormat reports whether f is a depth or depth-stencil format.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	return formats[f].depth
}

// IsFloatFormat reports whether f stores floating-point values.
func IsFloatFormat(f gputypes.TextureFormat) bool {
	return formats[f].float
}

// Channels returns the number of channels in f, or 0 if f is not known.
func Channels(f gputypes.TextureFormat) int {
	return formats[f].channels
}

// BytesPerPixel returns the texel size of f, or 0 if f is not known.
func BytesPerPixel(f gputypes.TextureFormat) int {
	return formats[f].bytes
}

// IsKnownFormat reports whether the helpers above understand f.
func IsKnownFormat(f gputypes.TextureFormat) bool {
	_, ok := formats[f]
	return ok
}

// FormatName returns a short name for f.
func FormatName(f gputypes.TextureFormat) string {
	if f == gputypes.TextureFormatUndefined {
		return "Unknown"
	}
	if info, ok := formats[f]; ok {
		return info.name
	}
	return "Unsupported"
}
