// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// NullDevice is a gpucontext.DeviceProvider with no device behind it.
// The software context reports it when no host device was supplied.
type NullDevice struct{}

// Device returns nil for the null device.
func (NullDevice) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDevice) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDevice) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat reports RGBA8, the format software surfaces read back as.
func (NullDevice) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// AdapterInfo reports a software adapter.
func (NullDevice) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "Software", Type: gpucontext.AdapterTypeSoftware}
}

var _ gpucontext.DeviceProvider = NullDevice{}

// Capabilities describes what the software context can do.
type Capabilities struct {
	MaxTextureSize      int
	MaxColorAttachments int
	SupportsDepth       bool
	SupportsText        bool
	// ValidatesShaders is true when programs are compiled to SPIR-V before
	// their first draw.
	ValidatesShaders bool
}
