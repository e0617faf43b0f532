package raster

import _ "embed"

//go:embed shaders/scene.wgsl
var sceneShaderSource string
