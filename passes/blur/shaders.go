package blur

import _ "embed"

// blurShaderSource is the fragment stage of both blur directions.
//
//go:embed shaders/blur.wgsl
var blurShaderSource string
