package compare

import _ "embed"

//go:embed shaders/split.wgsl
var splitShaderSource string
