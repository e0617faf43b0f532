package sss

import _ "embed"

//go:embed shaders/sss.wgsl
var sssShaderSource string
