package shaders

import (
	_ "embed"
)

//go:embed mesh.wgsl
var MeshWGSL string

//go:embed sprite.wgsl
var SpriteWGSL string
