package snowscene

type LightType uint32

const (
	LightTypePoint   LightType = 0
	LightTypeAmbient LightType = 3
)

// LightComponent is the ECS component for lights. Range 0 means unlimited reach.
type LightComponent struct {
	Type      LightType
	Color     [3]float32 // RGB
	Intensity float32
	Range     float32
	Decay     float32
}

// HexColor splits 0xRRGGBB into normalised RGB.
func HexColor(hex uint32) [3]float32 {
	return [3]float32{
		float32((hex>>16)&0xFF) / 255,
		float32((hex>>8)&0xFF) / 255,
		float32(hex&0xFF) / 255,
	}
}
