package snowscene

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedAsset = errors.New("unsupported asset")

// MaxTextureSize caps either texture dimension; larger images are scaled down.
const MaxTextureSize = 4096

var textureSubtypes = map[string]bool{
	"png":  true,
	"jpeg": true,
	"webp": true,
	"bmp":  true,
}

func DecodeTextureFile(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load texture: %w", err)
	}
	img, err := DecodeTexture(data)
	if err != nil {
		return nil, fmt.Errorf("load texture %s: %w", path, err)
	}
	return img, nil
}

// DecodeTexture sniffs the image type from its header, decodes it and
// returns it as tightly packed RGBA.
func DecodeTexture(data []byte) (*image.RGBA, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: unrecognised image data", ErrUnsupportedAsset)
	}
	if !textureSubtypes[kind.MIME.Subtype] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, kind.MIME.Value)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.Extension, err)
	}
	return fitTexture(toRGBA(img)), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func fitTexture(img *image.RGBA) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w <= MaxTextureSize && h <= MaxTextureSize {
		return img
	}
	scale := float64(MaxTextureSize) / float64(max(w, h))
	return ResizeRGBA(img, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale)))
}

// ResizeRGBA resamples src to width x height.
func ResizeRGBA(src *image.RGBA, width, height int) *image.RGBA {
	if src.Rect.Dx() == width && src.Rect.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// sampleRGBA returns the texel nearest to (u, v), v pointing down the image.
func sampleRGBA(img *image.RGBA, u, v float32) [4]uint8 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	x := clampInt(int(u*float32(w)), 0, w-1)
	y := clampInt(int(v*float32(h)), 0, h-1)
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	return [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
