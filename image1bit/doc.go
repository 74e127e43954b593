// Package image1bit provides a 1-bit monochrome image format for e-paper panels.
//
// Pixels are stored in horizontal-line, most-significant-bit-first packing
// (HLSB): rows run top to bottom, each byte holds 8 consecutive pixels of a
// row and bit 7 is the leftmost of them.
//
// Memory layout example for a 16-pixel row:
//
//	Pixels: 0 1 2 3 4 5 6 7 | 8 9 10 11 12 13 14 15
//	Values: 1 0 0 0 0 0 0 1 | 0 0 0  0  1  1  1  1
//	Bytes:  0x81            | 0x0F
//
// The Pix slice of a HorizontalMSB image is therefore the exact plane buffer
// expected by controllers such as the Waveshare 4.2" tri-color panel.
//
// This package provides:
//
// - Bit: A color type, On (white on the black plane, ink on the red plane) or Off
// - BitModel: A color model converting standard Go colors by luminance
// - HorizontalMSB: An image.Image / draw.Image implementation
//
// Example usage:
//
//	img := image1bit.NewHorizontalMSB(image.Rect(0, 0, 400, 300))
//	draw.Draw(img, img.Bounds(), &image.Uniform{image1bit.On}, image.Point{}, draw.Src)
//	img.SetBit(10, 20, image1bit.Off)
//	plane := img.Pix // 15000 bytes
package image1bit
