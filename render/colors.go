package render

import "image/color"

var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	// Green is the background of a banner reporting a correct movement
	Green = color.RGBA{R: 52, G: 199, B: 89, A: 255} // #34C759
	// Red is the background of a banner reporting a wrong movement
	Red = color.RGBA{R: 255, G: 59, B: 48, A: 255} // #FF3B30
	// Gray is the background of the guidance banner
	Gray = color.RGBA{R: 44, G: 44, B: 46, A: 255} // #2C2C2E
)
