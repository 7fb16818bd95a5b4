package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Placement is the vertical position of a label on the image
type Placement int

const (
	Top    Placement = 1
	Bottom Placement = 2
)

// Label is a text banner rendered over the top of an image
type Label struct {
	Text       string
	Background color.RGBA
	// Opacity of the whole label in the range [0,1], zero draws nothing
	Opacity   float64
	Placement Placement
	// Margin is the distance in pixels between the label box and the image
	// edge it is placed against
	Margin int
}

// DrawLabel renders the label on to the image with the text centered on a
// filled box.  The box and text are blended with the image by the label
// opacity.
func DrawLabel(img *gocv.Mat, label Label, font Font) {

	if label.Opacity <= 0 || label.Text == "" {
		return
	}

	opacity := label.Opacity

	if opacity > 1 {
		opacity = 1
	}

	width := img.Cols()
	height := img.Rows()

	box, textSize := font.BoxSize(label.Text)
	boxW, boxH := box.X, box.Y

	left := font.alignLeft(width, boxW, label.Margin)

	top := label.Margin

	if label.Placement == Bottom {
		top = height - boxH - label.Margin
	}

	bRect := image.Rect(left, top, left+boxW, top+boxH)
	textPos := image.Pt(left+font.LeftPad, top+font.TopPad+textSize.Y)

	// only the part of the box on the image can be drawn
	visible := bRect.Intersect(image.Rect(0, 0, width, height))

	if visible.Empty() {
		return
	}

	// draw the label on a copy of the region it covers then blend the copy
	// back so the label is translucent
	roi := img.Region(visible)
	defer roi.Close()

	overlay := roi.Clone()
	defer overlay.Close()

	gocv.Rectangle(&overlay, bRect.Sub(visible.Min), label.Background, -1)

	gocv.PutTextWithParams(&overlay, label.Text, textPos.Sub(visible.Min),
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)

	gocv.AddWeighted(roi, 1-opacity, overlay, opacity, 0, &roi)
}
