package eyes

import (
	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/shape"
)

// box is an eye rectangle as drawn this frame, offsets applied.
type box struct {
	x, y, w, h, r int
}

func (b box) topLeft() shape.Point     { return shape.Pt(b.x, b.y-1) }
func (b box) topRight() shape.Point    { return shape.Pt(b.x+b.w, b.y-1) }
func (b box) topMiddle() shape.Point   { return shape.Pt(b.x+b.w/2, b.y-1) }
func (b box) left(d int) shape.Point   { return shape.Pt(b.x, b.y+d-1) }
func (b box) right(d int) shape.Point  { return shape.Pt(b.x+b.w, b.y+d-1) }
func (b box) middle(d int) shape.Point { return shape.Pt(b.x+b.w/2, b.y+d-1) }

// drawMood carves the eyelid overlay for the active mood out of the eyes
// already on c. boxes holds one entry in cyclops mode and two otherwise.
func (e *RoboEyes) drawMood(c canvas.Canvas, boxes []box) {
	switch e.state.Mood {
	case MoodTired:
		e.drawTired(c, boxes)
	case MoodAngry:
		e.drawAngry(c, boxes)
	case MoodHappy:
		e.drawHappy(c, boxes)
	}
}

func (e *RoboEyes) lidDepth() int {
	return e.cfg.EyeHeight / 2
}

// drawTired lowers the outer half of each upper lid.
func (e *RoboEyes) drawTired(c canvas.Canvas, boxes []box) {
	d, bg := e.lidDepth(), e.cfg.Background
	if len(boxes) == 1 {
		b := boxes[0]
		shape.FillTriangle(c, b.topLeft(), b.topMiddle(), b.left(d), bg)
		shape.FillTriangle(c, b.topMiddle(), b.topRight(), b.right(d), bg)
		return
	}
	l, r := boxes[0], boxes[1]
	shape.FillTriangle(c, l.topLeft(), l.topRight(), l.left(d), bg)
	shape.FillTriangle(c, r.topLeft(), r.topRight(), r.right(d), bg)
}

// drawAngry lowers the inner half of each upper lid.
func (e *RoboEyes) drawAngry(c canvas.Canvas, boxes []box) {
	d, bg := e.lidDepth(), e.cfg.Background
	if len(boxes) == 1 {
		b := boxes[0]
		shape.FillTriangle(c, b.topLeft(), b.topMiddle(), b.middle(d), bg)
		shape.FillTriangle(c, b.topMiddle(), b.topRight(), b.middle(d), bg)
		return
	}
	l, r := boxes[0], boxes[1]
	shape.FillTriangle(c, l.topLeft(), l.topRight(), l.right(d), bg)
	shape.FillTriangle(c, r.topLeft(), r.topRight(), r.left(d), bg)
}

// drawHappy pushes a rounded lower lid up to half the eye height.
func (e *RoboEyes) drawHappy(c canvas.Canvas, boxes []box) {
	off, bg := e.lidDepth(), e.cfg.Background
	for _, b := range boxes {
		shape.FillRoundedRect(c, b.x-1, b.y+b.h-off+1, b.w+2, b.h, b.r, bg)
	}
}
