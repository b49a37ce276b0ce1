package eyes

import (
	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/shape"
)

// Droplet dimensions.
const (
	sweatGap    = 3
	sweatBody   = 5
	sweatRadius = 2
	sweatTip    = 4
)

// drawSweat draws a single droplet just off the upper-right corner of b.
func (e *RoboEyes) drawSweat(c canvas.Canvas, b box) {
	fg := e.cfg.Foreground
	cx := b.x + b.w + sweatGap
	top := b.y - 2

	shape.FillTriangle(c,
		shape.Pt(cx, top),
		shape.Pt(cx-sweatBody/2, top+sweatTip),
		shape.Pt(cx+sweatBody/2, top+sweatTip),
		fg)
	shape.FillRoundedRect(c, cx-sweatBody/2, top+sweatTip-1, sweatBody, sweatBody, sweatRadius, fg)
}
