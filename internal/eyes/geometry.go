package eyes

import "github.com/normanking/roboeyes/internal/shape"

// MinLidHeight is the height a fully closed eye collapses to.
const MinLidHeight = 1

// CuriosityGrowth is how many pixels an eye grows in height while curious
// and looking towards its side of the canvas.
const CuriosityGrowth = 8

// EyeGeometry is the live and target shape of one eye. X and Y are the
// top-left corner of the eye's nominal box; the drawn rectangle keeps the
// live height vertically centred on that box (see Rect).
type EyeGeometry struct {
	X, Y   int
	Width  int
	Height int
	Radius int

	TargetX      int
	TargetY      int
	TargetWidth  int
	TargetHeight int
	TargetRadius int
}

// Rect returns the rectangle actually drawn for an eye whose nominal height
// is nominalHeight.
func (g EyeGeometry) Rect(nominalHeight int) (x, y, w, h int) {
	return g.X, g.Y + (nominalHeight-g.Height)/2, g.Width, g.Height
}

// Settled reports whether every live value has reached its target.
func (g EyeGeometry) Settled() bool {
	return g.X == g.TargetX && g.Y == g.TargetY &&
		g.Width == g.TargetWidth && g.Height == g.TargetHeight &&
		g.Radius == g.TargetRadius
}

func (g *EyeGeometry) step() {
	g.X = Approach(g.X, g.TargetX)
	g.Y = Approach(g.Y, g.TargetY)
	g.Width = Approach(g.Width, g.TargetWidth)
	g.Height = Approach(g.Height, g.TargetHeight)
	g.Radius = Approach(g.Radius, g.TargetRadius)
}

func (g *EyeGeometry) snap() {
	g.X, g.Y = g.TargetX, g.TargetY
	g.Width, g.Height, g.Radius = g.TargetWidth, g.TargetHeight, g.TargetRadius
}

// Approach moves current half the remaining distance towards target, by at
// least one pixel and never past it.
func Approach(current, target int) int {
	d := target - current
	switch {
	case d == 0:
		return target
	case d > 0:
		return current + max(d/2, 1)
	default:
		return current + min(d/2, -1)
	}
}

// layout is the resolved anchor box for the current configuration.
type layout struct {
	maxX, maxY  int
	rightOffset int
}

func (e *RoboEyes) layout() layout {
	c := e.cfg
	lw, rw, space := c.EyeWidth, c.EyeWidth, c.SpaceBetween
	if e.state.Cyclops {
		rw, space = 0, 0
	}
	return layout{
		maxX:        c.CanvasWidth - lw - space - rw,
		maxY:        c.CanvasHeight - c.EyeHeight,
		rightOffset: lw + space,
	}
}

// anchor returns the top-left of the left (or single) eye for p.
func (l layout) anchor(p Position) (x, y int) {
	switch p.column() {
	case -1:
		x = 0
	case 0:
		x = l.maxX / 2
	default:
		x = l.maxX
	}
	switch p.row() {
	case -1:
		y = 0
	case 0:
		y = l.maxY / 2
	default:
		y = l.maxY
	}
	return x, y
}

// Offset returns the displacement of the eye anchor for p relative to Center
// under the current layout.
func (e *RoboEyes) Offset(p Position) (dx, dy int) {
	l := e.layout()
	x, y := l.anchor(p)
	cx, cy := l.anchor(Center)
	return x - cx, y - cy
}

// growth returns the curiosity height bonus for eye i.
func (e *RoboEyes) growth(i Eye) int {
	s := &e.state
	if !s.Curious {
		return 0
	}
	col := s.Position.column()
	if s.Cyclops {
		if i == LeftEye && col != 0 {
			return CuriosityGrowth
		}
		return 0
	}
	if (i == LeftEye && col < 0) || (i == RightEye && col > 0) {
		return CuriosityGrowth
	}
	return 0
}

// resolveTargets recomputes target geometry from configuration and state.
func (e *RoboEyes) resolveTargets() {
	l := e.layout()
	x, y := l.anchor(e.state.Position)
	for i := range e.eyes {
		g := &e.eyes[i]
		eye := Eye(i)

		g.TargetX, g.TargetY = x, y
		if eye == RightEye {
			g.TargetX += l.rightOffset
		}
		g.TargetWidth = e.cfg.EyeWidth

		full := e.cfg.EyeHeight + e.growth(eye)
		switch e.state.Lids[i].State {
		case LidClosing, LidClosed:
			g.TargetHeight = MinLidHeight
		default:
			g.TargetHeight = full
		}
		g.TargetRadius = shape.ClampRadius(g.TargetWidth, full, e.radius[i])
	}
}

// fullHeight is the open height of eye i including curiosity growth.
func (e *RoboEyes) fullHeight(i Eye) int {
	return e.cfg.EyeHeight + e.growth(i)
}
