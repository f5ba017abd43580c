// Package layout places tables on two concentric rings: fact tables on an
// inner ring (or at the center when there is only one), dimension tables on
// an outer ring.
package layout

import (
	"fmt"
	"math"
)

// Point is a 2-D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config controls ring geometry.
type Config struct {
	Center          Point
	MinRadius       float64
	PerTableSpacing float64
	InnerRatio      float64
}

// DefaultConfig returns the geometry used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Center:          Point{X: 600, Y: 400},
		MinRadius:       250,
		PerTableSpacing: 30,
		InnerRatio:      0.4,
	}
}

// withDefaults fills zero or negative fields from DefaultConfig. The center
// is taken as given.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinRadius <= 0 {
		c.MinRadius = d.MinRadius
	}
	if c.PerTableSpacing <= 0 {
		c.PerTableSpacing = d.PerTableSpacing
	}
	if c.InnerRatio <= 0 || c.InnerRatio >= 1 {
		c.InnerRatio = d.InnerRatio
	}
	return c
}

// startAngle puts the first slot of each ring at twelve o'clock.
const startAngle = -math.Pi / 2

// BaseRadius returns the outer ring radius for count tables. It panics on a
// negative count.
func BaseRadius(count int, cfg Config) float64 {
	if count < 0 {
		panic(fmt.Sprintf("layout: negative table count %d", count))
	}
	cfg = cfg.withDefaults()
	return math.Max(cfg.MinRadius, float64(count)*cfg.PerTableSpacing)
}

// Compute assigns a position to every fact and dimension table. Slots are
// handed out in the order the names are given, so callers must pass a stable
// order to get stable coordinates.
func Compute(facts, dimensions []string, cfg Config) map[string]Point {
	cfg = cfg.withDefaults()
	total := len(facts) + len(dimensions)
	positions := make(map[string]Point, total)

	switch total {
	case 0:
		return positions
	case 1:
		for _, name := range append(append([]string{}, facts...), dimensions...) {
			positions[name] = cfg.Center
		}
		return positions
	}

	radius := BaseRadius(total, cfg)

	if len(facts) == 1 {
		positions[facts[0]] = cfg.Center
	} else {
		placeOnRing(positions, facts, cfg.Center, radius*cfg.InnerRatio)
	}
	placeOnRing(positions, dimensions, cfg.Center, radius)

	return positions
}

func placeOnRing(positions map[string]Point, names []string, center Point, radius float64) {
	if len(names) == 0 {
		return
	}
	step := 2 * math.Pi / float64(len(names))
	for i, name := range names {
		angle := startAngle + float64(i)*step
		positions[name] = Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
}
