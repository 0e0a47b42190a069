package geo

// Box is a latitude/longitude bounding box.
type Box struct {
	South, West, North, East float64
}

func (b Box) Center() Point {
	return Point{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

func (b Box) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lon >= b.West && p.Lon <= b.East
}

// Bounds returns the box spanning every valid point. ok is false when no
// point is valid, in which case callers should fall back to a default view.
func Bounds(points []Point) (box Box, ok bool) {
	for _, p := range points {
		if !p.Valid() {
			continue
		}
		if !ok {
			box = Box{South: p.Lat, North: p.Lat, West: p.Lon, East: p.Lon}
			ok = true
			continue
		}
		if p.Lat < box.South {
			box.South = p.Lat
		}
		if p.Lat > box.North {
			box.North = p.Lat
		}
		if p.Lon < box.West {
			box.West = p.Lon
		}
		if p.Lon > box.East {
			box.East = p.Lon
		}
	}
	return box, ok
}
