package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dehradun = Point{Lat: 30.3165, Lon: 78.0322}
	delhi    = Point{Lat: 28.6139, Lon: 77.2090}
)

func TestDistance(t *testing.T) {
	d := DistanceKM(dehradun, delhi)
	assert.InDelta(t, 205.4, d, 0.5)
	assert.InDelta(t, d*1000, DistanceMeters(dehradun, delhi), 1e-6)
	assert.InDelta(t, DistanceKM(delhi, dehradun), d, 1e-9)
	assert.Zero(t, DistanceMeters(dehradun, dehradun))
}

func TestDistance_OneDegreeOfLatitude(t *testing.T) {
	d := DistanceKM(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	assert.InDelta(t, 2*math.Pi*EarthRadiusKM/360, d, 1e-6)
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, dehradun.Valid())
	assert.False(t, Point{Lat: 91}.Valid())
	assert.False(t, Point{Lon: -181}.Valid())
	assert.False(t, Point{Lat: math.NaN()}.Valid())
}

func TestCentroidAndRadius(t *testing.T) {
	pts := []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}}
	c := Centroid(pts)
	assert.Equal(t, Point{Lat: 0, Lon: 1}, c)
	assert.InDelta(t, DistanceMeters(c, pts[0]), Radius(c, pts), 1e-9)
	assert.Equal(t, Point{}, Centroid(nil))
}

// offset returns a point roughly dx meters east and dy meters north of p.
func offset(p Point, dx, dy float64) Point {
	dLat := dy / EarthRadiusM * 180 / math.Pi
	dLon := dx / (EarthRadiusM * math.Cos(p.Lat*math.Pi/180)) * 180 / math.Pi
	return Point{Lat: p.Lat + dLat, Lon: p.Lon + dLon}
}

func TestDBSCAN(t *testing.T) {
	a := dehradun
	b := offset(dehradun, 5000, 0)

	points := []Point{
		a, offset(a, 100, 0), offset(a, 0, 100), offset(a, -100, 50),
		b, offset(b, 120, 0), offset(b, 0, -120),
		offset(dehradun, 0, 20000),
	}
	labels := DBSCAN(points, 500, 3)

	require.Len(t, labels, len(points))
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, Noise}, labels)
	assert.Equal(t, 1, CountNoise(labels))

	groups := Groups(points, labels)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 1, 2, 3}, groups[0].Members)
	assert.Less(t, DistanceMeters(groups[0].Centroid, a), 100.0)
	assert.Greater(t, groups[1].RadiusMeters, 0.0)
	assert.Less(t, groups[1].RadiusMeters, 200.0)
}

func TestDBSCAN_BorderPointJoinsCluster(t *testing.T) {
	core := []Point{dehradun, offset(dehradun, 50, 0), offset(dehradun, -50, 0)}
	border := offset(dehradun, 520, 0)
	points := append([]Point{border}, core...)

	labels := DBSCAN(points, 500, 3)
	assert.Equal(t, []int{0, 0, 0, 0}, labels)
}

func TestDBSCAN_AllNoise(t *testing.T) {
	points := []Point{dehradun, delhi}
	labels := DBSCAN(points, 500, 2)
	assert.Equal(t, []int{Noise, Noise}, labels)
	assert.Empty(t, Groups(points, labels))
}

func TestBounds(t *testing.T) {
	_, ok := Bounds(nil)
	assert.False(t, ok)

	box, ok := Bounds([]Point{dehradun, {Lat: 200, Lon: 0}, delhi})
	require.True(t, ok)
	assert.Equal(t, Box{South: delhi.Lat, West: delhi.Lon, North: dehradun.Lat, East: dehradun.Lon}, box)
	assert.True(t, box.Contains(box.Center()))
	assert.False(t, box.Contains(Point{Lat: 0, Lon: 0}))
}
