package geo

// Noise is the label given to points that belong to no cluster.
const Noise = -1

// DBSCAN clusters points by density using the haversine distance. A point is
// a core point when at least minSamples points, itself included, lie within
// epsMeters. Labels are assigned 0, 1, 2... in discovery order; points that
// are not density reachable from a core point are labelled Noise.
func DBSCAN(points []Point, epsMeters float64, minSamples int) []int {
	const unvisited = -2

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	neighbours := func(i int) []int {
		var out []int
		for j := range points {
			if DistanceMeters(points[i], points[j]) <= epsMeters {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		seeds := neighbours(i)
		if len(seeds) < minSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), seeds...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == Noise {
				// border point
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			if more := neighbours(j); len(more) >= minSamples {
				queue = append(queue, more...)
			}
		}
		cluster++
	}
	return labels
}

// Group is one cluster produced by DBSCAN with its derived geometry.
type Group struct {
	Label        int
	Members      []int
	Centroid     Point
	RadiusMeters float64
}

// Groups collects the members of every non noise label in label order and
// computes each cluster's centroid and radius.
func Groups(points []Point, labels []int) []Group {
	max := -1
	for _, l := range labels {
		if l > max {
			max = l
		}
	}
	groups := make([]Group, max+1)
	for i, l := range labels {
		if l == Noise {
			continue
		}
		groups[l].Label = l
		groups[l].Members = append(groups[l].Members, i)
	}
	for i := range groups {
		pts := make([]Point, 0, len(groups[i].Members))
		for _, m := range groups[i].Members {
			pts = append(pts, points[m])
		}
		groups[i].Centroid = Centroid(pts)
		groups[i].RadiusMeters = Radius(groups[i].Centroid, pts)
	}
	return groups
}

// CountNoise returns how many labels are Noise.
func CountNoise(labels []int) int {
	n := 0
	for _, l := range labels {
		if l == Noise {
			n++
		}
	}
	return n
}
