package gazetteer

import (
	"cmp"
	"math"
	"slices"

	"github.com/golang/geo/s2"

	"github.com/andreiashu/placeresolver"
)

// s2CellLevel sets the reverse-lookup index granularity. Level 10 cells are
// roughly 10km across; a lookup scans the query cell and its 8 neighbours.
const s2CellLevel = 10

// maxNearestDistance is ~100km in radians on the unit sphere.
// Earth radius ≈ 6371km, so 100km / 6371km ≈ 0.0157 radians.
const maxNearestDistance = 0.0157

// nearbyThreshold is ~10km in radians on the unit sphere.
const nearbyThreshold = 0.00157

// nearbyPlace is a place within maxNearestDistance of a query point.
type nearbyPlace struct {
	place Place
	dist  float64
}

func (g *Gazetteer) buildCellIndex() {
	g.cellIndex = make(map[s2.CellID][]int)
	for i, p := range g.Places {
		ll := s2.LatLngFromDegrees(float64(p.Latitude), float64(p.Longitude))
		cell := s2.CellIDFromLatLng(ll).Parent(s2CellLevel)
		g.cellIndex[cell] = append(g.cellIndex[cell], i)
	}
}

// cellAndNeighbors returns the given cell plus its edge and corner neighbours.
func cellAndNeighbors(cell s2.CellID) []s2.CellID {
	cells := make([]s2.CellID, 0, 9)
	cells = append(cells, cell)

	edge := cell.EdgeNeighbors()
	cells = append(cells, edge[:]...)

	seen := make(map[s2.CellID]bool, 9)
	for _, c := range cells {
		seen[c] = true
	}
	for _, e := range edge {
		for _, corner := range e.EdgeNeighbors() {
			if !seen[corner] {
				cells = append(cells, corner)
				seen[corner] = true
			}
		}
	}
	return cells
}

// Nearest returns the place closest to lat/lon. It reports false for
// non-finite coordinates and when nothing lies within ~100km.
//
// A small place (under 500K people) loses to a place within ~10km that has
// at least ten times its population, so a suburb resolves to its city.
func (g *Gazetteer) Nearest(lat, lon float64) (placeresolver.Candidate, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return placeresolver.Candidate{}, false
	}

	queryLL := s2.LatLngFromDegrees(lat, lon)
	queryCell := s2.CellIDFromLatLng(queryLL).Parent(s2CellLevel)

	var nearby []nearbyPlace
	for _, cell := range cellAndNeighbors(queryCell) {
		for _, idx := range g.cellIndex[cell] {
			p := g.Places[idx]
			d := float64(queryLL.Distance(s2.LatLngFromDegrees(float64(p.Latitude), float64(p.Longitude))))
			if d <= maxNearestDistance {
				nearby = append(nearby, nearbyPlace{place: p, dist: d})
			}
		}
	}
	if len(nearby) == 0 {
		return placeresolver.Candidate{}, false
	}
	slices.SortStableFunc(nearby, func(a, b nearbyPlace) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return comparePlaces(a.place, b.place)
	})

	best := nearby[0].place
	if best.Population < 500_000 {
		for _, n := range nearby[1:] {
			if n.dist > nearbyThreshold {
				break
			}
			if int64(n.place.Population) > int64(best.Population)*10 {
				best = n.place
				break
			}
		}
	}
	return g.Candidate(best), true
}
