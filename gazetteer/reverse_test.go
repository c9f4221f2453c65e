package gazetteer

import "testing"

func TestComparePlaces(t *testing.T) {
	tests := []struct {
		name string
		a, b Place
		want int
	}{
		{"MorePopulousFirst", Place{Name: "Zurich", Population: 400_000}, Place{Name: "Aarau", Population: 20_000}, -1},
		{"LessPopulousLast", Place{Name: "Aarau", Population: 20_000}, Place{Name: "Zurich", Population: 400_000}, 1},
		{"TieBrokenByName", Place{Name: "Albany", Population: 1000}, Place{Name: "Boston", Population: 1000}, -1},
		{"Equal", Place{Name: "Paris", Population: 1000}, Place{Name: "Paris", Population: 1000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := comparePlaces(tt.a, tt.b); got != tt.want {
				t.Errorf("comparePlaces(%s, %s) = %d, want %d", tt.a.Name, tt.b.Name, got, tt.want)
			}
		})
	}
}

// Places at the same point are ordered the same way rank orders lookups.
func TestNearestTieUsesPlaceOrder(t *testing.T) {
	initCodeTables()
	g := &Gazetteer{Places: []Place{
		{Name: "Bravo", Latitude: 45, Longitude: 7, Population: 3000},
		{Name: "Charlie", Latitude: 45, Longitude: 7, Population: 9000},
		{Name: "Alpha", Latitude: 45, Longitude: 7, Population: 9000},
	}}
	g.buildCellIndex()

	got, ok := g.Nearest(45, 7)
	if !ok {
		t.Fatal("Nearest found nothing")
	}
	if got.Name != "Alpha" {
		t.Errorf("Nearest = %s, want Alpha", got.Name)
	}

	ranked := g.rank([]int{0, 1, 2, 1})
	want := []string{"Alpha", "Charlie", "Bravo"}
	if len(ranked) != len(want) {
		t.Fatalf("rank returned %d places, want %d", len(ranked), len(want))
	}
	for i, idx := range ranked {
		if g.Places[idx].Name != want[i] {
			t.Errorf("rank[%d] = %s, want %s", i, g.Places[idx].Name, want[i])
		}
	}
}
