// Package wards exposes the fixed table of Dehradun Nagar Nigam wards.
package wards

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const Count = 100

const mapURLFormat = "https://nagarnigamdehradun.com/images_280819/maps/map2_new/ward%d.jpg"

type Ward struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	NameHindi   string  `json:"name_hindi"`
	ParshadName string  `json:"parshad_name"`
	Address     string  `json:"address"`
	Phone       *string `json:"phone"`
	MapURL      string  `json:"map_url"`
}

//go:embed wards.json
var raw []byte

var table []Ward

func init() {
	if err := json.Unmarshal(raw, &table); err != nil {
		panic(fmt.Sprintf("wards: decode embedded table: %v", err))
	}
	sort.Slice(table, func(i, j int) bool { return table[i].ID < table[j].ID })
	for i := range table {
		table[i].MapURL = MapURL(table[i].ID)
	}
}

// All returns a copy of every ward ordered by id.
func All() []Ward {
	out := make([]Ward, len(table))
	copy(out, table)
	return out
}

func ByID(id int) (Ward, bool) {
	i := sort.Search(len(table), func(i int) bool { return table[i].ID >= id })
	if i < len(table) && table[i].ID == id {
		return table[i], true
	}
	return Ward{}, false
}

// Search matches the English name case-insensitively or the Hindi name as
// a substring. An empty query returns every ward.
func Search(query string) []Ward {
	query = strings.TrimSpace(query)
	if query == "" {
		return All()
	}
	lower := strings.ToLower(query)
	var out []Ward
	for _, w := range table {
		if strings.Contains(strings.ToLower(w.Name), lower) || strings.Contains(w.NameHindi, query) {
			out = append(out, w)
		}
	}
	return out
}

func MapURL(id int) string {
	return fmt.Sprintf(mapURLFormat, id)
}
