package station

import (
	"fmt"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/zalf-rpm/agroclimate/geo"
)

// ShapefileColumns names the attribute columns to read from a station
// point shapefile.
type ShapefileColumns struct {
	ID            string
	Name          string
	DBKey         string
	Elevation     string // optional; missing elevation is treated as 0
	LocationClass string // optional; one of flat/lightHills/mediumHills/strongHills
}

// LoadShapefile reads a point shapefile of climate stations using
// github.com/jonas-p/go-shp. This is an alternate station source to the
// tabular backing store, useful for simulations (e.g. CLM-style gridded
// products) whose stations are shipped as a companion point layer rather
// than rows in the backing table.
func LoadShapefile(path string, cols ShapefileColumns) ([]*Station, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("station: opening shapefile %s: %w", path, err)
	}
	defer r.Close()

	fieldIdx := make(map[string]int)
	for i, f := range r.Fields() {
		fieldIdx[strings.TrimRight(string(f.Name[:]), "\x00")] = i
	}
	idIdx, ok := fieldIdx[cols.ID]
	if !ok {
		return nil, fmt.Errorf("station: shapefile %s has no field %q", path, cols.ID)
	}
	nameIdx, ok := fieldIdx[cols.Name]
	if !ok {
		return nil, fmt.Errorf("station: shapefile %s has no field %q", path, cols.Name)
	}

	var out []*Station
	for r.Next() {
		n, shape := r.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			continue // only point geometries represent stations
		}
		id, err := strconv.Atoi(strings.TrimSpace(r.ReadAttribute(n, idIdx)))
		if err != nil {
			return nil, fmt.Errorf("station: shapefile %s record %d: bad id: %w", path, n, err)
		}
		s := &Station{
			ID:     id,
			Name:   strings.TrimSpace(r.ReadAttribute(n, nameIdx)),
			LatLng: geo.LatLng{Lat: pt.Y, Lng: pt.X},
		}
		if cols.DBKey != "" {
			if i, ok := fieldIdx[cols.DBKey]; ok {
				s.DBKey = strings.TrimSpace(r.ReadAttribute(n, i))
			}
		}
		if cols.Elevation != "" {
			if i, ok := fieldIdx[cols.Elevation]; ok {
				if v, err := parseDecimal(r.ReadAttribute(n, i)); err == nil {
					s.Elevation = v
				}
			}
		}
		if cols.LocationClass != "" {
			if i, ok := fieldIdx[cols.LocationClass]; ok {
				s.LocationClass = parseLocationClass(r.ReadAttribute(n, i))
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// parseDecimal parses a numeric attribute that may use either a dot or a
// comma as the decimal separator, since some upstream station exports use
// the German locale's comma ("52,3" rather than "52.3").
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && strings.Count(s, ".") == 0 {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

func parseLocationClass(s string) LocationClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lighthills", "lg":
		return LightHills
	case "mediumhills", "mg":
		return MediumHills
	case "stronghills", "sg":
		return StrongHills
	default:
		return Flat
	}
}
