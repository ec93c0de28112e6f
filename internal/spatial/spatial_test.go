package spatial

import (
	"testing"

	"github.com/uber/h3-go/v4"
)

func TestCellBoundingBox_ContainsCenter(t *testing.T) {
	center := h3.LatLng{Lat: 28.6139, Lng: 77.2090}
	cell := h3.LatLngToCell(center, 9)

	minLat, maxLat, minLon, maxLon := cellBoundingBox(cell)

	if minLat > center.Lat || maxLat < center.Lat {
		t.Errorf("bounding box lat range [%v,%v] does not contain center lat %v", minLat, maxLat, center.Lat)
	}
	if minLon > center.Lng || maxLon < center.Lng {
		t.Errorf("bounding box lon range [%v,%v] does not contain center lon %v", minLon, maxLon, center.Lng)
	}
}
