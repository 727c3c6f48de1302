package geo

import "sentinel/pkg/models"

// Addresses returns the deduplicated source and destination addresses of
// alerts in first-seen order.
func Addresses(alerts []*models.Alert) []string {
	seen := make(map[string]struct{}, len(alerts))
	out := make([]string, 0, len(alerts))
	add := func(addr string) {
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	for _, a := range alerts {
		if a == nil {
			continue
		}
		add(a.SourceAddress)
		add(a.DestinationAddress)
	}
	return out
}

// Attach returns shallow copies of alerts with SourceGeo and DestinationGeo
// set from points. Inputs are not modified.
func Attach(alerts []*models.Alert, points map[string]models.GeoPoint) []*models.Alert {
	out := make([]*models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a == nil {
			continue
		}
		cp := *a
		cp.SourceGeo = pointFor(points, a.SourceAddress)
		cp.DestinationGeo = pointFor(points, a.DestinationAddress)
		out = append(out, &cp)
	}
	return out
}

func pointFor(points map[string]models.GeoPoint, addr string) *models.GeoPoint {
	if addr == "" {
		return nil
	}
	p, ok := points[addr]
	if !ok {
		return nil
	}
	return &p
}
