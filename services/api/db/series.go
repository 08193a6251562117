package db

// Point is one chart sample: [epoch milliseconds, value].
type Point [2]float64

// SeriesNames lists the chart series in display order.
var SeriesNames = []string{
	"bateria_voltaje",
	"ptemp",
	"oxigeno_mg",
	"oxigeno_porc",
	"temperatura_agua",
	"conductividad",
	"salinidad",
	"solidos",
	"ph",
	"orp",
}

func seriesValue(r *Reading, name string) *float64 {
	switch name {
	case "bateria_voltaje":
		return r.BatteryVoltage
	case "ptemp":
		return r.PanelTemp
	case "oxigeno_mg":
		return r.DissolvedOxygen
	case "oxigeno_porc":
		return r.OxygenPercent
	case "temperatura_agua":
		return r.WaterTemp
	case "conductividad":
		return r.Conductivity
	case "salinidad":
		return r.Salinity
	case "solidos":
		return r.DissolvedSolids
	case "ph":
		return r.PH
	case "orp":
		return r.ORP
	}
	return nil
}

// BuildSeries turns readings (ascending time) into per-variable point lists.
// Absent values are left out; every series is present even when empty.
func BuildSeries(readings []Reading) map[string][]Point {
	out := make(map[string][]Point, len(SeriesNames))
	for _, name := range SeriesNames {
		out[name] = make([]Point, 0, len(readings))
	}
	for i := range readings {
		ms := float64(readings[i].Timestamp.UnixMilli())
		for _, name := range SeriesNames {
			if v := seriesValue(&readings[i], name); v != nil {
				out[name] = append(out[name], Point{ms, *v})
			}
		}
	}
	return out
}
