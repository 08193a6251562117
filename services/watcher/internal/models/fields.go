package models

import "time"

// Field identifies a canonical measurement column of a Reading.
type Field int

const (
	FieldRecordID Field = iota
	FieldBatteryVoltage
	FieldPanelTemp
	FieldDissolvedOxygen
	FieldOxygenMax
	FieldOxygenMaxAt
	FieldOxygenPercent
	FieldOxygenPressure
	FieldWaterTemp
	FieldConductivity
	FieldSalinity
	FieldSalinityMax
	FieldSalinityMaxAt
	FieldDissolvedSolids
	FieldDensity
	FieldPH
	FieldPHMax
	FieldPHMaxAt
	FieldORP

	NumFields = int(FieldORP) + 1
)

// Kind is the coercion applied to a field's raw text.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindTime
)

var fieldNames = [NumFields]string{
	FieldRecordID:        "record_id",
	FieldBatteryVoltage:  "bateria_voltaje",
	FieldPanelTemp:       "ptemp_c",
	FieldDissolvedOxygen: "oxigeno_disuelto",
	FieldOxygenMax:       "oxigeno_max",
	FieldOxygenMaxAt:     "oxigeno_tmax",
	FieldOxygenPercent:   "porcentaje_oxigeno",
	FieldOxygenPressure:  "presion_oxigeno",
	FieldWaterTemp:       "temperatura_agua",
	FieldConductivity:    "conductividad",
	FieldSalinity:        "salinidad",
	FieldSalinityMax:     "salinidad_max",
	FieldSalinityMaxAt:   "salinidad_tmax",
	FieldDissolvedSolids: "solidos_disueltos",
	FieldDensity:         "densidad",
	FieldPH:              "ph",
	FieldPHMax:           "ph_max",
	FieldPHMaxAt:         "ph_tmax",
	FieldORP:             "orp",
}

// String returns the canonical name, which is also the store column name.
func (f Field) String() string {
	if f < 0 || int(f) >= NumFields {
		return "unknown"
	}
	return fieldNames[f]
}

// Kind returns how raw values of f are coerced.
func (f Field) Kind() Kind {
	switch f {
	case FieldRecordID:
		return KindInt
	case FieldOxygenMaxAt, FieldSalinityMaxAt, FieldPHMaxAt:
		return KindTime
	default:
		return KindFloat
	}
}

// ParseField resolves a canonical name.
func ParseField(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// Fields lists every canonical field in declaration order.
func Fields() []Field {
	out := make([]Field, NumFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// SetFloat assigns a float field. Non-float fields are ignored.
func (r *Reading) SetFloat(f Field, v *float64) {
	switch f {
	case FieldBatteryVoltage:
		r.BatteryVoltage = v
	case FieldPanelTemp:
		r.PanelTemp = v
	case FieldDissolvedOxygen:
		r.DissolvedOxygen = v
	case FieldOxygenMax:
		r.OxygenMax = v
	case FieldOxygenPercent:
		r.OxygenPercent = v
	case FieldOxygenPressure:
		r.OxygenPressure = v
	case FieldWaterTemp:
		r.WaterTemp = v
	case FieldConductivity:
		r.Conductivity = v
	case FieldSalinity:
		r.Salinity = v
	case FieldSalinityMax:
		r.SalinityMax = v
	case FieldDissolvedSolids:
		r.DissolvedSolids = v
	case FieldDensity:
		r.Density = v
	case FieldPH:
		r.PH = v
	case FieldPHMax:
		r.PHMax = v
	case FieldORP:
		r.OxidationReduction = v
	}
}

// SetTime assigns a time-of-max field. Other fields are ignored.
func (r *Reading) SetTime(f Field, v *time.Time) {
	switch f {
	case FieldOxygenMaxAt:
		r.OxygenMaxAt = v
	case FieldSalinityMaxAt:
		r.SalinityMaxAt = v
	case FieldPHMaxAt:
		r.PHMaxAt = v
	}
}

// Column names of the key and measurement part of the readings table,
// in the order returned by Reading.ColumnValues.
const (
	ColumnStationID = "station_id"
	ColumnTimestamp = "ts"
)

// ReadingColumns returns the insertable columns of the readings table.
func ReadingColumns() []string {
	cols := []string{ColumnStationID, ColumnTimestamp}
	for _, f := range Fields() {
		cols = append(cols, f.String())
	}
	return cols
}

// ColumnValues returns r's values aligned with ReadingColumns.
func (r *Reading) ColumnValues() []any {
	return []any{
		r.StationID,
		r.Timestamp,
		r.RecordID,
		r.BatteryVoltage,
		r.PanelTemp,
		r.DissolvedOxygen,
		r.OxygenMax,
		r.OxygenMaxAt,
		r.OxygenPercent,
		r.OxygenPressure,
		r.WaterTemp,
		r.Conductivity,
		r.Salinity,
		r.SalinityMax,
		r.SalinityMaxAt,
		r.DissolvedSolids,
		r.Density,
		r.PH,
		r.PHMax,
		r.PHMaxAt,
		r.OxidationReduction,
	}
}

// ColumnPointers returns scan destinations in ReadingColumns order.
func (r *Reading) ColumnPointers() []any {
	return []any{
		&r.StationID,
		&r.Timestamp,
		&r.RecordID,
		&r.BatteryVoltage,
		&r.PanelTemp,
		&r.DissolvedOxygen,
		&r.OxygenMax,
		&r.OxygenMaxAt,
		&r.OxygenPercent,
		&r.OxygenPressure,
		&r.WaterTemp,
		&r.Conductivity,
		&r.Salinity,
		&r.SalinityMax,
		&r.SalinityMaxAt,
		&r.DissolvedSolids,
		&r.Density,
		&r.PH,
		&r.PHMax,
		&r.PHMaxAt,
		&r.OxidationReduction,
	}
}

// IsReadingColumn reports whether name is a column of the readings table
// that can take part in a conflict policy.
func IsReadingColumn(name string) bool {
	for _, c := range ReadingColumns() {
		if c == name {
			return true
		}
	}
	return false
}
