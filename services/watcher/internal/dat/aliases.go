package dat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

// TimestampField is the name used in alias files for the primary timestamp
// column, which is not a models.Field.
const TimestampField = "timestamp"

// timestampFallbacks are searched when no timestamp alias matched.
var timestampFallbacks = []string{"Fecha", "TIMESTAMP"}

// FieldSpec binds a canonical field to its ordered source-column aliases.
type FieldSpec struct {
	Field   models.Field
	Aliases []string
}

// AliasTable is the static mapping used by the header mapper. It is
// immutable once built and may be shared across files.
type AliasTable struct {
	Timestamp []string
	Fields    []FieldSpec
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() AliasTable {
	return AliasTable{
		Fields: []FieldSpec{
			{Field: models.FieldRecordID, Aliases: []string{"R", "RECORD"}},
			{Field: models.FieldBatteryVoltage, Aliases: []string{"BattV"}},
			{Field: models.FieldPanelTemp, Aliases: []string{"PTemp"}},
			{Field: models.FieldDissolvedOxygen, Aliases: []string{"COxigeno_dis(mg/L)", "COxigeno_dis"}},
			{Field: models.FieldOxygenMax, Aliases: []string{"COxigeno_dis_max"}},
			{Field: models.FieldOxygenMaxAt, Aliases: []string{"COxigeno_dis_Tmax"}},
			{Field: models.FieldOxygenPercent, Aliases: []string{"Porcent_Oxigeno"}},
			{Field: models.FieldOxygenPressure, Aliases: []string{"Presionp_oxigeno"}},
			{Field: models.FieldWaterTemp, Aliases: []string{"Temperatura"}},
			{Field: models.FieldConductivity, Aliases: []string{"Conductividad"}},
			{Field: models.FieldSalinity, Aliases: []string{"Salinidad(%)"}},
			{Field: models.FieldSalinityMax, Aliases: []string{"Salinidad_max"}},
			{Field: models.FieldSalinityMaxAt, Aliases: []string{"Salinidad_Tmax"}},
			{Field: models.FieldDissolvedSolids, Aliases: []string{"TSD"}},
			{Field: models.FieldDensity, Aliases: []string{"Densidad"}},
			{Field: models.FieldPH, Aliases: []string{"pH(pH)", "pH_avg", "pH"}},
			{Field: models.FieldPHMax, Aliases: []string{"pH_max"}},
			{Field: models.FieldPHMaxAt, Aliases: []string{"pH_Tmax"}},
			{Field: models.FieldORP, Aliases: []string{"ORP"}},
		},
	}
}

// aliasFile is the YAML document accepted by LoadAliases.
type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// ParseAliases extends base with the aliases of a YAML document. Extra
// aliases are appended after the built-in ones, so built-ins keep priority.
func ParseAliases(base AliasTable, data []byte) (AliasTable, error) {
	var doc aliasFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return base, fmt.Errorf("parse aliases: %w", err)
	}

	out := base.clone()
	for name, extra := range doc.Aliases {
		if name == TimestampField {
			out.Timestamp = append(out.Timestamp, extra...)
			continue
		}
		field, ok := models.ParseField(name)
		if !ok {
			return base, fmt.Errorf("parse aliases: unknown field %q", name)
		}
		for i := range out.Fields {
			if out.Fields[i].Field == field {
				out.Fields[i].Aliases = append(out.Fields[i].Aliases, extra...)
			}
		}
	}
	return out, nil
}

// LoadAliases reads a YAML alias file and extends the default table. An empty
// path returns the defaults.
func LoadAliases(path string) (AliasTable, error) {
	table := DefaultAliases()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read aliases: %w", err)
	}
	return ParseAliases(table, data)
}

func (t AliasTable) clone() AliasTable {
	out := AliasTable{
		Timestamp: append([]string(nil), t.Timestamp...),
		Fields:    make([]FieldSpec, len(t.Fields)),
	}
	for i, spec := range t.Fields {
		out.Fields[i] = FieldSpec{Field: spec.Field, Aliases: append([]string(nil), spec.Aliases...)}
	}
	return out
}
