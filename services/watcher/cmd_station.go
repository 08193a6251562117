package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
	"github.com/hidrolab/telemetria/services/watcher/internal/provision"
)

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Manage registered stations",
}

var stationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a station",
	Long: `Registers a station so files named after its code can be ingested.
When STATION_DATA_ROOT is set, a data directory named after the code is
created under it.`,
	RunE: runStationAdd,
}

var stationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered stations",
	RunE:  runStationList,
}

func init() {
	addStationFlags(stationAddCmd)

	rootCmd.AddCommand(stationCmd)
	stationCmd.AddCommand(stationAddCmd)
	stationCmd.AddCommand(stationListCmd)
}

func addStationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("code", "", "station code as it appears in file names")
	f.String("name", "", "display name")
	f.Int64("project", 0, "project id")
	f.Float64("min-oxygen", 4.0, "dissolved oxygen alert threshold (mg/L)")
	f.Float64("min-battery", 11.5, "battery alert threshold (V)")
	f.Float64("lat", 0, "latitude")
	f.Float64("lon", 0, "longitude")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("name")
}

func stationFromFlags(cmd *cobra.Command) (*models.Station, error) {
	f := cmd.Flags()
	st := &models.Station{}
	st.Code, _ = f.GetString("code")
	st.Name, _ = f.GetString("name")
	st.MinOxygen, _ = f.GetFloat64("min-oxygen")
	st.MinBattery, _ = f.GetFloat64("min-battery")

	if st.Code == "" || st.Name == "" {
		return nil, fmt.Errorf("--code and --name are required")
	}
	if f.Changed("project") {
		id, _ := f.GetInt64("project")
		st.ProjectID = &id
	}
	if f.Changed("lat") {
		v, _ := f.GetFloat64("lat")
		st.Latitude = &v
	}
	if f.Changed("lon") {
		v, _ := f.GetFloat64("lon")
		st.Longitude = &v
	}
	return st, nil
}

func runStationAdd(cmd *cobra.Command, _ []string) error {
	a := fromContext(cmd.Context())

	st, err := stationFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := openBackend(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateStation(cmd.Context(), st); err != nil {
		return fmt.Errorf("create station %s: %w", st.Code, err)
	}
	a.logger.Info("station registered", zap.String("station", st.Code), zap.Int64("id", st.ID))

	if err := provision.DataDir(a.cfg.StationDataRoot)(cmd.Context(), st); err != nil {
		return err
	}
	return nil
}

func runStationList(cmd *cobra.Command, _ []string) error {
	a := fromContext(cmd.Context())

	store, err := openBackend(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	stations, err := store.ListStations(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tMIN O2\tMIN BATT")
	for _, st := range stations {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\n", st.ID, st.Code, st.Name, st.MinOxygen, st.MinBattery)
	}
	return w.Flush()
}
