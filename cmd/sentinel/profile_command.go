package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/intel"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the subject profile, watchlist and personal alerts",
	}
	profileCmd.AddCommand(newProfileShowCommand(ctx))
	profileCmd.AddCommand(newProfileSetCommand(ctx))
	profileCmd.AddCommand(newWatchCommand(ctx))
	profileCmd.AddCommand(newAlertCommand(ctx))
	return profileCmd
}

// #region subject
func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the subject profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			p, err := st.GetActiveSubject()
			if errors.Is(err, store.ErrNotFound) {
				return errors.New("no subject profile; create one with `sentinel profile set`")
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			rows := [][]string{
				{"Name", p.FullName},
				{"Age", strconv.Itoa(p.Age)},
				{"Nationality", p.Nationality},
				{"Location", fmt.Sprintf("%s, %s", p.CurrentCity, p.CurrentCountry)},
				{"Home", fmt.Sprintf("%.4f, %.4f", p.HomeLatitude, p.HomeLongitude)},
				{"Vehicle", fmt.Sprintf("%s %s (%s)", p.VehicleMake, p.VehicleModel, p.VehicleType)},
				{"Immigration", p.ImmigrationStatus},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newProfileSetCommand(ctx *commandContext) *cobra.Command {
	var p store.SubjectProfile
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update the subject profile; only given flags change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			cur, err := st.GetActiveSubject()
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}

			f := cmd.Flags()
			set := func(name string, dst *string, v string) {
				if f.Changed(name) {
					*dst = v
				}
			}
			set("name", &cur.FullName, p.FullName)
			set("gender", &cur.Gender, p.Gender)
			set("ethnicity", &cur.Ethnicity, p.Ethnicity)
			set("nationality", &cur.Nationality, p.Nationality)
			set("country", &cur.CurrentCountry, strings.ToUpper(p.CurrentCountry))
			set("city", &cur.CurrentCity, p.CurrentCity)
			set("vehicle-type", &cur.VehicleType, p.VehicleType)
			set("vehicle-make", &cur.VehicleMake, p.VehicleMake)
			set("vehicle-model", &cur.VehicleModel, p.VehicleModel)
			set("immigration", &cur.ImmigrationStatus, p.ImmigrationStatus)
			set("values", &cur.Values, p.Values)
			set("health", &cur.HealthApproach, p.HealthApproach)
			set("skills", &cur.Skills, p.Skills)
			if f.Changed("age") {
				cur.Age = p.Age
			}
			if f.Changed("lat") {
				cur.HomeLatitude = p.HomeLatitude
			}
			if f.Changed("lon") {
				cur.HomeLongitude = p.HomeLongitude
			}

			if err := st.SaveSubject(cur); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved profile for %s\n", cur.FullName)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.FullName, "name", "", "Full name")
	f.IntVar(&p.Age, "age", 0, "Age")
	f.StringVar(&p.Gender, "gender", "", "Gender")
	f.StringVar(&p.Ethnicity, "ethnicity", "", "Ethnicity")
	f.StringVar(&p.Nationality, "nationality", "", "Nationality")
	f.StringVar(&p.CurrentCountry, "country", "", "Country code of residence")
	f.StringVar(&p.CurrentCity, "city", "", "City of residence")
	f.Float64Var(&p.HomeLatitude, "lat", 0, "Home latitude")
	f.Float64Var(&p.HomeLongitude, "lon", 0, "Home longitude")
	f.StringVar(&p.VehicleType, "vehicle-type", "", "Vehicle category (suv, sedan, luxury, ...)")
	f.StringVar(&p.VehicleMake, "vehicle-make", "", "Vehicle make")
	f.StringVar(&p.VehicleModel, "vehicle-model", "", "Vehicle model")
	f.StringVar(&p.ImmigrationStatus, "immigration", "", "Immigration status")
	f.StringVar(&p.Values, "values", "", "Personal values")
	f.StringVar(&p.HealthApproach, "health", "", "Health approach")
	f.StringVar(&p.Skills, "skills", "", "Skills")
	return cmd
}

// #endregion subject

// #region watchlist
func newWatchCommand(ctx *commandContext) *cobra.Command {
	watchCmd := &cobra.Command{Use: "watch", Short: "Manage watchlist destinations"}

	var w store.WatchlistItem
	add := &cobra.Command{
		Use:   "add <country-code> <country-name>",
		Short: "Add a destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			w.CountryCode, w.CountryName = strings.ToUpper(args[0]), args[1]
			id, err := st.AddWatchlistItem(w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d: %s\n", id, intel.WatchlistLabel(w))
			return nil
		},
	}
	add.Flags().StringVar(&w.City, "city", "", "City")
	add.Flags().StringVar(&w.StateProvince, "state", "", "State or province")
	add.Flags().StringVar(&w.Reason, "reason", "", "Why this place is watched")

	list := &cobra.Command{
		Use:   "list",
		Short: "List destinations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			items, err := st.ListWatchlist()
			if err != nil {
				return err
			}
			rows := make([][]string, len(items))
			for i, it := range items {
				rows[i] = []string{strconv.FormatInt(it.ID, 10), intel.WatchlistLabel(it), it.Reason}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Destination", "Reason"}, rows,
				[]columnAlignment{alignRight}))
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad id %q", args[0])
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			return st.RemoveWatchlistItem(id)
		},
	}

	watchCmd.AddCommand(add, list, rm)
	return watchCmd
}

// #endregion watchlist

// #region alerts
func newAlertCommand(ctx *commandContext) *cobra.Command {
	alertCmd := &cobra.Command{Use: "alert", Short: "Manage standing personal alerts"}

	add := &cobra.Command{
		Use:   "add <description>",
		Short: "Add an alert researched in every brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			id, err := st.AddPersonalAlert(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added alert %d\n", id)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List active alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			alerts, err := st.ActivePersonalAlerts()
			if err != nil {
				return err
			}
			rows := make([][]string, len(alerts))
			for i, a := range alerts {
				rows[i] = []string{strconv.FormatInt(a.ID, 10), a.Description, a.CreatedAt.Format("2006-01-02")}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Alert", "Since"}, rows,
				[]columnAlignment{alignRight}))
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Deactivate an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad id %q", args[0])
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			return st.DeactivatePersonalAlert(id)
		},
	}

	alertCmd.AddCommand(add, list, rm)
	return alertCmd
}

// #endregion alerts
