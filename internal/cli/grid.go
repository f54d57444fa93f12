package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fieldslots/internal/availability/fetcher"
	"fieldslots/internal/availability/grid"
)

func gridCmd(outputJSON *bool, load func() *env) *cobra.Command {
	var branchID int64
	var date string
	var fields []int64

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Show booked hours per field for a branch and date",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := grid.Scope{BranchID: branchID, Date: date}
			if err := scope.Validate(); err != nil {
				return err
			}

			e := load()
			f := fetcher.NewSnapshotFetcher(
				e.api,
				fetcher.NewHTTPReservationSource(e.api),
				e.validator,
				e.metrics,
				e.cfg.Log,
			)
			snap, err := f.Fetch(cmd.Context(), scope.BranchID, scope.Date)
			if err != nil {
				return err
			}

			candidates := e.cfg.CandidateHours()
			booked := snap.BookedHours(grid.NewBuilder(e.cfg.Location, candidates))
			g := grid.New(scope, 1, snap.Source, candidates, booked)

			if *outputJSON {
				return writeJSON(cmd.OutOrStdout(), g.View())
			}
			return renderGrid(cmd.OutOrStdout(), g, fields)
		},
	}

	cmd.Flags().Int64Var(&branchID, "branch", 0, "Branch ID (0 for all branches)")
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().Int64SliceVar(&fields, "field", nil, "Field IDs to always list, even without bookings")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

// renderGrid prints one row per field: "#" booked, "." free.
func renderGrid(w io.Writer, g *grid.Grid, extra []int64) error {
	scope := g.Scope()
	if _, err := fmt.Fprintf(w, "Branch %d  %s  source=%s\n", scope.BranchID, scope.Date, g.Source()); err != nil {
		return err
	}

	ids := g.Fields()
	for _, id := range extra {
		if _, ok := g.Booked(id); !ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		_, err := fmt.Fprintln(w, "No bookings; every field is open.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	header := []string{"FIELD"}
	for _, h := range g.Candidates() {
		header = append(header, fmt.Sprintf("%02d", h))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, id := range ids {
		row := []string{fmt.Sprintf("%d", id)}
		for _, h := range g.Candidates() {
			mark := "."
			if g.IsBooked(id, h) {
				mark = "#"
			}
			row = append(row, mark)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
