package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fieldslots/internal/availability/gateway"
	"fieldslots/internal/availability/grid"
	"fieldslots/pkg/model"
)

func bookCmd(outputJSON *bool, load func() *env) *cobra.Command {
	var fieldID int64
	var date string
	var start, end int

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Submit a booking for a field and hour range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if end <= start {
				return fmt.Errorf("--end must be after --start")
			}

			e := load()
			gw := gateway.NewBookingGateway(e.api, e.validator, e.metrics, e.cfg.Log)
			reservation, err := gw.Submit(cmd.Context(), &model.BookingRequest{
				FieldID:     fieldID,
				BookingDate: date,
				StartTime:   grid.FormatHour(start),
				EndTime:     grid.FormatHour(end),
			})
			if err != nil {
				return err
			}

			if *outputJSON {
				return writeJSON(cmd.OutOrStdout(), reservation)
			}
			return renderReservation(cmd.OutOrStdout(), reservation)
		},
	}

	cmd.Flags().Int64Var(&fieldID, "field", 0, "Field ID")
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&start, "start", 0, "Start hour (0-23)")
	cmd.Flags().IntVar(&end, "end", 0, "End hour, exclusive (1-23)")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func renderReservation(w io.Writer, r *model.Reservation) error {
	id := r.ID
	if id == "" {
		id = "(pending)"
	}
	_, err := fmt.Fprintf(w, "Booked field %d on %s %s-%s  id=%s\n", r.FieldID, r.BookingDate, r.StartTime, r.EndTime, id)
	return err
}
