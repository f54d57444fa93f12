package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fieldslots/internal/availability/validator"
	"fieldslots/pkg/client"
	"fieldslots/pkg/config"
	"fieldslots/pkg/metrics"
)

const ServiceName = "slotctl"

// env is what every subcommand needs; it is built lazily so --help works
// without configuration.
type env struct {
	cfg       *config.Config
	api       *client.BookingAPI
	validator *validator.PayloadValidator
	metrics   *metrics.Metrics
}

func loadEnv() *env {
	cfg := config.Load(ServiceName, config.WithLogOutput(os.Stderr))
	return &env{
		cfg:       cfg,
		api:       client.NewBookingAPI(cfg.BookingAPIURL, cfg.BookingAPITimeout),
		validator: validator.NewPayloadValidator(cfg.Location),
		metrics:   metrics.New(cfg.MetricsNamespace),
	}
}

func NewRootCmd() *cobra.Command {
	var outputJSON bool

	root := &cobra.Command{
		Use:          "slotctl",
		Short:        "Inspect field availability and book slots",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")

	root.AddCommand(gridCmd(&outputJSON, loadEnv))
	root.AddCommand(bookCmd(&outputJSON, loadEnv))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
