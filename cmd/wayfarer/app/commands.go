package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayfarerhq/wayfarer/pkg/logging"
)

func (a *App) formatter() Formatter {
	return NewFormatter(Format(a.config.Output))
}

func (a *App) placesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "places",
		Short: "List the canonical place catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			catalog := client.Places()
			if a.config.Output == string(FormatJSON) || a.config.Output == string(FormatYAML) {
				return a.formatter().Format(cmd.OutOrStdout(), catalog)
			}

			rows := make([][]string, 0, len(catalog))
			for _, p := range catalog {
				rows = append(rows, []string{
					p.ExternalID,
					p.Name,
					flagMark(p.Visited),
					flagMark(p.Wishlisted),
					flagMark(p.Favorited),
					strconv.Itoa(len(p.Reviews)),
				})
			}
			return a.formatter().Format(cmd.OutOrStdout(), TableData{
				Headers: []string{"external_id", "name", "visited", "wishlisted", "favorited", "reviews"},
				Rows:    rows,
			})
		},
	}
}

func (a *App) tripsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips [trip-id]",
		Short: "List trips, or show one trip's resolved stops",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return a.showTrip(cmd, args[0])
			}

			trips := client.Trips()
			if a.config.Output == string(FormatJSON) || a.config.Output == string(FormatYAML) {
				return a.formatter().Format(cmd.OutOrStdout(), trips)
			}

			rows := make([][]string, 0, len(trips))
			for _, trip := range trips {
				date := ""
				if !trip.Date.IsZero() {
					date = trip.Date.Format("2006-01-02")
				}
				rows = append(rows, []string{trip.ID, trip.Name, date, strconv.Itoa(len(trip.Stops))})
			}
			return a.formatter().Format(cmd.OutOrStdout(), TableData{
				Headers: []string{"id", "name", "date", "stops"},
				Rows:    rows,
			})
		},
	}
	return cmd
}

func (a *App) showTrip(cmd *cobra.Command, tripID string) error {
	client, err := a.Client()
	if err != nil {
		return err
	}

	resolved, err := client.ResolveTrip(tripID)
	if err != nil {
		return err
	}
	if a.config.Output == string(FormatJSON) || a.config.Output == string(FormatYAML) {
		return a.formatter().Format(cmd.OutOrStdout(), resolved)
	}

	rows := make([][]string, 0, len(resolved))
	for i, stop := range resolved {
		name := "(unknown place)"
		if stop.Place != nil {
			name = stop.Place.Name
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), stop.PlaceID, name, stop.Notes})
	}
	return a.formatter().Format(cmd.OutOrStdout(), TableData{
		Headers: []string{"order", "place_id", "name", "notes"},
		Rows:    rows,
	})
}

func (a *App) queueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show mutations queued for replay",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			pending, err := client.PendingMutations(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(pending))
			for _, m := range pending {
				rows = append(rows, []string{
					m.TempID,
					m.Kind,
					m.CreatedAt.Format(time.RFC3339),
					strconv.Itoa(len(m.Attachments)),
				})
			}
			return a.formatter().Format(cmd.OutOrStdout(), TableData{
				Headers: []string{"temp_id", "kind", "created_at", "attachments"},
				Rows:    rows,
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Abandon all queued mutations",
		Long: `Clear drops every queued mutation without replaying it and rolls back the
optimistic state it left behind. Use this when a queued mutation can never be
accepted by the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}
			dropped, err := client.ClearPending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d queued mutation(s)\n", dropped)
			return nil
		},
	})
	return cmd
}

func (a *App) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued mutations against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			result, err := client.SyncPending(cmd.Context())
			if err != nil {
				return err
			}

			logging.Info().
				Int("replayed", result.Replayed).
				Int("failed", result.Failed).
				Int("remaining", result.Remaining).
				Msg("Sync finished")
			return a.formatter().Format(cmd.OutOrStdout(), result)
		},
	}
}

func (a *App) observeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "observe <file>...",
		Short: "Merge raw records from JSON files into the catalog",
		Long: `Observe reads raw upstream records from JSON files (a single object or an
array of objects per file), classifies each by structural shape, and merges
them into the canonical catalog.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Client()
			if err != nil {
				return err
			}

			merged := 0
			for _, path := range args {
				records, err := readRawRecords(path)
				if err != nil {
					return err
				}
				for _, raw := range records {
					place, err := client.Observe(raw)
					if err != nil {
						logging.Warn().Err(err).Str("file", path).Msg("Skipping record")
						continue
					}
					logging.Debug().Str("external_id", place.ExternalID).Msg("Merged record")
					merged++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d record(s)\n", merged)
			return nil
		},
	}
}

// readRawRecords decodes one JSON file into raw records. The file may hold a
// single object or an array of objects.
func readRawRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var many []map[string]any
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	var one map[string]any
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("%s: not a JSON object or array of objects: %w", path, err)
	}
	return []map[string]any{one}, nil
}

func flagMark(set bool) string {
	if set {
		return "yes"
	}
	return "-"
}
