package events

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartsecurity/cli/internal/api"
	"github.com/smartsecurity/cli/internal/app"
	"github.com/smartsecurity/cli/internal/format"
	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/notify"
	"github.com/smartsecurity/cli/internal/realtime"
	"github.com/smartsecurity/cli/internal/utils"
	"github.com/smartsecurity/cli/internal/watch"
)

// EventsCmd represents the events command
var EventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"event"},
	Short:   "Event history and live alarms",
	Long: `Event commands for SmartSecurity CLI.

Browse the motion and device history, summarize it, or watch live events
as the sensors report them.`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent events",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the event history",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch live motion events",
	Long: `Keep a realtime connection open and surface motion events as they arrive.

In the foreground app state every event is printed as an alert. In the
background or inactive state a notification is scheduled instead and the
badge counter grows until the client returns to the foreground.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	motionOnly, _ := cmd.Flags().GetBool("motion")
	device, _ := cmd.Flags().GetString("device")

	if motionOnly && device != "" {
		return utils.NewValidationError("motion", "cannot be combined with --device")
	}

	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	var events []models.Event
	switch {
	case device != "":
		mac, macErr := utils.NormalizeMAC(device)
		if macErr != nil {
			return macErr
		}
		events, err = a.Client.ListDeviceEvents(cmd.Context(), mac, limit)
	case motionOnly:
		events, err = a.Client.ListMotionEvents(cmd.Context(), limit)
	default:
		events, err = a.Client.ListEvents(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}
	return format.Print(format.EventList(events))
}

func runStats(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")

	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := a.Client.EventStats(cmd.Context(), days)
	if err != nil {
		return err
	}
	return format.Print(format.Stats{EventStats: stats})
}

func runWatch(cmd *cobra.Command, args []string) error {
	rawState, _ := cmd.Flags().GetString("app-state")
	state, err := notify.ParseAppState(rawState)
	if err != nil {
		return utils.NewValidationError("app-state", err.Error())
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx := cmd.Context()
	a, err := app.LoggedIn(ctx)
	if err != nil {
		return err
	}
	if metricsAddr == "" {
		metricsAddr = a.Config.Metrics.Addr
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if metricsAddr != "" {
		go func() {
			if err := a.Metrics.Serve(ctx, a.Log, metricsAddr); err != nil {
				a.Log.Error("metrics.serve.fail", "addr", metricsAddr, "err", err)
			}
		}()
	}

	router := notify.NewRouter(notify.Options{
		Alerter:   notify.NewConsoleAlerter(os.Stdout),
		Scheduler: notify.NewLogScheduler(a.Log),
		Logger:    a.Log,
		Metrics:   a.Metrics,
		AppState:  state,
	})

	ch := a.Channel()
	lost := make(chan struct{}, 1)
	stopWatching := ch.OnStateChange(func(s realtime.State) {
		switch s {
		case realtime.Connected:
			format.PrintInfo("Connected, waiting for events (Ctrl+C to stop)")
		case realtime.Reconnecting:
			format.PrintWarning("Connection lost, reconnecting...")
		case realtime.Disconnected:
			select {
			case lost <- struct{}{}:
			default:
			}
		}
	})
	defer stopWatching()

	binder := watch.Bind(ctx, a.Log, a.Session, ch, router)
	defer binder.Close()

	select {
	case <-ctx.Done():
		format.PrintInfo("Stopped")
		return nil
	case <-lost:
		return errors.New("realtime connection lost, giving up after repeated failures")
	}
}

func init() {
	listCmd.Flags().IntP("limit", "l", api.DefaultEventLimit, "Maximum number of events")
	listCmd.Flags().Bool("motion", false, "Only motion events")
	listCmd.Flags().StringP("device", "d", "", "Only events of the device with this MAC")

	statsCmd.Flags().Int("days", 7, "Number of days to summarize")

	watchCmd.Flags().String("app-state", string(notify.Foreground), "App state used for routing (active, background, inactive)")
	watchCmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")

	EventsCmd.AddCommand(listCmd)
	EventsCmd.AddCommand(statsCmd)
	EventsCmd.AddCommand(watchCmd)
}
