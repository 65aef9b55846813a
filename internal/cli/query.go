package cli

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"schedule-service/internal/app"
	"schedule-service/internal/schedule"
)

// withResolver loads the configuration, runs fn and prints its result as
// indented JSON.
func withResolver(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, r *schedule.Resolver) (any, error)) error {
	ctx := cmd.Context()
	d, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer d.Close()

	out, err := fn(ctx, d.resolver)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func busyCmd(opts *globalOptions) *cobra.Command {
	var day string

	c := &cobra.Command{
		Use:   "busy",
		Short: "Print the merged busy intervals of a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := schedule.ParseDate(day)
			if err != nil {
				return err
			}
			return withResolver(cmd, opts, func(ctx context.Context, r *schedule.Resolver) (any, error) {
				busy, err := r.BusyIntervals(ctx, d)
				return app.IntervalDTOs(busy), err
			})
		},
	}
	c.Flags().StringVarP(&day, "day", "d", "", "Day (YYYY-MM-DD, required)")
	_ = c.MarkFlagRequired("day")
	return c
}

func freeCmd(opts *globalOptions) *cobra.Command {
	var day string

	c := &cobra.Command{
		Use:   "free",
		Short: "Print the free intervals of a day within working hours",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := schedule.ParseDate(day)
			if err != nil {
				return err
			}
			return withResolver(cmd, opts, func(ctx context.Context, r *schedule.Resolver) (any, error) {
				free, err := r.FreeIntervals(ctx, d)
				return app.IntervalDTOs(free), err
			})
		},
	}
	c.Flags().StringVarP(&day, "day", "d", "", "Day (YYYY-MM-DD, required)")
	_ = c.MarkFlagRequired("day")
	return c
}

func checkCmd(opts *globalOptions) *cobra.Command {
	var day, start, end string

	c := &cobra.Command{
		Use:   "check",
		Short: "Report whether an interval is free on a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := civil.DateOf(time.Now())
			if day != "" {
				var err error
				if d, err = schedule.ParseDate(day); err != nil {
					return err
				}
			}
			interval, err := parseFlagInterval(start, end)
			if err != nil {
				return err
			}
			return withResolver(cmd, opts, func(ctx context.Context, r *schedule.Resolver) (any, error) {
				return r.IsSlotFree(ctx, schedule.TimeSlot{Day: d, Interval: interval})
			})
		},
	}
	c.Flags().StringVarP(&day, "day", "d", "", "Day (YYYY-MM-DD, default today)")
	c.Flags().StringVar(&start, "start", "12:00", "Start (HH:MM)")
	c.Flags().StringVar(&end, "end", "13:00", "End (HH:MM)")
	return c
}

func findCmd(opts *globalOptions) *cobra.Command {
	var start, end string

	c := &cobra.Command{
		Use:   "find",
		Short: "Find the first available day on which an interval is free",
		RunE: func(cmd *cobra.Command, _ []string) error {
			interval, err := parseFlagInterval(start, end)
			if err != nil {
				return err
			}
			return withResolver(cmd, opts, func(ctx context.Context, r *schedule.Resolver) (any, error) {
				slot, err := r.FindFreeSlot(ctx, interval)
				if err != nil {
					return nil, err
				}
				return app.SlotDTO(slot), nil
			})
		},
	}
	c.Flags().StringVar(&start, "start", "", "Start (HH:MM, required)")
	c.Flags().StringVar(&end, "end", "", "End (HH:MM, required)")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
	return c
}

func gapCmd(opts *globalOptions) *cobra.Command {
	var day string
	var minutes int

	c := &cobra.Command{
		Use:   "gap",
		Short: "Print the first free gap of at least N minutes on a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := schedule.ParseDate(day)
			if err != nil {
				return err
			}
			return withResolver(cmd, opts, func(ctx context.Context, r *schedule.Resolver) (any, error) {
				gap, err := r.FirstFreeGap(ctx, d, minutes)
				if err != nil {
					return nil, err
				}
				return app.IntervalDTO(gap), nil
			})
		},
	}
	c.Flags().StringVarP(&day, "day", "d", "", "Day (YYYY-MM-DD, required)")
	c.Flags().IntVarP(&minutes, "minutes", "m", 30, "Minimum gap length in minutes")
	_ = c.MarkFlagRequired("day")
	return c
}

// parseFlagInterval keeps the order as given; the resolver rejects
// reversed intervals.
func parseFlagInterval(start, end string) (schedule.TimeInterval, error) {
	from, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return schedule.TimeInterval{}, err
	}
	to, err := schedule.ParseTimeOfDay(end)
	if err != nil {
		return schedule.TimeInterval{}, err
	}
	return schedule.TimeInterval{Start: from, End: to}, nil
}
