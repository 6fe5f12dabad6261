package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// matcherFlags adds the group selection flags shared by listing and pause
// commands.
func matcherFlags(cmd *cobra.Command, group *string, prefix *bool) {
	cmd.Flags().StringVar(group, "group", "", "Group to select (all groups when empty)")
	cmd.Flags().BoolVar(prefix, "prefix", false, "Treat --group as a prefix")
}

func matcher(group string, prefix bool) core.GroupMatcher {
	switch {
	case group == "":
		return core.AnyGroup()
	case prefix:
		return core.GroupStartsWith(group)
	default:
		return core.GroupEquals(group)
	}
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show record counts and the instance lifecycle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			jobs, err := a.store.GetNumberOfJobs(ctx)
			if err != nil {
				return err
			}
			triggers, err := a.store.GetNumberOfTriggers(ctx)
			if err != nil {
				return err
			}
			calendars, err := a.store.GetNumberOfCalendars(ctx)
			if err != nil {
				return err
			}
			state, err := a.store.SchedulerState(ctx)
			if err != nil {
				return err
			}
			checkin, err := a.store.LastCheckinTime(ctx)
			if err != nil {
				return err
			}
			paused, err := a.store.GetPausedTriggerGroups(ctx)
			if err != nil {
				return err
			}

			if state == core.SchedulerUnknown {
				state = "never started"
			}
			lastCheckin := "-"
			if !checkin.IsZero() {
				lastCheckin = formatTime(&checkin)
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintf(w, "instance\t%s\n", a.cfg.Instance)
			fmt.Fprintf(w, "state\t%s\n", state)
			fmt.Fprintf(w, "last checkin\t%s\n", lastCheckin)
			fmt.Fprintf(w, "jobs\t%d\n", jobs)
			fmt.Fprintf(w, "triggers\t%d\n", triggers)
			fmt.Fprintf(w, "calendars\t%d\n", calendars)
			fmt.Fprintf(w, "paused trigger groups\t%d\n", len(paused))
			return w.Flush()
		},
	}
}

func newJobsCmd(a *app) *cobra.Command {
	var group string
	var prefix bool
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			keys, err := a.store.GetJobKeys(ctx, matcher(group, prefix))
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "GROUP\tNAME\tTYPE\tDURABLE\tNON-CONCURRENT\tTRIGGERS")
			for _, key := range keys {
				job, err := a.store.RetrieveJob(ctx, key)
				if err != nil {
					return err
				}
				if job == nil {
					continue
				}
				triggers, err := a.store.GetTriggersForJob(ctx, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%d\n",
					key.Group, key.Name, job.JobType, job.Durable, job.ConcurrentExecutionDisallowed, len(triggers))
			}
			return w.Flush()
		},
	}
	matcherFlags(cmd, &group, &prefix)
	return cmd
}

func newTriggersCmd(a *app) *cobra.Command {
	var group string
	var prefix bool
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "List triggers with their state and fire times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			keys, err := a.store.GetTriggerKeys(ctx, matcher(group, prefix))
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "GROUP\tNAME\tJOB\tSTATE\tPRIORITY\tNEXT\tPREVIOUS")
			for _, key := range keys {
				t, err := a.store.RetrieveTrigger(ctx, key)
				if err != nil {
					return err
				}
				if t == nil {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					key.Group, key.Name, t.JobKey, t.State, t.Priority,
					formatTime(t.NextFireTime), formatTime(t.PreviousFireTime))
			}
			return w.Flush()
		},
	}
	matcherFlags(cmd, &group, &prefix)
	return cmd
}

func newCalendarsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			names, err := a.store.GetCalendarNames(ctx)
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, name := range names {
				cal, err := a.store.RetrieveCalendar(ctx, name)
				if err != nil {
					return err
				}
				desc := ""
				if cal != nil {
					desc = cal.Description()
				}
				fmt.Fprintf(w, "%s\t%s\n", name, desc)
			}
			return w.Flush()
		},
	}
}

// groupsCmd builds the "pause" and "resume" command trees.
func groupsCmd(use, short string, triggers, jobs func(*cobra.Command, core.GroupMatcher) ([]string, error), all func(*cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}

	var prefix bool
	run := func(fn func(*cobra.Command, core.GroupMatcher) ([]string, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			groups, err := fn(cmd, matcher(args[0], prefix))
			if err != nil {
				return err
			}
			for _, g := range groups {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		}
	}
	triggerCmd := &cobra.Command{
		Use:   "triggers <group>",
		Short: short + " trigger groups",
		Args:  cobra.ExactArgs(1),
		RunE:  run(triggers),
	}
	triggerCmd.Flags().BoolVar(&prefix, "prefix", false, "Treat the group as a prefix")
	jobCmd := &cobra.Command{
		Use:   "jobs <group>",
		Short: short + " job groups",
		Args:  cobra.ExactArgs(1),
		RunE:  run(jobs),
	}
	jobCmd.Flags().BoolVar(&prefix, "prefix", false, "Treat the group as a prefix")
	allCmd := &cobra.Command{
		Use:   "all",
		Short: short + " everything",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return all(cmd) },
	}
	cmd.AddCommand(triggerCmd, jobCmd, allCmd)
	return cmd
}

func newPauseCmd(a *app) *cobra.Command {
	return groupsCmd("pause", "Pause",
		func(cmd *cobra.Command, m core.GroupMatcher) ([]string, error) {
			return a.store.PauseTriggers(cmd.Context(), m)
		},
		func(cmd *cobra.Command, m core.GroupMatcher) ([]string, error) {
			return a.store.PauseJobs(cmd.Context(), m)
		},
		func(cmd *cobra.Command) error { return a.store.PauseAll(cmd.Context()) },
	)
}

func newResumeCmd(a *app) *cobra.Command {
	return groupsCmd("resume", "Resume",
		func(cmd *cobra.Command, m core.GroupMatcher) ([]string, error) {
			return a.store.ResumeTriggers(cmd.Context(), m)
		},
		func(cmd *cobra.Command, m core.GroupMatcher) ([]string, error) {
			return a.store.ResumeJobs(cmd.Context(), m)
		},
		func(cmd *cobra.Command) error { return a.store.ResumeAll(cmd.Context()) },
	)
}

func newResetCmd(a *app) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "reset <trigger>",
		Short: "Return a trigger from the error state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := core.NewTriggerKey(args[0], group)
			state, err := a.store.GetTriggerState(cmd.Context(), key)
			if err != nil {
				return err
			}
			if state != core.ExternalError {
				return fmt.Errorf("trigger %s is %s, not in error", key, state)
			}
			if err := a.store.ResetTriggerFromErrorState(cmd.Context(), key); err != nil {
				return err
			}
			a.logger.Info("trigger reset", "trigger", key.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Trigger group")
	return cmd
}

func newRecoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Run startup recovery for an instance that is not running",
		Long: `recover releases every acquired and blocked trigger, recomputes the triggers
of jobs requesting recovery and purges complete triggers. Only run it while no
scheduler process owns the instance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.store.SchedulerStarted(cmd.Context())
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every job, trigger and calendar of the instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			if err := a.store.ClearAllSchedulingData(cmd.Context()); err != nil {
				return err
			}
			a.logger.Warn("scheduling data cleared", "instance", a.cfg.Instance)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
