package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/strainix/timetrack/internal/models"
)

func codeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "code",
		Short: "Generate a new sync code for this account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.engine.SetOnline(cmd.Context(), true)
			code, err := a.engine.GenerateUserCode(cmd.Context())
			if err != nil {
				return fmt.Errorf("generate code: %w", err)
			}
			fmt.Printf("sync code: %s\n", code)
			fmt.Println("run `timetrack use <code>` on your other devices to share sessions")
			return nil
		},
	}
}

func useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <code>",
		Short: "Adopt an existing sync code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.engine.SetUserCode(args[0]); err != nil {
				return err
			}
			a.engine.SetOnline(cmd.Context(), true)
			fmt.Printf("using sync code %s (%d sessions known locally)\n", args[0], len(a.store.List()))
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Check in (start a work session)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.engine.SetOnline(cmd.Context(), true)

			now := models.NowMillis()
			if active := a.store.FindActive(); active != nil {
				// Mirror the server invariant locally: starting closes the
				// previous open session.
				active.EndTime = &now
				active.UpdatedAt = now
				if err := a.store.Upsert(*active); err != nil {
					return err
				}
			}
			id := a.engine.StartSession(cmd.Context(), now)
			if err := a.store.Upsert(models.Session{
				ID:        id,
				DeviceID:  a.deviceID,
				StartTime: now,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
			fmt.Printf("checked in at %s\n", time.UnixMilli(now).Format("15:04:05"))
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Check out (end the active session)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.engine.SetOnline(cmd.Context(), true)

			active := a.store.FindActive()
			if active == nil {
				fmt.Println("no active session")
				return nil
			}
			now := models.NowMillis()
			active.EndTime = &now
			active.UpdatedAt = now
			if err := a.store.Upsert(*active); err != nil {
				return err
			}
			a.engine.EndSession(cmd.Context(), active.ID, now)
			fmt.Printf("checked out after %s\n", models.FormatDuration(active.Duration(now)))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.engine.SetOnline(cmd.Context(), true)

			now := models.NowMillis()
			sessions := a.store.List()
			if len(sessions) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			for _, s := range sessions {
				day := time.UnixMilli(s.StartTime).Format("2006-01-02 15:04")
				if s.EndTime == nil {
					fmt.Printf("%s  %s  (active, %s)\n", s.ID[:8], day, models.FormatElapsed(s.Duration(now)))
					continue
				}
				fmt.Printf("%s  %s  %s\n", s.ID[:8], day, models.FormatDuration(s.Duration(now)))
			}
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain the pending queue and pull remote changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.engine.SetOnline(cmd.Context(), true)
			if force {
				a.engine.FetchSessions(cmd.Context(), true)
			}
			st := a.engine.Status()
			if st.LastError != "" {
				return fmt.Errorf("sync failed: %s", st.LastError)
			}
			fmt.Printf("synced, %d operations pending\n", st.Pending)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "full", false, "ignore the incremental watermark and refetch everything")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tracker and sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			st := a.engine.Status()
			if st.UserCode == "" {
				fmt.Println("sync: not configured (run `timetrack code`)")
			} else {
				fmt.Printf("sync code: %s\n", st.UserCode)
			}
			fmt.Printf("pending operations: %d\n", st.Pending)
			if st.LastSync > 0 {
				fmt.Printf("last sync: %s\n", time.UnixMilli(st.LastSync).Format(time.RFC3339))
			}
			if active := a.store.FindActive(); active != nil {
				fmt.Printf("active session: %s elapsed\n", models.FormatElapsed(active.Duration(models.NowMillis())))
			} else {
				fmt.Println("no active session")
			}
			return nil
		},
	}
}
