package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scriptflow/internal/session"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage therapy sessions",
	}

	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionAddCommand(ctx))
	sessionCmd.AddCommand(newSessionResetCommand(ctx))
	sessionCmd.AddCommand(newSessionRemoveCommand(ctx))

	return sessionCmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var stateFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(runCtx context.Context, store *session.Store) error {
				var (
					sessions []*session.Session
					err      error
				)
				switch {
				case stageFlag != "" || stateFlag != "":
					stage, state, parseErr := parseStageFilter(stageFlag, stateFlag)
					if parseErr != nil {
						return parseErr
					}
					sessions, err = store.ListByStageState(runCtx, stage, state)
				default:
					sessions, err = store.List(runCtx)
				}
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions found")
					return nil
				}

				headers := []string{"ID", "ENCODING", "SCRIPT", "ANALYZE", "ORIGIN"}
				aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}
				rows := make([][]string, 0, len(sessions))
				for _, sess := range sessions {
					rows = append(rows, []string{
						strconv.FormatInt(sess.ID, 10),
						sess.EncodingState.String(),
						sess.ScriptState.String(),
						sess.AnalyzeState.String(),
						sess.OriginVideoURL,
					})
				}
				writeTable(out, headers, rows, aligns)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "", "Filter by stage (encoding, script, analyze)")
	cmd.Flags().StringVar(&stateFlag, "state", "", "Filter by stage state (NONE, READY, START, DONE, ERROR)")
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(runCtx context.Context, store *session.Store) error {
				sess, err := store.GetByID(runCtx, id)
				if err != nil {
					return fmt.Errorf("load session %d: %w", id, err)
				}
				printSessionDetail(cmd, sess)
				return nil
			})
		},
	}
}

func newSessionAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <origin-video-url>",
		Short: "Register a new session for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			origin := strings.TrimSpace(args[0])
			return ctx.withStore(cmd.Context(), func(runCtx context.Context, store *session.Store) error {
				sess, err := store.Create(runCtx, origin)
				if err != nil {
					return fmt.Errorf("create session: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created session %d for %s\n", sess.ID, sess.OriginVideoURL)
				return nil
			})
		},
	}
}

func newSessionResetCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string

	cmd := &cobra.Command{
		Use:   "reset <id>",
		Short: "Return a failed stage to READY so the daemon retries it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			stage := session.Stage(strings.ToLower(strings.TrimSpace(stageFlag)))
			if !stage.Valid() {
				return fmt.Errorf("invalid stage %q (expected encoding, script, or analyze)", stageFlag)
			}
			return ctx.withStore(cmd.Context(), func(runCtx context.Context, store *session.Store) error {
				if err := store.ResetError(runCtx, id, stage); err != nil {
					return fmt.Errorf("reset session %d %s stage: %w", id, stage, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %d %s stage reset to READY\n", id, stage)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "", "Stage to reset (encoding, script, analyze)")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}

func newSessionRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a session record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(runCtx context.Context, store *session.Store) error {
				if err := store.Delete(runCtx, id); err != nil {
					return fmt.Errorf("remove session %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %d removed\n", id)
				return nil
			})
		},
	}
}

func parseSessionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

func parseStageFilter(stageValue, stateValue string) (session.Stage, session.StageState, error) {
	if stageValue == "" || stateValue == "" {
		return "", "", fmt.Errorf("--stage and --state must be used together")
	}
	stage := session.Stage(strings.ToLower(strings.TrimSpace(stageValue)))
	if !stage.Valid() {
		return "", "", fmt.Errorf("invalid stage %q (expected encoding, script, or analyze)", stageValue)
	}
	state, err := session.ParseStageState(strings.ToUpper(strings.TrimSpace(stateValue)))
	if err != nil {
		return "", "", err
	}
	return stage, state, nil
}

func printSessionDetail(cmd *cobra.Command, sess *session.Session) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %d\n", sess.ID)
	fmt.Fprintf(out, "  Origin video:    %s\n", sess.OriginVideoURL)
	fmt.Fprintf(out, "  Source video:    %s\n", orDash(sess.SourceVideoURL))
	fmt.Fprintf(out, "  Encoded video:   %s\n", orDash(sess.EncodingVideoURL))
	fmt.Fprintf(out, "  Script:          %s\n", orDash(sess.SourceScriptURL))
	fmt.Fprintf(out, "  Encoding state:  %s\n", sess.EncodingState)
	fmt.Fprintf(out, "  Script state:    %s\n", sess.ScriptState)
	fmt.Fprintf(out, "  Analyze state:   %s\n", sess.AnalyzeState)
	if sess.ErrorMessage != "" {
		fmt.Fprintf(out, "  Last error:      %s\n", sess.ErrorMessage)
	}
	if sess.ClaimedBy != "" {
		fmt.Fprintf(out, "  Claimed by:      %s\n", sess.ClaimedBy)
	}
	if sess.ClaimedAt != nil {
		fmt.Fprintf(out, "  Claimed at:      %s\n", sess.ClaimedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "  Created:         %s\n", sess.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "  Updated:         %s\n", sess.UpdatedAt.Format(time.RFC3339))
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
