package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scriptflow/internal/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session counts per pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(runCtx context.Context, store *session.Store) error {
				stats, err := store.Stats(runCtx)
				if err != nil {
					return fmt.Errorf("collect session stats: %w", err)
				}

				states := []session.StageState{
					session.StateNone,
					session.StateReady,
					session.StateStart,
					session.StateDone,
					session.StateError,
				}
				headers := []string{"STAGE"}
				aligns := []columnAlignment{alignLeft}
				for _, state := range states {
					headers = append(headers, state.String())
					aligns = append(aligns, alignRight)
				}

				rows := make([][]string, 0, len(session.Stages()))
				for _, stage := range session.Stages() {
					row := []string{stage.String()}
					for _, state := range states {
						row = append(row, strconv.FormatInt(stats.CountOf(stage, state), 10))
					}
					rows = append(rows, row)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Sessions: %d\n", stats.Total)
				writeTable(out, headers, rows, aligns)
				return nil
			})
		},
	}
}
