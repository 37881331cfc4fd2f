package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

func newAuditCmd() *cobra.Command {
	var (
		quarterID string
		all       bool
		reconcile bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check stored assignments for conflicts and hour ledger drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quarterID == "" && !all {
				return fmt.Errorf("either --quarter or --all is required")
			}
			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			ids := []string{quarterID}
			if all {
				quarters, err := core.Catalog.ListQuarters(cmd.Context())
				if err != nil {
					return err
				}
				ids = ids[:0]
				for _, q := range quarters {
					ids = append(ids, q.ID)
				}
			}

			reports := make([]*models.ConsistencyReport, 0, len(ids))
			for i, id := range ids {
				// drift is global, so only the first run needs to repair it
				report, err := core.Consistency.RunAudit(cmd.Context(), id, reconcile && i == 0)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			}
			return writeJSON(reports)
		},
	}

	cmd.Flags().StringVar(&quarterID, "quarter", "", "Quarter ID to audit")
	cmd.Flags().BoolVar(&all, "all", false, "Audit every quarter")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Reset drifting hour totals to the recomputed value")
	return cmd
}

func newDriftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drift",
		Short: "List instructors whose stored hours differ from their assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			drift, err := core.Ledger.Drift(cmd.Context())
			if err != nil {
				return err
			}
			if drift == nil {
				drift = []models.LedgerDrift{}
			}
			return writeJSON(drift)
		},
	}
}
