package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-scheduling-core/internal/service"
	"github.com/noah-isme/sma-scheduling-core/pkg/export"
)

func newTimetableCmd() *cobra.Command {
	var (
		quarterID string
		format    string
		output    string
	)

	cmd := &cobra.Command{
		Use:       "timetable <instructor|classroom|group> <id>",
		Short:     "Export one resource's weekly timetable as CSV or PDF",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{service.TimetableInstructor, service.TimetableClassroom, service.TimetableGroup},
		RunE: func(cmd *cobra.Command, args []string) error {
			if quarterID == "" {
				return fmt.Errorf("--quarter is required")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			body, err := core.Assignments.ExportTimetable(cmd.Context(), args[0], args[1], quarterID, f)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = os.Stdout.Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			core.Logger.Sugar().Infow("timetable exported", "file", output, "bytes", len(body))
			return nil
		},
	}

	cmd.Flags().StringVar(&quarterID, "quarter", "", "Quarter ID")
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "Output format: csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
