package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
	"github.com/noah-isme/sma-scheduling-core/pkg/export"
)

// Timetable resources accepted by ExportTimetable.
const (
	TimetableInstructor = "instructor"
	TimetableClassroom  = "classroom"
	TimetableGroup      = "group"
)

var timetableHeaders = []string{"Day", "Start", "End", "Subject", "Group", "Instructor", "Classroom"}

// ExportTimetable renders one resource's weekly timetable for a quarter as CSV or PDF.
func (s *AssignmentService) ExportTimetable(ctx context.Context, resource, id, quarterID string, format export.Format) ([]byte, error) {
	var (
		entries []models.AssignmentPlacement
		err     error
	)
	switch resource {
	case TimetableInstructor:
		entries, err = s.ListByInstructor(ctx, id, quarterID)
	case TimetableClassroom:
		entries, err = s.ListByClassroom(ctx, id, quarterID)
	case TimetableGroup:
		entries, err = s.ListByGroup(ctx, id, quarterID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timetable resource %q", resource))
	}
	if err != nil {
		return nil, err
	}

	body, err := export.Render(format, TimetableDataset(resource, id, quarterID, entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return body, nil
}

// TimetableDataset flattens placements, already in weekly order, into export rows.
func TimetableDataset(resource, id, quarterID string, entries []models.AssignmentPlacement) export.Dataset {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.DayName,
			e.StartTime.String(),
			e.EndTime.String(),
			e.Subject,
			e.GroupID,
			e.InstructorID,
			e.ClassroomID,
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Timetable for %s %s, quarter %s", resource, id, quarterID),
		Headers: timetableHeaders,
		Rows:    rows,
	}
}
