package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"task-board-server/models"
)

const exportSheet = "Tasks"

var exportHeaders = []string{
	"Order ID", "Customer", "Phone", "Address", "Pincode", "Date", "Time Slot",
	"Services", "Status", "Total", "Assigned Workers", "Accepted By", "Completed", "Canceled", "Created At",
}

type taskLister interface {
	ListAll(ctx context.Context) ([]models.Task, error)
}

// ExportService renders the task board as an XLSX workbook.
type ExportService struct {
	tasks taskLister
	log   *zap.Logger
}

func NewExportService(tasks taskLister, log *zap.Logger) *ExportService {
	return &ExportService{tasks: tasks, log: log}
}

func (s *ExportService) ExportTasks(ctx context.Context, w io.Writer) (int, error) {
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	f, err := BuildTaskWorkbook(tasks)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("closing workbook", zap.Error(err))
		}
	}()

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	s.log.Info("tasks exported", zap.Int("rows", len(tasks)))
	return len(tasks), nil
}

// BuildTaskWorkbook lays out one header row followed by one row per task.
func BuildTaskWorkbook(tasks []models.Task) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, t := range tasks {
		row := []interface{}{
			t.OrderID,
			t.CustomerName,
			t.Phone,
			t.Address,
			t.Pincode,
			t.Date,
			t.TimeSlot,
			t.Description(),
			string(t.Status),
			t.Total,
			strings.Join(t.WorkerIDs(), ", "),
			t.AcceptedWorker(),
			yesNo(t.IsCompleted),
			yesNo(t.IsCanceled),
			t.CreatedAt.Format("02.01.2006 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
