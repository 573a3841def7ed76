package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"task-board-server/config"
	"task-board-server/models"
)

func testCloudinaryConfig() config.CloudinaryConfig {
	return config.CloudinaryConfig{}
}

func TestExportService_ExportTasks(t *testing.T) {
	accepted := acceptedTask("MU001", "MU002")
	repo := newMemTaskRepo(newTask("CL001"), accepted)
	svc := NewExportService(repo, testLogger())

	var buf bytes.Buffer
	n, err := svc.ExportTasks(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])

	// newest first
	assert.Equal(t, "MU1234", rows[1][0])
	assert.Equal(t, "Accepted", rows[1][8])
	assert.Equal(t, "MU001, MU002", rows[1][10])
	assert.Equal(t, "MU001", rows[1][11])
	assert.Equal(t, "Waiting for approval", rows[2][8])
}

func TestBuildTaskWorkbook_Empty(t *testing.T) {
	f, err := BuildTaskWorkbook([]models.Task{})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, exportSheet, f.GetSheetName(0))
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
