package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Name", "Status"},
		Rows: []map[string]string{
			{"Name": "Ann", "Status": "ready"},
			{"Name": "Bo, Jr.", "Status": "in-progress"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, "Name,Status\nAnn,ready\n\"Bo, Jr.\",in-progress\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Roster")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRenderReadable(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Roster: 2026/27")
	require.NoError(t, err)

	rows, err := ReadRows(bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Status"}, rows[0])
	assert.Equal(t, []string{"Bo, Jr.", "in-progress"}, rows[2])
}

func TestXLSXExporterBoldsHeaderRow(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Roster")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	for _, cell := range []string{"A1", "B1"} {
		id, err := f.GetCellStyle("Roster", cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)
		require.NotNil(t, style.Font, cell)
		assert.True(t, style.Font.Bold, cell)
	}
	id, err := f.GetCellStyle("Roster", "A2")
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestReadRowsRejectsGarbage(t *testing.T) {
	_, err := ReadRows(strings.NewReader("not a workbook"))
	assert.Error(t, err)
}

func TestSheetNameSanitises(t *testing.T) {
	assert.Equal(t, "Roster 202627", sheetName("Roster: 2026/27"))
	assert.Equal(t, "Sheet1", sheetName("  "))
	assert.Len(t, sheetName(strings.Repeat("a", 40)), 31)
}
