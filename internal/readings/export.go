package readings

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/HerbHall/havenwatch/pkg/models"
)

const (
	healthSheet      = "Health"
	environmentSheet = "Environment"
	timeLayout       = "2006-01-02 15:04:05"
)

var (
	healthHeader      = []string{"Timestamp", "Heart Rate (bpm)", "Blood Pressure (mmHg)", "Blood Oxygen (%)"}
	environmentHeader = []string{"Timestamp", "Room Temperature (°C)", "Humidity (%)", "Air Quality", "Gas Level (%)"}
)

// writeWorkbook renders one sheet per reading kind and writes the workbook
// to w. An empty kind still gets its header row.
func writeWorkbook(w io.Writer, health []models.HealthReading, env []models.EnvironmentReading) error {
	f := excelize.NewFile()
	defer f.Close()

	healthIdx, err := f.NewSheet(healthSheet)
	if err != nil {
		return fmt.Errorf("create %s sheet: %w", healthSheet, err)
	}
	if _, err := f.NewSheet(environmentSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", environmentSheet, err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(healthIdx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	healthRows := make([][]any, 0, len(health))
	for _, h := range health {
		healthRows = append(healthRows, []any{
			h.Timestamp.UTC().Format(timeLayout), h.HeartRate, h.BloodPressure, h.BloodOxygen,
		})
	}
	if err := writeSheet(f, healthSheet, healthHeader, healthRows, headerStyle); err != nil {
		return err
	}

	envRows := make([][]any, 0, len(env))
	for _, e := range env {
		envRows = append(envRows, []any{
			e.Timestamp.UTC().Format(timeLayout), e.RoomTemperature, e.Humidity, e.AirQuality, e.GasLevel,
		})
	}
	if err := writeSheet(f, environmentSheet, environmentHeader, envRows, headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("set header %s!%s: %w", sheet, cell, err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return fmt.Errorf("set %s column width: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
