// Package export renders program lists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"programfinder/internal/programs/types"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Programs"

var headers = []any{
	"Program Type", "Address", "Address 2", "City", "State", "Zip",
	"Age Range", "Meeting Day", "Meeting Time", "Region",
	"Registration Status", "Accepting Volunteers", "Directions",
}

// Workbook builds a single-sheet workbook with one row per record, in order.
// directions may be nil.
func Workbook(records []types.ProgramRecord, directions func(types.ProgramRecord) string) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := sw.SetColWidth(1, len(headers), 18); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := sw.SetRow("A1", headers); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		link := ""
		if directions != nil {
			link = directions(r)
		}
		row := []any{
			r.ProgramType, r.Address, r.Address2, r.City, r.State, r.Zip,
			r.AgeRange, r.MeetingDay, r.MeetingTime, r.Region,
			r.RegistrationStatus, r.AcceptingVolunteers, link,
		}
		if err := sw.SetRow(cell, row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Write streams the workbook for records to w.
func Write(w io.Writer, records []types.ProgramRecord, directions func(types.ProgramRecord) string) error {
	f, err := Workbook(records, directions)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
