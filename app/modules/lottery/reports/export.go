package lotteryreports

import (
	"fmt"
	"time"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet   = "Summary"
	DrawsSheet     = "Draws"
	TransfersSheet = "Transfers"
)

// ExportXLSX writes a workbook with a summary of the lottery, its draw
// history and its transfer journal. Amounts are written as decimal text so
// 256 bit values survive spreadsheet number precision.
func ExportXLSX(lottery lotteryservice.LotteryView, draws []lotteryservice.DrawView, transfers []lotteryservice.TransferView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	summary := [][]any{
		{"Lottery", lottery.ID.String()},
		{"Owner", lottery.Owner},
		{"Round", lottery.RoundNumber},
		{"Phase", lottery.PhaseName},
		{"Entry fee", lottery.EntryFee.String()},
		{"Draw time", lottery.DrawTime.UTC().Format(time.RFC3339)},
		{"Pool balance", lottery.PoolBalance.String()},
		{"Winning number", lottery.WinningNumber},
		{"Payout policy", lottery.PayoutPolicy},
		{"Total entries", lottery.TotalEntries},
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return nil, err
	}

	drawRows := [][]any{{"Round", "Winning number", "Entries", "Winners", "Total payout", "Pool before", "Pool after", "Drawn by", "Drawn at"}}
	for _, d := range draws {
		drawRows = append(drawRows, []any{
			d.RoundNumber,
			d.WinningNumber,
			d.Entries,
			d.WinnerCount,
			d.TotalPayout.String(),
			d.PoolBefore.String(),
			d.PoolAfter.String(),
			d.DrawnBy,
			d.DrawnAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeSheet(f, DrawsSheet, drawRows); err != nil {
		return nil, err
	}

	transferRows := [][]any{{"Round", "Kind", "Counterparty", "Amount", "Status", "Created at"}}
	for _, t := range transfers {
		transferRows = append(transferRows, []any{
			t.RoundNumber,
			t.Kind,
			t.Counterparty,
			t.Amount.String(),
			t.Status,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeSheet(f, TransfersSheet, transferRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, sheet, err)
		}
	}
	return nil
}
