package issuance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/errors"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// ExportSheet is the worksheet holding the ledger
const ExportSheet = "Licenses"

var exportHeaders = []interface{}{
	"ID", "Key", "Customer", "Hardware ID", "Issued At", "Expires At", "Status", "Revoked At", "File Name",
}

// utf8BOM lets Excel detect UTF-8 in CSV exports (Turkish customer names)
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportRecords writes the ledger to w as an XLSX workbook, one row per
// record in ledger order.
func (s *Service) ExportRecords(ctx context.Context, w io.Writer) (err error) {
	ctx, span := s.tracer.Start(ctx, "issuance.export")
	defer func(started time.Time) { s.finish(ctx, span, "export", started, err) }(time.Now())

	records, err := s.store.Load(ctx)
	if err != nil {
		return apperrors.NewStorageError("failed to load license records", err)
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.WarnContext(ctx, "failed to close workbook", slog.String("error", cerr.Error()))
		}
	}()

	if err := buildWorkbook(f, records); err != nil {
		return apperrors.NewStorageError("failed to build workbook", err)
	}
	if err := f.Write(w); err != nil {
		return apperrors.NewStorageError("failed to write workbook", err)
	}

	s.logger.InfoContext(ctx, "license records exported",
		slog.String("action", "export"),
		slog.Int("records", len(records)))
	return nil
}

// ExportRecordsCSV writes the ledger to w as BOM-prefixed UTF-8 CSV with
// the same columns as the workbook.
func (s *Service) ExportRecordsCSV(ctx context.Context, w io.Writer) (err error) {
	ctx, span := s.tracer.Start(ctx, "issuance.export_csv")
	defer func(started time.Time) { s.finish(ctx, span, "export_csv", started, err) }(time.Now())

	records, err := s.store.Load(ctx)
	if err != nil {
		return apperrors.NewStorageError("failed to load license records", err)
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return apperrors.NewStorageError("failed to write BOM", err)
	}

	cw := csv.NewWriter(w)
	headers := make([]string, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h.(string)
	}
	if err := cw.Write(headers); err != nil {
		return apperrors.NewStorageError("failed to write headers", err)
	}
	for i, r := range records {
		if err := cw.Write(recordRow(r)); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush csv", err)
	}

	s.logger.InfoContext(ctx, "license records exported",
		slog.String("action", "export_csv"),
		slog.Int("records", len(records)))
	return nil
}

func recordRow(r domain.LicenseRecord) []string {
	return []string{
		r.ID, r.Key, r.Customer, r.HardwareID, r.IssuedAt,
		deref(r.ExpiresAt), string(r.Status), deref(r.RevokedAt), r.FileName,
	}
}

func buildWorkbook(f *excelize.File, records []domain.LicenseRecord) error {
	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeaders); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeaders))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ExportSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := recordRow(r)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ExportSheet, "A", lastCol, 24); err != nil {
		return err
	}
	return f.SetPanes(ExportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
