package dashboard

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Leads"

var exportHeaders = []string{
	"ID", "Telefone", "Origem", "Status", "Franquia", "Cidade", "Estado",
	"Data do evento", "Perfil", "Convidados", "Qualificado", "Mensagens", "Criado em",
}

// WriteLeadsXLSX renders leads as a single-sheet workbook.
func WriteLeadsXLSX(leads []LeadRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	for i, l := range leads {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			l.ID.String(),
			deref(l.PhoneE164),
			l.Source,
			l.Status,
			l.FranchiseName,
			deref(l.Cidade),
			deref(l.Estado),
			dateCell(l.EventStartDate),
			deref(l.PerfilEvento),
			intCell(l.PessoasEstimadas),
			yesNo(l.Qualificado),
			l.MsgCount,
			l.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(exportSheet, "A", lastCol, 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 38); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func intCell(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
