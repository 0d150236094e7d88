package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

// ContactsSheet is the sheet name of the contact export.
const ContactsSheet = "contacts"

// XLSXContentType is the MIME type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// importHeaders lists the accepted header texts per import column. Headers
// are matched case-insensitively; the Chinese headers of the legacy template
// are accepted too.
var importHeaders = map[string][]string{
	"name":        {"name", "名称", "产品名称"},
	"category":    {"category", "分类"},
	"description": {"description", "描述"},
	"brand":       {"brand", "品牌"},
	"price":       {"price", "价格"},
	"stock":       {"stock", "库存"},
	"status":      {"status", "状态"},
}

func importColumn(header string) (string, bool) {
	header = strings.ToLower(strings.TrimSpace(header))
	for col, names := range importHeaders {
		if slices.Contains(names, header) {
			return col, true
		}
	}
	return "", false
}

// ImportRow is one product to import. Category is matched by exact name.
type ImportRow struct {
	Name        string
	Category    string
	Description string
	Brand       string
	Price       *float64
	Stock       int
	Status      bool

	Features       string
	Applications   string
	Advantages     []string
	ServiceTags    []string
	TechnicalSpecs codec.Mapping
}

// ImportReport summarizes an import. Rows whose product name already exists
// are skipped; invalid rows are reported and do not stop the import.
type ImportReport struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Importer creates products in bulk from spreadsheets or built-in rows.
type Importer struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	service    *ProductService
	logger     *slog.Logger
}

// NewImporter creates an importer that writes through the product service.
func NewImporter(store repository.Store, products *ProductService, logger *slog.Logger) *Importer {
	return &Importer{
		categories: store.Categories,
		products:   store.Products,
		service:    products,
		logger:     logger,
	}
}

// ImportXLSX reads the first sheet of a workbook. The first row is the
// header; name and category columns are required.
func (im *Importer) ImportXLSX(ctx context.Context, r io.Reader) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.InvalidInput("not a readable xlsx workbook: " + err.Error())
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.InvalidInput("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.InvalidInput("read sheet " + sheets[0] + ": " + err.Error())
	}
	if len(rows) == 0 {
		return nil, apperrors.InvalidInput("sheet " + sheets[0] + " is empty")
	}

	header := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		if col, ok := importColumn(cell); ok {
			if _, dup := header[col]; !dup {
				header[col] = i
			}
		}
	}
	for _, required := range []string{"name", "category"} {
		if _, ok := header[required]; !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("missing %q column", required))
		}
	}

	var (
		parsed  []ImportRow
		lineNos []int
		report  = &ImportReport{Errors: []string{}}
	)
	for i, cells := range rows[1:] {
		line := i + 2
		get := func(col string) string {
			idx, ok := header[col]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}
		if blankRow(cells) {
			continue
		}

		row, err := parseImportRow(get)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %s", line, err))
			continue
		}
		parsed = append(parsed, row)
		lineNos = append(lineNos, line)
	}

	if err := im.importRows(ctx, parsed, lineNos, report); err != nil {
		return report, err
	}
	return report, nil
}

// ImportRows creates the given products. Used for the built-in sample data.
func (im *Importer) ImportRows(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
	report := &ImportReport{Errors: []string{}}
	lineNos := make([]int, len(rows))
	for i := range rows {
		lineNos[i] = i + 1
	}
	if err := im.importRows(ctx, rows, lineNos, report); err != nil {
		return report, err
	}
	return report, nil
}

func (im *Importer) importRows(ctx context.Context, rows []ImportRow, lineNos []int, report *ImportReport) error {
	categories, err := im.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	categoryIDs := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryIDs[c.Name] = c.ID
	}

	for i, row := range rows {
		line := lineNos[i]
		categoryID, ok := categoryIDs[row.Category]
		if !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: unknown category %q", line, row.Category))
			continue
		}

		exists, err := im.products.ExistsByName(ctx, row.Name)
		if err != nil {
			return fmt.Errorf("check product name: %w", err)
		}
		if exists {
			report.Skipped++
			continue
		}

		status := row.Status
		_, err = im.service.CreateProduct(ctx, &CreateProductInput{
			Name:           row.Name,
			Description:    row.Description,
			CategoryID:     categoryID,
			Brand:          row.Brand,
			Price:          row.Price,
			Stock:          row.Stock,
			Status:         &status,
			Features:       row.Features,
			Applications:   row.Applications,
			Advantages:     row.Advantages,
			ServiceTags:    row.ServiceTags,
			TechnicalSpecs: row.TechnicalSpecs,
		})
		switch {
		case err == nil:
			report.Created++
		case errors.Is(err, apperrors.ErrStorage):
			return err
		default:
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %s", line, errorMessage(err)))
		}
	}

	im.logger.InfoContext(ctx, "products imported",
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)),
	)
	return nil
}

func parseImportRow(get func(string) string) (ImportRow, error) {
	row := ImportRow{
		Name:        get("name"),
		Category:    get("category"),
		Description: get("description"),
		Brand:       get("brand"),
		Status:      true,
	}
	if row.Name == "" {
		return row, errors.New("name is required")
	}
	if row.Category == "" {
		return row, errors.New("category is required")
	}

	if v := get("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return row, fmt.Errorf("invalid price %q", v)
		}
		row.Price = &price
	}
	if v := get("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return row, fmt.Errorf("invalid stock %q", v)
		}
		row.Stock = stock
	}
	if v := get("status"); v != "" {
		status, ok := parseStatus(v)
		if !ok {
			return row, fmt.Errorf("invalid status %q", v)
		}
		row.Status = status
	}
	return row, nil
}

func parseStatus(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on", "上架", "是", "显示":
		return true, true
	case "0", "false", "no", "n", "off", "下架", "否", "隐藏":
		return false, true
	}
	return false, false
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// ExportXLSX renders every contact message, newest first, into a workbook
// with a single "contacts" sheet.
func (s *ContactService) ExportXLSX(ctx context.Context) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ContactsSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	header := []any{"name", "email", "phone", "subject", "message", "is_read", "created_at"}
	if err := f.SetSheetRow(ContactsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(ContactsSheet, 1, 1, style)
	}

	row := 2
	err := s.forEachContact(ctx, func(c domain.Contact) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{c.Name, c.Email, c.Phone, c.Subject, c.Message, c.IsRead,
			c.CreatedAt.UTC().Format("2006-01-02 15:04:05")}
		if err := f.SetSheetRow(ContactsSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		row++
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	s.logger.InfoContext(ctx, "contacts exported", slog.Int("count", row-2))
	return buf.Bytes(), nil
}
