package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportXLSX_Report(t *testing.T) {
	tc := newTestCatalog(t)
	ctx := context.Background()
	c := tc.category(t, "激光干涉仪")
	tc.product(t, c.ID, "existing")

	buf := workbook(t,
		[]any{"名称", "Category", "price", "stock", "status", "description"},
		[]any{"XL-80", "激光干涉仪", "99000", "3", "上架", "激光测量系统"},
		[]any{"existing", "激光干涉仪"},
		[]any{"orphan", "不存在的分类"},
		[]any{"", "激光干涉仪"},
		[]any{"cheap", "激光干涉仪", "abc"},
		[]any{"", "", "", ""},
		[]any{"parked", "激光干涉仪", "", "", "0"},
	)

	report, err := tc.Importer.ImportXLSX(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 3)
	assert.True(t, strings.HasPrefix(report.Errors[0], "row 5:"), report.Errors[0])

	search := "XL-80"
	res, err := tc.Products.ListProducts(ctx, repository.ProductFilter{Search: &search})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	got := res.Data[0]
	assert.Equal(t, c.ID, got.CategoryID)
	require.NotNil(t, got.Price)
	assert.Equal(t, 99000.0, *got.Price)
	assert.Equal(t, 3, got.Stock)
	assert.True(t, got.Status)

	search = "parked"
	res, err = tc.Products.ListProducts(ctx, repository.ProductFilter{Search: &search})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.False(t, res.Data[0].Status)
}

func TestImportXLSX_RejectsBadWorkbook(t *testing.T) {
	tc := newTestCatalog(t)
	ctx := context.Background()

	_, err := tc.Importer.ImportXLSX(ctx, strings.NewReader("name,category\n"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = tc.Importer.ImportXLSX(ctx, workbook(t, []any{"name", "price"}, []any{"x", "1"}))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestImportRows_SampleDataIsIdempotent(t *testing.T) {
	tc := newTestCatalog(t)
	ctx := context.Background()

	_, err := tc.Categories.SeedDefaults(ctx)
	require.NoError(t, err)

	report, err := tc.Importer.ImportRows(ctx, SampleProducts())
	require.NoError(t, err)
	assert.Equal(t, len(SampleProducts()), report.Created)
	assert.Empty(t, report.Errors)

	report, err = tc.Importer.ImportRows(ctx, SampleProducts())
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, len(SampleProducts()), report.Skipped)
}

func TestExportXLSX_ContactsSheet(t *testing.T) {
	tc := newTestCatalog(t)
	ctx := context.Background()

	for _, subject := range []string{"报价", "售后"} {
		in := validContact()
		in.Subject = subject
		_, err := tc.Contacts.CreateContact(ctx, in)
		require.NoError(t, err)
	}

	data, err := tc.Contacts.ExportXLSX(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{ContactsSheet}, f.GetSheetList())
	rows, err := f.GetRows(ContactsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "name", rows[0][0])
	assert.ElementsMatch(t, []string{"报价", "售后"}, []string{rows[1][3], rows[2][3]})
	assert.Equal(t, "张工", rows[1][0])
}
