package tabular

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/allanpk716/persodocs/internal/domain"
	"github.com/allanpk716/persodocs/internal/testutil"
)

func TestDatasetReader_ReadXLSX(t *testing.T) {
	data := testutil.BuildXLSX(t,
		[]string{"name", "amount", "Note"},
		[][]interface{}{
			{"Ann", 1250.5, "first"},
			{"Bo", 3, nil},
			{nil, nil, nil},
			{"Cy", "007", "last"},
		},
	)

	reader := NewDatasetReader()
	dataset, err := reader.ReadDataset(context.Background(), bytes.NewReader(data), "customers.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "customers.xlsx", dataset.Name)
	assert.Equal(t, []string{"name", "amount", "Note"}, dataset.Columns)
	require.Equal(t, 3, dataset.Len(), "空行被跳过")

	first := dataset.Rows[0]
	assert.Equal(t, "Ann", first["name"].String())
	assert.Equal(t, domain.KindNumber, first["amount"].Kind)
	assert.Equal(t, 1250.5, first["amount"].Num)
	assert.Equal(t, "1250.5", first["amount"].String())

	second := dataset.Rows[1]
	assert.Equal(t, "3", second["amount"].String())
	assert.True(t, second["Note"].IsEmpty())

	third := dataset.Rows[2]
	assert.Equal(t, domain.KindString, third["amount"].Kind, "文本单元格保持字符串")
	assert.Equal(t, "007", third["amount"].String())
}

func TestDatasetReader_RowOrderPreserved(t *testing.T) {
	var rows [][]interface{}
	names := []string{"z", "a", "m", "b", "y"}
	for _, n := range names {
		rows = append(rows, []interface{}{n})
	}
	data := testutil.BuildXLSX(t, []string{"name"}, rows)

	dataset, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader(data), "order.xlsx")
	require.NoError(t, err)

	var got []string
	for _, row := range dataset.Rows {
		got = append(got, row["name"].String())
	}
	assert.Equal(t, names, got)
}

func TestDatasetReader_HeaderNormalization(t *testing.T) {
	data := testutil.BuildXLSX(t,
		[]string{"name", "", "name", "Name"},
		[][]interface{}{{"a", "b", "c", "d"}},
	)

	dataset, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader(data), "dup.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "Unnamed: 1", "name.1", "Name"}, dataset.Columns)
	assert.Equal(t, "c", dataset.Rows[0]["name.1"].String())
}

func TestDatasetReader_ReadCSV(t *testing.T) {
	csvData := "\ufeffname,amount\nAnn,10\n,\nBo\n"

	dataset, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader([]byte(csvData)), "people.CSV")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "amount"}, dataset.Columns, "BOM 被去掉")
	require.Equal(t, 2, dataset.Len())
	assert.Equal(t, "10", dataset.Rows[0]["amount"].String())
	assert.True(t, dataset.Rows[1]["amount"].IsEmpty(), "缺少的字段为空值")
}

func TestDatasetReader_FormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		fileName string
	}{
		{"garbage xlsx", []byte("not a spreadsheet"), "bad.xlsx"},
		{"empty csv", nil, "empty.csv"},
		{"unterminated quote", []byte("name\n\"Ann\n"), "bad.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader(tt.data), tt.fileName)
			require.Error(t, err)

			var fe *domain.FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, domain.FormatSpreadsheet, fe.Kind)
			assert.Equal(t, tt.fileName, fe.Name)
		})
	}
}

func TestDatasetReader_WithSheet(t *testing.T) {
	data := testutil.BuildXLSX(t, []string{"name"}, [][]interface{}{{"Ann"}})

	_, err := NewDatasetReader(WithSheet("Missing")).ReadDataset(context.Background(), bytes.NewReader(data), "a.xlsx")
	assert.True(t, domain.IsFormatError(err))

	dataset, err := NewDatasetReader(WithSheet("Sheet1")).ReadDataset(context.Background(), bytes.NewReader(data), "a.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, dataset.Len())
}

func TestDatasetReader_Cancelled(t *testing.T) {
	data := testutil.BuildXLSX(t, []string{"name"}, [][]interface{}{{"Ann"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDatasetReader().ReadDataset(ctx, bytes.NewReader(data), "a.xlsx")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, domain.IsFormatError(err))
}

// sheetAt 从 start 单元格开始逐行写入
func sheetAt(t *testing.T, start int, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDatasetReader_LeadingBlankRows(t *testing.T) {
	data := sheetAt(t, 3,
		[]interface{}{"name", "city"},
		[]interface{}{"Ann", "Oslo"},
		[]interface{}{"Bob", 7},
	)

	dataset, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader(data), "offset.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "city"}, dataset.Columns)
	require.Equal(t, 2, dataset.Len(), "表头不算数据行")
	assert.Equal(t, "Ann", dataset.Rows[0]["name"].String())
	assert.Equal(t, domain.KindString, dataset.Rows[0]["city"].Kind)
	assert.Equal(t, "Bob", dataset.Rows[1]["name"].String())
	assert.Equal(t, domain.KindNumber, dataset.Rows[1]["city"].Kind, "单元格类型按实际行号读取")
}

func TestDatasetReader_OnlyBlankRows(t *testing.T) {
	data := sheetAt(t, 1, []interface{}{nil, ""})

	_, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader(data), "blank.xlsx")
	assert.True(t, domain.IsFormatError(err))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestDatasetReader_CellsBeyondHeader(t *testing.T) {
	data := sheetAt(t, 1,
		[]interface{}{"name", "city"},
		[]interface{}{"Ann", "Oslo", "extra"},
		[]interface{}{"Bob", "Rome"},
	)

	dataset, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader(data), "wide.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "city", "Unnamed: 2"}, dataset.Columns)
	require.Equal(t, 2, dataset.Len())
	assert.Equal(t, "extra", dataset.Rows[0]["Unnamed: 2"].String())
	assert.True(t, dataset.Rows[1]["Unnamed: 2"].IsEmpty())
}

func TestDatasetReader_CSVLeadingBlankAndWideRows(t *testing.T) {
	csvData := ",\nname,city\nAnn,Oslo,extra,\n"

	dataset, err := NewDatasetReader().ReadDataset(context.Background(), bytes.NewReader([]byte(csvData)), "people.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "city", "Unnamed: 2"}, dataset.Columns)
	require.Equal(t, 1, dataset.Len())
	assert.Equal(t, "extra", dataset.Rows[0]["Unnamed: 2"].String())
}
