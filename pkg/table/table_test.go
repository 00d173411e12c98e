package table_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eiadata/go-client/pkg/table"
)

type testRow struct {
	Make  string
	Model string
}

func (r testRow) Cells() []string { return []string{r.Make, r.Model} }

func newTestTable(header ...string) *table.Table {
	out := table.New(header...)
	out.AddRow(testRow{"Toyota", "Prius"}, testRow{"Honda", "Clarity"})
	return out
}

func TestAddRow(t *testing.T) {
	t.Parallel()
	tbl := newTestTable("Make", "Model")
	assert.Equal(t, []string{"Make", "Model"}, tbl.Header)
	assert.Len(t, tbl.Rows, 2)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	tbl := newTestTable("Make", "Model")

	var buf bytes.Buffer
	assert.NoError(t, tbl.WriteCSV(&buf, table.Params{}))
	assert.Equal(t, "Make,Model\nToyota,Prius\nHonda,Clarity\n", buf.String())
}

func TestWriteCSV_Headless(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()

	var buf bytes.Buffer
	assert.NoError(t, tbl.WriteCSV(&buf, table.Params{}))
	assert.Equal(t, "Toyota,Prius\nHonda,Clarity\n", buf.String())
}

func TestWriteCSV_LimitedRowsNoHeader(t *testing.T) {
	t.Parallel()
	tbl := newTestTable("Make", "Model")

	var buf bytes.Buffer
	assert.NoError(t, tbl.WriteCSV(&buf, table.Params{Rows: 1, NoHeader: true}))
	assert.Equal(t, "Toyota,Prius\n", buf.String())
}

func TestWriteText(t *testing.T) {
	t.Parallel()
	tbl := newTestTable("Make", "Model")

	var buf bytes.Buffer
	assert.NoError(t, tbl.WriteText(&buf, table.Params{}))
	expected := `
  Make |   Model
------ | -------
Toyota |   Prius
 Honda | Clarity
`
	assert.Equal(t, expected, "\n"+buf.String())
}

func TestWriteText_MaxColWidth(t *testing.T) {
	t.Parallel()
	tbl := newTestTable("Make", "Model")

	var buf bytes.Buffer
	assert.NoError(t, tbl.WriteText(&buf, table.Params{MaxColWidth: 5}))
	expected := `
 Make | Model
----- | -----
Toy.. | Prius
Honda | Cla..
`
	assert.Equal(t, expected, "\n"+buf.String())
}

func TestWriteText_InvalidMaxColWidth(t *testing.T) {
	t.Parallel()
	tbl := newTestTable("Make", "Model")

	var buf bytes.Buffer
	err := tbl.WriteText(&buf, table.Params{MaxColWidth: 3})
	assert.Error(t, err)
}
