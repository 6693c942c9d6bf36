package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

const utf8BOM = "\ufeff"

// WriteCSV writes a UTF-8 CSV with a byte order mark so spreadsheet apps
// detect the encoding.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return eris.Wrap(err, "export: write bom")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rows), "export: encode json")
}

// WriteXLSX writes rows to a single-sheet workbook at path. Numeric columns
// are stored as numbers.
func WriteXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("results")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Title)
		row.AddCell().SetString(r.Price)
		setIntCell(row.AddCell(), r.PriceValue)
		row.AddCell().SetString(r.WhyChoose)
		row.AddCell().SetFloat(r.Score)
		rec := r.Record()
		row.AddCell().SetString(rec[5])
		row.AddCell().SetString(rec[6])
		row.AddCell().SetString(r.Brand)
		row.AddCell().SetString(r.CPU)
		setIntCell(row.AddCell(), r.RAMGB)
		setIntCell(row.AddCell(), r.StorageSSDGB)
		setIntCell(row.AddCell(), r.StorageHDDGB)
		row.AddCell().SetString(r.GPU)
		row.AddCell().SetString(r.OS)
		if r.ScreenInches != nil {
			row.AddCell().SetFloat(*r.ScreenInches)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(r.Source)
		row.AddCell().SetString(r.Link)
		row.AddCell().SetString(r.Image)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func setIntCell(c *xlsx.Cell, v *int) {
	if v == nil {
		c.SetString("")
		return
	}
	c.SetInt(*v)
}
