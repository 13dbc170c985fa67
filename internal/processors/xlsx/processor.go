// Package xlsx reads the first worksheet of an Excel workbook as a table.
package xlsx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
	"github.com/custodia-labs/knowledge-flow/internal/processors/csvfile"
)

const (
	workbookPart      = "xl/workbook.xml"
	workbookRelsPart  = "xl/_rels/workbook.xml.rels"
	sharedStringsPart = "xl/sharedStrings.xml"
)

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor      = (*Processor)(nil)
	_ driven.TableConverter = (*Processor)(nil)
)

// Processor handles XLSX workbooks.
type Processor struct{}

// New creates a new workbook processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "xlsx"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".xlsx", ".xlsm"}
}

// CheckFileValidity accepts zip archives containing xl/workbook.xml.
func (p *Processor) CheckFileValidity(_ context.Context, file string) bool {
	r, err := zip.OpenReader(file)
	if err != nil {
		return false
	}
	defer r.Close()
	return common.ZipHas(&r.Reader, workbookPart)
}

// ExtractFileMetadata reports the first sheet's name and shape.
func (p *Processor) ExtractFileMetadata(_ context.Context, file string) (domain.Metadata, error) {
	sheet, table, err := readFirstSheet(file)
	if err != nil {
		return nil, err
	}
	md := common.FileMetadata(file)
	md["title"] = common.TitleFromFilename(file)
	md["format"] = "xlsx"
	md["sheet"] = sheet
	csvfile.AddShape(md, table)
	return md, nil
}

// ConvertToTable returns the first sheet. The first row is the header.
func (p *Processor) ConvertToTable(_ context.Context, file string) (*domain.Table, error) {
	_, table, err := readFirstSheet(file)
	return table, err
}

type workbookXML struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type sharedStringsXML struct {
	Items []struct {
		Text string `xml:"t"`
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type worksheetXML struct {
	Rows []struct {
		Cells []struct {
			Ref    string `xml:"r,attr"`
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline struct {
				Text string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func readFirstSheet(file string) (string, *domain.Table, error) {
	r, err := zip.OpenReader(file)
	if err != nil {
		return "", nil, fmt.Errorf("open workbook %s: %w", file, err)
	}
	defer r.Close()

	name, part, err := firstSheet(&r.Reader)
	if err != nil {
		return "", nil, err
	}
	strs, err := sharedStrings(&r.Reader)
	if err != nil {
		return "", nil, err
	}
	data, err := common.ReadZipEntry(&r.Reader, part)
	if err != nil {
		return "", nil, err
	}
	var ws worksheetXML
	if err := xml.Unmarshal(data, &ws); err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", part, err)
	}

	var grid [][]string
	for _, row := range ws.Rows {
		var cells []string
		for i, c := range row.Cells {
			col := i
			if c.Ref != "" {
				col = columnIndex(c.Ref)
			}
			for len(cells) <= col {
				cells = append(cells, "")
			}
			cells[col] = cellValue(c.Type, c.Value, c.Inline.Text, strs)
		}
		grid = append(grid, cells)
	}
	if len(grid) == 0 || len(grid[0]) == 0 {
		return "", nil, errors.New("worksheet has no header row")
	}

	table := &domain.Table{Header: grid[0]}
	for i := range table.Header {
		table.Header[i] = strings.TrimSpace(table.Header[i])
	}
	width := len(table.Header)
	for _, row := range grid[1:] {
		fitted := make([]string, width)
		copy(fitted, row)
		table.Rows = append(table.Rows, fitted)
	}
	return name, table, nil
}

// firstSheet resolves the first sheet in workbook order to its part name.
func firstSheet(r *zip.Reader) (string, string, error) {
	data, err := common.ReadZipEntry(r, workbookPart)
	if err != nil {
		return "", "", err
	}
	var wb workbookXML
	if err := xml.Unmarshal(data, &wb); err != nil {
		return "", "", fmt.Errorf("parse %s: %w", workbookPart, err)
	}
	if len(wb.Sheets) == 0 {
		return "", "", errors.New("workbook has no sheets")
	}
	sheet := wb.Sheets[0]

	part := "xl/worksheets/sheet1.xml"
	if rels, err := common.ReadZipEntry(r, workbookRelsPart); err == nil {
		var rx relationshipsXML
		if xml.Unmarshal(rels, &rx) == nil {
			for _, rel := range rx.Relationships {
				if rel.ID == sheet.RID {
					part = resolveTarget(rel.Target)
					break
				}
			}
		}
	}
	return sheet.Name, part, nil
}

func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("xl", target)
}

func sharedStrings(r *zip.Reader) ([]string, error) {
	if !common.ZipHas(r, sharedStringsPart) {
		return nil, nil
	}
	data, err := common.ReadZipEntry(r, sharedStringsPart)
	if err != nil {
		return nil, err
	}
	var sst sharedStringsXML
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil, fmt.Errorf("parse %s: %w", sharedStringsPart, err)
	}
	out := make([]string, len(sst.Items))
	for i, item := range sst.Items {
		if len(item.Runs) == 0 {
			out[i] = item.Text
			continue
		}
		var b strings.Builder
		for _, run := range item.Runs {
			b.WriteString(run.Text)
		}
		out[i] = b.String()
	}
	return out, nil
}

func cellValue(typ, value, inline string, strs []string) string {
	switch typ {
	case "s":
		idx, err := strconv.Atoi(value)
		if err != nil || idx < 0 || idx >= len(strs) {
			return ""
		}
		return strs[idx]
	case "inlineStr":
		return inline
	case "b":
		if value == "1" {
			return "true"
		}
		return "false"
	default:
		return value
	}
}

// columnIndex converts a cell reference such as "AB12" to a zero-based
// column index.
func columnIndex(ref string) int {
	n := 0
	for _, ch := range ref {
		if ch < 'A' || ch > 'Z' {
			break
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1
}
