// Package importer reads order sheets exported from spreadsheets into
// purchase line requests.
//
// A sheet is CSV separated by ';' or ','. The first row naming both a
// product column and a quantity column is the header; rows before it are
// ignored. Accepted header names are case-insensitive:
//
//	product: product_id, produk, id_produk
//	quantity: qty, quantity, jumlah
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

var (
	ErrNoHeader = errors.New("no header row with product and quantity columns")
	ErrNoLines  = errors.New("order sheet has no lines")
)

var (
	productHeaders = []string{"product_id", "produk", "id_produk"}
	qtyHeaders     = []string{"qty", "quantity", "jumlah"}
)

// RowError reports an unusable cell. Row is 1-based, counting the header.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the sheet's lines in file order. Rows with a blank product
// or quantity cell, or a zero quantity, are skipped.
func (p *Parser) Parse(r io.Reader) ([]purchase.LineRequest, error) {
	utf8r, err := toUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)

	comma, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	headerIdx, productCol, qtyCol := findHeader(rows)
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	var lines []purchase.LineRequest

	for i, row := range rows[headerIdx+1:] {
		rowNum := headerIdx + i + 2

		rawID, rawQty := cell(row, productCol), cell(row, qtyCol)
		if rawID == "" || rawQty == "" {
			continue
		}

		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			return nil, &RowError{Row: rowNum, Column: "product", Value: rawID, Err: errNotPositive}
		}

		qty, err := strconv.Atoi(rawQty)
		if err != nil || qty < 0 {
			return nil, &RowError{Row: rowNum, Column: "quantity", Value: rawQty, Err: errNotPositive}
		}

		if qty == 0 {
			continue
		}

		lines = append(lines, purchase.LineRequest{ProductID: id, Qty: qty})
	}

	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	return lines, nil
}

var errNotPositive = errors.New("not a positive whole number")

// sniffDelimiter picks ';' or ',' by which occurs more on the first line.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	head, err := br.Peek(br.Size())
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, fmt.Errorf("peek: %w", err)
	}

	first, _, _ := strings.Cut(string(head), "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';', nil
	}

	return ',', nil
}

func findHeader(rows [][]string) (idx, productCol, qtyCol int) {
	for i, row := range rows {
		productCol, qtyCol = -1, -1

		for j, c := range row {
			name := strings.ToLower(strings.TrimSpace(c))

			switch {
			case productCol < 0 && slices.Contains(productHeaders, name):
				productCol = j
			case qtyCol < 0 && slices.Contains(qtyHeaders, name):
				qtyCol = j
			}
		}

		if productCol >= 0 && qtyCol >= 0 {
			return i, productCol, qtyCol
		}
	}

	return -1, -1, -1
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[i])
}
