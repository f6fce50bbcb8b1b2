// Package export renders the filtered record view as CSV.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/servicebook/servicebook/internal/ledger"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

// Header is the first row of every export.
var Header = []string{"Type", "Date", "Company", "Plate", "Vehicle Type", "Items", "Remarks", "Total"}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// Writer formats rows with a fixed locale.
type Writer struct {
	printer *message.Printer
}

// NewWriter returns a CSV writer formatting amounts for tag.
func NewWriter(tag language.Tag) *Writer {
	return &Writer{printer: message.NewPrinter(tag)}
}

// Amount formats v with grouping and at most two decimals.
func (w *Writer) Amount(v float64) string {
	return w.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// ItemLine renders one line item as "• name - $price", with the quantity when above one.
func (w *Writer) ItemLine(item ledger.LineItem) string {
	switch item.Kind {
	case ledger.KindLegacy:
		return "• " + item.Name
	case ledger.KindCatalog:
		if item.Qty() > 1 {
			return fmt.Sprintf("• %s - $%s × %d", item.Name, w.Amount(item.Price), item.Qty())
		}
		return fmt.Sprintf("• %s - $%s", item.Name, w.Amount(item.Price))
	case ledger.KindCustom, ledger.KindAdjustment:
		return fmt.Sprintf("• %s - $%s", item.Name, w.Amount(item.Price))
	default:
		return "• " + item.Name
	}
}

// Write streams rows to out: one line per item, owner columns on the first line of each record
// and a blank line between records.
func (w *Writer) Write(out io.Writer, rows []ledger.FlatRecord) error {
	s := newCSVStreamer(out)
	if err := s.writeRow(Header); err != nil {
		return err
	}
	blank := make([]string, len(Header))
	for i, row := range rows {
		if i > 0 {
			if err := s.writeRow(blank); err != nil {
				return err
			}
		}
		lines := make([]string, 0, len(row.Items))
		for _, item := range row.Items {
			lines = append(lines, w.ItemLine(item))
		}
		if len(lines) == 0 {
			lines = append(lines, "")
		}
		for j, line := range lines {
			record := make([]string, len(Header))
			record[5] = line
			if j == 0 {
				record[0] = row.PaymentType.Label()
				record[1] = row.Date
				record[2] = row.CompanyName
				record[3] = row.VehiclePlate
				record[4] = row.VehicleType
				record[6] = row.Remarks
				record[7] = w.Amount(row.ComputedTotal)
			}
			if err := s.writeRow(record); err != nil {
				return err
			}
		}
	}
	return s.Flush()
}
