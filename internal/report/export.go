package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"contribs/internal/core"
)

// WriteCSV exports the record set as UTF-8 CSV with a header row, one record
// per line, in the set's order.
func WriteCSV(w io.Writer, set []core.Contribution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"phone", "amount", "transfer_date"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range set {
		row := []string{c.Phone, c.Amount.DecimalString(), c.TransferDate.String()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
