package reports

import (
	"encoding/csv"
	"fmt"
	"io"

	"polymarket-tax-go/internal/tax"
)

const irsDateLayout = "01/02/2006"

// WriteForm8949CSV writes the report's Form 8949 lines as CSV in the
// column order of the paper form. Reports generated under non-capital
// treatments have no lines and produce a header-only file.
func WriteForm8949CSV(w io.Writer, report *tax.TaxReport) error {
	cw := csv.NewWriter(w)

	header := []string{"Description", "Date Acquired", "Date Sold", "Proceeds", "Cost Basis", "Adjustments", "Gain/Loss", "Box"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, line := range report.Form8949Lines {
		row := []string{
			line.Description,
			line.DateAcquired.Format(irsDateLayout),
			line.DateSold.Format(irsDateLayout),
			fmt.Sprintf("%.2f", line.Proceeds),
			fmt.Sprintf("%.2f", line.CostBasis),
			fmt.Sprintf("%.2f", line.Adjustments),
			fmt.Sprintf("%.2f", line.GainLoss),
			line.Box,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
