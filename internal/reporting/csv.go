package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the daily breakdown as CSV string.
func RenderCSV(rows []DailyRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("day,trades,wins,win_rate,total_pnl_sol,fees_sol\n")

	// Rows
	for _, d := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.6f,%.6f,%.6f\n",
			d.Day.Format("2006-01-02"),
			d.Trades,
			d.Wins,
			d.WinRate,
			d.TotalPnLSOL,
			d.FeesSOL,
		))
	}

	return sb.String()
}
