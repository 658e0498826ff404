// Package export renders saved sessions as CSV for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// Header is the column layout of a session export.
var Header = []string{"index", "type", "numbers", "complementary", "cost", "matched_main", "matched_complementary", "rank", "gain"}

// WriteSession writes one row per ticket. Result columns are left empty
// until the session has been checked.
func WriteSession(w io.Writer, gs *model.GameSession) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	var results map[int]model.TicketResult
	if gs.Results != nil {
		results = make(map[int]model.TicketResult, len(gs.Results.Tickets))
		for _, tr := range gs.Results.Tickets {
			results[tr.Index] = tr
		}
	}

	for i, t := range gs.Tickets {
		row := []string{
			strconv.Itoa(i + 1),
			t.Type,
			joinNumbers(t.Numbers),
			optional(t.Complementary),
			t.Cost.StringFixed(2),
			"", "", "", "",
		}
		if tr, ok := results[i]; ok {
			row[5] = strconv.Itoa(tr.MatchedMain)
			row[6] = strconv.FormatBool(tr.MatchedComplementary)
			row[7] = strconv.Itoa(tr.Rank)
			row[8] = tr.Gain.StringFixed(2)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export ticket %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename returns a download name for the session.
func Filename(gs *model.GameSession) string {
	return fmt.Sprintf("loto-%s-%s.csv", gs.GameDate, gs.ID)
}

func joinNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}

func optional(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
