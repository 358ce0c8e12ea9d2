package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/activity"
	"github.com/alfredjeanlab/hookwatch/internal/broadcast"
	"github.com/alfredjeanlab/hookwatch/internal/client"
	"github.com/alfredjeanlab/hookwatch/internal/model"
	"github.com/alfredjeanlab/hookwatch/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func printEntryTable(entries []*model.LogEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSOURCE\tKIND\tCONTENT")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Timestamp.Local().Format(timeLayout),
			e.Source,
			ui.RenderKind(e.Kind, string(e.Kind)),
			truncate(e.Content, 60),
		)
	}
	w.Flush()
	fmt.Printf("\n%d entries\n", len(entries))
}

func printStatsTable(s *client.StatsResponse) {
	kinds := make([]string, 0, len(s.TypeCounts))
	var total int64
	for k, n := range s.TypeCounts {
		kinds = append(kinds, string(k))
		total += n
	}
	sort.Strings(kinds)

	fmt.Println(ui.RenderAccent("Entries by kind"))
	for _, k := range kinds {
		fmt.Printf("  %-14s %d\n", ui.RenderKind(model.Kind(k), k), s.TypeCounts[model.Kind(k)])
	}
	fmt.Printf("  %-14s %d\n", "total", total)

	live := s.LiveData
	fmt.Println()
	fmt.Println(ui.RenderAccent("Live state"))
	fmt.Printf("  recent reports  %d\n", len(live.RecentActions))
	fmt.Printf("  admin actions   %d\n", len(live.AdminActions))
	fmt.Printf("  alerts          %s\n", renderCount(len(live.Alerts)))

	if len(live.Alerts) > 0 {
		fmt.Println()
		fmt.Println(ui.RenderAlert("Latest alerts"))
		start := max(0, len(live.Alerts)-5)
		for _, a := range live.Alerts[start:] {
			fmt.Printf("  %s  %s\n", ui.RenderMuted(a.Timestamp.Local().Format(timeLayout)), truncate(a.Content, 70))
		}
	}

	if len(s.RecentActivity) > 0 {
		fmt.Println()
		fmt.Println(ui.RenderAccent("Last 24 hours"))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, r := range s.RecentActivity {
			fmt.Fprintf(w, "  %s\t%s\t%s\n",
				ui.RenderMuted(r.Timestamp.Local().Format(timeLayout)),
				ui.RenderKind(r.Kind, string(r.Kind)),
				truncate(r.Content, 60))
		}
		w.Flush()
	}
}

func renderCount(n int) string {
	if n == 0 {
		return ui.RenderOK("0")
	}
	return ui.RenderAlert(fmt.Sprintf("%d", n))
}

func printRosterTable(roster []activity.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tEVENTS\tLAST KIND\tLAST SEEN\tSTATUS")
	for _, e := range roster {
		status := ui.RenderOK("active")
		if e.Silent {
			status = ui.RenderAlert("silent")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s ago\t%s\n",
			e.Source,
			e.EventCount,
			e.LastKind,
			time.Duration(e.IdleSecs*float64(time.Second)).Round(time.Second),
			status,
		)
	}
	w.Flush()
}

// printStreamEvent renders one live event as a single line.
func printStreamEvent(name string, data []byte) {
	if jsonOutput {
		fmt.Printf("{\"event\":%q,\"data\":%s}\n", name, data)
		return
	}

	switch name {
	case broadcast.EventNewLog, broadcast.EventNewAdminAction, broadcast.EventNewGeneralLog:
		var e model.LogEntry
		if err := json.Unmarshal(data, &e); err != nil {
			break
		}
		fmt.Printf("%s %s %s\n",
			ui.RenderMuted(e.Timestamp.Local().Format(timeLayout)),
			ui.RenderKind(e.Kind, fmt.Sprintf("%-12s", e.Kind)),
			truncate(e.Content, 100))
		return
	case broadcast.EventAlert:
		var a model.Alert
		if err := json.Unmarshal(data, &a); err != nil {
			break
		}
		fmt.Printf("%s %s %s\n",
			ui.RenderMuted(a.Timestamp.Local().Format(timeLayout)),
			ui.RenderAlert(fmt.Sprintf("%-12s", "ALERT")),
			truncate(a.Content, 100))
		return
	}
	fmt.Printf("%s %s\n", ui.RenderAccent(name), data)
}
