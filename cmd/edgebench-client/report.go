package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/edgebench/edgebench/pkg/bench"
	"github.com/edgebench/edgebench/pkg/model"
)

func formatMs(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func marker(id string, summary *model.Summary) string {
	switch id {
	case summary.BestClient:
		return "best"
	case summary.WorstClient:
		return "worst"
	}
	return ""
}

// printSummaryTable renders the per-endpoint averages as a table, in registry
// order, with best/worst markers on the client-time column.
func printSummaryTable(endpoints []bench.EndpointDescriptor, summary *model.Summary) {
	if summary == nil {
		fmt.Println("No summary available: the run did not complete.")
		return
	}

	fmt.Println()
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{
			"Endpoint", "Label", "Access", "Cached",
			"Avg client (ms)", "Avg server (ms)", "",
		}),
	)
	for _, ep := range endpoints {
		stat, ok := summary.Stats[ep.ID]
		if !ok {
			continue
		}
		cached := ""
		if ep.Cached {
			cached = "yes"
		}
		table.Append([]string{
			ep.ID,
			ep.Label,
			string(ep.AccessType),
			cached,
			formatMs(stat.AvgClientTimeMs),
			formatMs(stat.AvgServerTimeMs),
			marker(ep.ID, summary),
		})
	}
	table.Render()
}
