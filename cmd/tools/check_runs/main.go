package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hankyul/bidwatch/internal/db"
)

func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	runs, err := db.NewStore(pool).ListSyncRuns(ctx, 10)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Mode", "Status", "Scanned", "Saved", "Error", "Duration", "Started At"})

	for _, run := range runs {
		duration := "Running..."
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
		}

		errText := run.ErrorText
		if runes := []rune(errText); len(runes) > 40 {
			errText = string(runes[:40]) + "..."
		}

		t.AppendRow(table.Row{run.Mode, run.Status, run.Scanned, run.Saved, errText, duration, run.StartedAt.Format("01-02 15:04:05")})
	}
	t.Render()
}
