package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/dbg"
	"github.com/hbrandt/coincast/internal/engine"
	"github.com/hbrandt/coincast/internal/feed"
	"github.com/hbrandt/coincast/internal/remote"
	"github.com/hbrandt/coincast/internal/share"
	"github.com/hbrandt/coincast/internal/store"
	"github.com/hbrandt/coincast/tui"
)

func main() {
	var (
		symbol    = flag.String("symbol", "BTCUSDT", "asset to chart")
		shareLink = flag.String("share", "", "share link (or query string) to open")
		syncURL   = flag.String("sync", "", "sync server base URL, e.g. http://localhost:8787")
		dataDir   = flag.String("data", "", "state directory (default: user config dir)")
		logPath   = flag.String("log", "", "write logs to this file")
		history   = flag.Bool("history", false, "list archived simulations and exit")
	)
	flag.Parse()

	log := zap.NewNop()
	if *logPath != "" {
		log = dbg.NewFileLogger(*logPath)
	}
	defer log.Sync()

	st, err := store.Open(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open state dir:", err)
		os.Exit(1)
	}

	if *history {
		listHistory(st)
		return
	}

	opts, desc, err := share.Decode(*shareLink)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad share link:", err)
		os.Exit(1)
	}
	if *shareLink == "" || *symbol != "BTCUSDT" {
		opts.Symbol = *symbol
	}

	var client *remote.Client
	if *syncURL != "" {
		client = remote.NewClient(*syncURL, log)
	}

	eng := engine.New(engine.Config{
		Symbol: opts.Symbol,
		Source: feed.NewFailover(feed.NewHTTPSource(nil, log), log),
		Store:  st,
		Remote: client,
		Share:  desc,
		Logger: log,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = eng.Start(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "start engine:", err)
		os.Exit(1)
	}
	defer eng.Close()

	p := tea.NewProgram(tui.NewModel(eng, opts),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "run ui:", err)
		os.Exit(1)
	}
}

func listHistory(st *store.Store) {
	all, err := st.ListArchived()
	if err != nil {
		fmt.Fprintln(os.Stderr, "list history:", err)
		os.Exit(1)
	}
	if len(all) == 0 {
		fmt.Println("no archived simulations")
		return
	}
	for _, d := range all {
		start := time.UnixMilli(d.StartTime).Format(time.RFC3339)
		fmt.Printf("%s  %-10s %12.6g -> %-12.6g %8s  %s\n",
			start, d.AssetID, d.StartPrice, d.TargetPrice,
			time.Duration(d.DurationMs)*time.Millisecond, d.Volatility)
	}
}
