package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	lib "traintrack"
	"traintrack/config"
	"traintrack/gtfs"
	"traintrack/gtfsrt"
	"traintrack/tracker"
)

func main() {
	mode := flag.String("mode", "oneshot", "oneshot|serve")
	configPath := flag.String("config", "", "path to config.yml (optional)")
	station := flag.String("station", "Times Sq", "station ID or name (oneshot mode)")
	force := flag.Bool("force", false, "bypass the snapshot TTL (oneshot mode)")
	flag.Parse()

	lib.InitLogging()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		config.Config = cfg
	} else if err := config.LoadAppConfig(); err != nil {
		log.Fatalf("load config: %v", err)
	}

	index, err := gtfs.Load(config.Config.GTFS)
	if err != nil {
		log.Fatalf("load station index: %v", err)
	}
	log.Printf("station index loaded: %d stations", index.Len())

	feeds := gtfsrt.NewFeedCache(config.Config.Realtime)
	trk := tracker.New(index, feeds)

	switch *mode {
	case "oneshot":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if *force {
			if err := feeds.Refresh(ctx); err != nil {
				log.Fatalf("refresh feeds: %v", err)
			}
		}
		data, err := trk.GetStationData(ctx, *station)
		if err != nil {
			log.Fatalf("station %q: %v", *station, err)
		}
		printStationData(data)
	case "serve":
		srv := lib.NewServer(config.Config.Server.Port, trk, feeds)
		srv.Start()
		srv.HandleGracefulShutdown()
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func printStationData(data *tracker.StationData) {
	fmt.Printf("%s (%s)\n", data.Station.Name, data.Station.ID)
	for label, trains := range data.Trains {
		for _, t := range trains {
			fmt.Printf("  %s %s: %d min\n", t.Line, label, t.Minutes)
		}
	}
	for _, a := range data.Alerts {
		fmt.Printf("  [%s] %s: %s\n", a.Severity, a.Line, a.Message)
	}
	if data.Stale {
		fmt.Println("  (stale data: last refresh failed)")
	}
}
