package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"sentinel/internal/prefs"
)

func runPrefs(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: sentinel prefs <get|set> [flags]")
		return 2
	}
	action := args[0]

	fs := flag.NewFlagSet("prefs "+action, flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sentinel.yml")
	high := fs.Bool("high", true, "Notify on High alerts")
	medium := fs.Bool("medium", false, "Notify on Medium alerts")
	low := fs.Bool("low", false, "Notify on Low alerts")
	frequency := fs.String("frequency", prefs.FrequencyWeekly, "Report frequency: weekly, biweekly, monthly or none")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, _ := loadConfig(*configArg)
	s := cfg.Sentinel
	client, err := prefs.NewClient(prefs.Config{BaseURL: s.API.BaseURL, Token: s.API.Token, Timeout: s.API.Timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create preferences client: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch action {
	case "get":
		p, err := client.Get(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fetch preferences: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(p)
		return 0

	case "set":
		p := prefs.Preferences{
			AlertsOptions:   prefs.AlertOptions{High: *high, Medium: *medium, Low: *low},
			ReportFrequency: *frequency,
		}
		if err := p.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid preferences: %v\n", err)
			return 2
		}
		if err := client.Put(ctx, p); err != nil {
			fmt.Fprintf(os.Stderr, "failed to update preferences: %v\n", err)
			return 1
		}
		fmt.Println("Preferences updated")
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown prefs action %q\n", action)
		return 2
	}
}
