package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"sentinel/internal/threatintel"
	"sentinel/pkg/models"
)

func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sentinel.yml")
	src := fs.String("src", "", "Source address")
	dst := fs.String("dst", "", "Destination address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *src == "" && *dst == "" {
		fmt.Fprintln(os.Stderr, "inspect: at least one of -src or -dst is required")
		return 2
	}

	cfg, _ := loadConfig(*configArg)
	s := cfg.Sentinel
	client, err := threatintel.NewClient(threatintel.Config{
		BaseURL: s.API.BaseURL,
		Timeout: s.API.Timeout,
		Headers: authHeaders(s.API.Token),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create threat intel client: %v\n", err)
		return 1
	}

	result, err := client.Inspect(context.Background(), &models.Alert{SourceAddress: *src, DestinationAddress: *dst})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", encErr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspection incomplete: %v\n", err)
		return 1
	}
	return 0
}
