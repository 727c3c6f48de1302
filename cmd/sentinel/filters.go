package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"sentinel/internal/savedfilter"
)

func runFilters(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: sentinel filters <list|save|delete> [flags]")
		return 2
	}
	action := args[0]

	fs := flag.NewFlagSet("filters "+action, flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sentinel.yml")
	user := fs.String("user", "", "Owner of the saved filters (defaults to api.user)")
	name := fs.String("name", "", "Filter name (save)")
	id := fs.String("id", "", "Filter id (delete)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, _ := loadConfig(*configArg)
	s := cfg.Sentinel
	owner := *user
	if owner == "" {
		owner = s.API.User
	}

	store, err := buildFilterStore(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open saved filters: %v\n", err)
		return 1
	}
	if c, ok := store.(interface{ Close() error }); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch action {
	case "list":
		list, err := store.List(ctx, owner)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list filters: %v\n", err)
			return 1
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCREATED\tFILTER")
		for _, f := range list {
			doc, _ := json.Marshal(savedfilter.Serialize(f.Config))
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Name, f.CreatedAt.Format(time.RFC3339), doc)
		}
		tw.Flush()
		return 0

	case "save":
		loc, err := s.Location()
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid timezone: %v\n", err)
			return 1
		}
		fc, err := initialFilter(s.Filter, loc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid filter config: %v\n", err)
			return 1
		}
		saved, err := store.Save(ctx, owner, *name, fc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to save filter: %v\n", err)
			return 1
		}
		fmt.Printf("Saved filter %q (%s)\n", saved.Name, saved.ID)
		return 0

	case "delete":
		if *id == "" {
			fmt.Fprintln(os.Stderr, "filters delete: -id is required")
			return 2
		}
		if err := store.Delete(ctx, owner, *id); err != nil {
			fmt.Fprintf(os.Stderr, "failed to delete filter %s: %v\n", *id, err)
			return 1
		}
		fmt.Printf("Deleted filter %s\n", *id)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown filters action %q\n", action)
		return 2
	}
}

// findSaved returns the saved filter whose name or id matches ref.
func findSaved(ctx context.Context, store savedfilter.Store, user, ref string) (savedfilter.SavedFilter, error) {
	list, err := store.List(ctx, user)
	if err != nil {
		return savedfilter.SavedFilter{}, err
	}
	for _, f := range list {
		if f.ID == ref || strings.EqualFold(f.Name, ref) {
			return f, nil
		}
	}
	return savedfilter.SavedFilter{}, savedfilter.ErrNotFound
}
