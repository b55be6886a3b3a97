package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/substationlabs/assetview-backend/internal/app"
)

type nameList []string

func (l *nameList) String() string { return strings.Join(*l, ",") }
func (l *nameList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// resolvefiles runs the identifier cascade over filenames without touching
// any rows: handy for checking what an upload batch would link to, or for
// spotting bucket objects whose names no longer match a record.
func main() {
	var names nameList
	var prefix string
	var limit int
	flag.Var(&names, "file", "filename to resolve (repeatable)")
	flag.StringVar(&prefix, "prefix", "", "resolve basenames of object keys under this storage prefix")
	flag.IntVar(&limit, "limit", 0, "limit number of filenames processed")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

	if prefix != "" {
		keys, err := application.Clients.Bucket.ListKeys(ctx, prefix)
		if err != nil {
			fmt.Printf("list keys under %q: %v\n", prefix, err)
			os.Exit(1)
		}
		for _, key := range keys {
			names = append(names, path.Base(key))
		}
	}
	if len(names) == 0 {
		fmt.Println("no filenames provided (use -file or -prefix)")
		return
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	results := application.Services.File.ResolveBatch(ctx, []string(names))

	resolved := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		if !res.Resolved {
			fmt.Printf("%s -> unresolved (%s)\n", res.Filename, res.Error)
			continue
		}
		resolved++
		record := "no record"
		if res.Record != nil {
			record = res.Record.DisplayName
		}
		fmt.Printf("%s -> key=%s rule=%s record=%q\n", res.Filename, res.Key, res.Rule, record)
	}
	fmt.Printf("done; resolved=%d unresolved=%d\n", resolved, len(results)-resolved)
}
