package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teklifbul/intake/internal/mapper"
	"github.com/teklifbul/intake/internal/model"
)

var mapSubmitter string

var mapCmd = &cobra.Command{
	Use:   "map FILE...",
	Short: "Map one or more documents to structured demands",
	Long:  "Parses each file, maps columns and labels to canonical fields, and prints one MappingResult JSON object per file.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMap,
}

func init() {
	mapCmd.Flags().StringVar(&mapSubmitter, "submitter", "", "submitter id used as the memory partition key")
	rootCmd.AddCommand(mapCmd)
}

type fileResult struct {
	File   string               `json:"file"`
	Result *model.MappingResult `json:"result"`
}

func runMap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := mapper.New(store, cfg.Mapper)
	if err != nil {
		return err
	}

	results := make([]fileResult, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.MaxConcurrentFiles)

	for i, path := range args {
		g.Go(func() error {
			buf, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read %s", path)
			}
			res, err := m.MapDocument(gctx, buf, mapper.Options{
				Filename:    path,
				SubmitterID: mapSubmitter,
			})
			if err != nil {
				return eris.Wrapf(err, "map %s", path)
			}
			results[i] = fileResult{File: path, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode result")
		}
	}
	return nil
}
