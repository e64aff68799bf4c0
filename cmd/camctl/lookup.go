package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/camtable/cam"
	"github.com/IvanBrykalov/camtable/internal/config"
)

type lookupOptions struct {
	configPath string
	dump       bool
}

func newLookupCmd(ro *rootOptions) *cobra.Command {
	o := &lookupOptions{}
	cmd := &cobra.Command{
		Use:   "lookup [flags] QUERY...",
		Short: "Load a table from YAML and resolve queries against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.Context(), cmd.OutOrStdout(), ro.log, o, args)
		},
	}
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "table definition (YAML)")
	cmd.Flags().BoolVar(&o.dump, "dump", false, "print every valid slot read back by scan")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runLookup(ctx context.Context, out io.Writer, log *zap.Logger, o *lookupOptions, queries []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	tb, err := loadTable(cfg, log)
	if err != nil {
		return err
	}

	if o.dump {
		if err := dumpTable(ctx, out, cfg, tb); err != nil {
			return err
		}
	}

	for _, q := range queries {
		k, err := cfg.ParseKey(q)
		if err != nil {
			return fmt.Errorf("query %q: %w", q, err)
		}
		res, err := tb.Search(k)
		switch {
		case err != nil:
			fmt.Fprintf(out, "%s\terror: %v\n", q, err)
		case !res.Found:
			fmt.Fprintf(out, "%s\tmiss\n", q)
		default:
			fmt.Fprintf(out, "%s\tslot=%d\tmetadata=%d\n", q, res.Index, res.Metadata)
		}
	}
	return nil
}

// loadTable builds the table and applies the seed entries in order.
func loadTable(cfg *config.Config, log *zap.Logger) (cam.Table, error) {
	opt, err := cfg.Options(log, nil)
	if err != nil {
		return nil, err
	}
	tb, err := cam.New(opt)
	if err != nil {
		return nil, err
	}
	ws, err := cfg.Writes()
	if err != nil {
		return nil, err
	}
	for n, w := range ws {
		res, err := tb.ProposeWrite(w)
		if err != nil && !errors.Is(err, cam.ErrIntegrity) {
			return nil, fmt.Errorf("entry %d: %w", n, err)
		}
		if err != nil {
			log.Warn("seed entry conflicts", zap.Int("entry", n), zap.Error(err))
		}
		if res.RejectedDuplicate {
			log.Info("seed entry duplicates an earlier one",
				zap.Int("entry", n), zap.Int("slot", res.RejectedDuplicateOf))
		}
	}
	return tb, nil
}

func dumpTable(ctx context.Context, out io.Writer, cfg *config.Config, tb cam.Table) error {
	var slots []int
	tb.Range(func(i int, _ cam.Entry) bool {
		slots = append(slots, i)
		return true
	})
	for _, i := range slots {
		sr, err := tb.Scan(ctx, i)
		if err != nil {
			return err
		}
		if !sr.Found {
			continue
		}
		e, err := tb.Entry(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "slot %d\t%s/%d\tmetadata=%d\n",
			i, cfg.FormatKey(sr.BaseKey), bits.OnesCount64(sr.Mask), e.Metadata)
	}
	return nil
}
