package main

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fibers/internal/config"
	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/engine"
	"github.com/vango-dev/fibers/pkg/host/memory"
	"github.com/vango-dev/fibers/pkg/idle"
	"github.com/vango-dev/fibers/pkg/publish"
	"github.com/vango-dev/fibers/pkg/render"
)

type renderOptions struct {
	budget  int
	pretty  bool
	json    bool
	eager   bool
	publish string
}

func renderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render an element document and print the host tree",
		Long: `Render a YAML or JSON element document into an in-memory host and
print the committed tree as HTML.

The render phase runs in idle slices of --budget units of work each,
so the report shows how many slices the pass needed.

Examples:
  fibers render page.yaml
  fibers render page.yaml --budget 2 --pretty
  fibers render page.json --json
  fibers render page.yaml --publish s3://previews/home
  fibers render page.yaml --publish ./out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "Units of work per idle slice (0: unbounded)")
	cmd.Flags().BoolVarP(&opts.pretty, "pretty", "p", false, "Indent the HTML output")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the tree as JSON")
	cmd.Flags().BoolVar(&opts.eager, "eager", false, "Apply mutations during the commit walk")
	cmd.Flags().StringVar(&opts.publish, "publish", "", "Also write index.html and tree.json to a directory or s3://bucket/prefix")

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func runRender(cmd *cobra.Command, path string, opts renderOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	el, err := element.DecodeFile(path, components())
	if err != nil {
		return err
	}

	mode := cfg.CommitMode()
	if opts.eager {
		mode = engine.CommitEager
	}

	h := memory.New()
	root := h.Container("root")
	sched := idle.NewManual()
	eng := engine.New(h, sched,
		engine.WithLogger(logger),
		engine.WithThreshold(cfg.Engine.Threshold),
		engine.WithCommitMode(mode),
	)

	if err := eng.Render(el, root); err != nil {
		return err
	}
	next := idle.Unbounded
	if opts.budget > 0 {
		next = func() idle.Deadline { return idle.Units(opts.budget) }
	}
	sched.Drain(next)
	if err := eng.Err(); err != nil {
		return err
	}

	tree := h.Snapshot(root)
	var page bytes.Buffer
	if err := render.NewRenderer(render.Config{Pretty: opts.pretty}).Children(&page, tree); err != nil {
		return err
	}
	if !opts.pretty {
		page.WriteByte('\n')
	}
	doc, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	doc = append(doc, '\n')

	out := cmd.OutOrStdout()
	if opts.json {
		_, err = out.Write(doc)
	} else {
		_, err = out.Write(page.Bytes())
	}
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if opts.publish != "" {
		p, err := publish.Open(opts.publish, publish.S3Config{
			Region:    cfg.Publish.Region,
			Endpoint:  cfg.Publish.Endpoint,
			PathStyle: cfg.Publish.PathStyle,
		})
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := p.Publish(ctx, "index.html", "text/html; charset=utf-8", page.Bytes()); err != nil {
			return err
		}
		if err := p.Publish(ctx, "tree.json", "application/json", doc); err != nil {
			return err
		}
		success(stderr, "Published index.html and tree.json to %s", opts.publish)
	}

	r := eng.LastReport()
	success(stderr, "Committed %d placements, %d updates, %d deletions", r.Placements, r.Updates, r.Deletions)
	info(stderr, "%d units of work in %d slices, %d mutations (%s commit)", r.Units, r.Slices, r.Mutations, r.Mode)
	return nil
}
