package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/cache"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/hierarchy"
)

type graphOpts struct {
	source      sourceOpts
	output      string
	format      string
	root        string
	noMixins    bool
	noExternals bool
	detailed    bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph [Module]",
		Short: "Draw the class and module hierarchy as DOT or SVG",
		Long: `Draw the ancestry graph of a signature database: superclass edges plus
include, extend and prepend edges. SVG output is rendered with Graphviz and
cached.

Examples:
  stubdex graph -o hierarchy.dot
  stubdex graph Integer --format svg -o integer.svg
  stubdex graph --no-mixins --no-externals --detailed -o classes.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if opts.root != "" && opts.root != args[0] {
					return errors.New(errors.ErrCodeInvalidInput, "module given twice: %s and --root %s", args[0], opts.root)
				}
				opts.root = args[0]
			}
			return c.runGraph(cmd.Context(), cmd, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file; stdout when empty")
	cmd.Flags().StringVar(&opts.format, "format", "", "dot or svg (default: from the output extension, then dot)")
	cmd.Flags().StringVar(&opts.root, "root", "", "limit the graph to one module's ancestors and descendants (same as the argument)")
	cmd.Flags().BoolVar(&opts.noMixins, "no-mixins", false, "draw superclass edges only")
	cmd.Flags().BoolVar(&opts.noExternals, "no-externals", false, "drop ancestors not declared in the corpus")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with their kind and method count")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, cmd *cobra.Command, opts graphOpts) error {
	format := opts.format
	if format == "" {
		format = "dot"
		if hasExt(opts.output, ".svg") {
			format = "svg"
		}
	}
	if format != "dot" && format != "svg" {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want dot or svg)", format)
	}

	db, err := c.openDatabase(ctx, &opts.source)
	if err != nil {
		return err
	}
	g, err := hierarchy.Build(db, hierarchy.Options{
		Root:          opts.root,
		SkipMixins:    opts.noMixins,
		SkipExternals: opts.noExternals,
	})
	if err != nil {
		return err
	}
	dot := hierarchy.ToDOT(g, hierarchy.DOTOptions{Detailed: opts.detailed})

	data := []byte(dot)
	if format == "svg" {
		data, err = c.renderSVG(ctx, dot, opts)
		if err != nil {
			return err
		}
	}

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", opts.output)
	}
	printSuccess("Drew %d modules, %d edges", g.NodeCount(), g.EdgeCount())
	printFile(opts.output)
	return nil
}

// renderSVG renders dot through Graphviz, reusing a cached rendering of the
// same document.
func (c *CLI) renderSVG(ctx context.Context, dot string, opts graphOpts) ([]byte, error) {
	cc := c.newCache(ctx, opts.source.noCache)
	defer cc.Close()

	key := cache.NewDefaultKeyer().ArtifactKey(cache.Hash([]byte(dot)), cache.ArtifactKeyOpts{Format: "svg", Detailed: opts.detailed})
	if data, ok, err := cc.Get(ctx, key); err == nil && ok {
		c.Logger.Debug("svg cache hit", "key", key)
		return data, nil
	}

	prog := newProgress(c.Logger)
	svg, err := hierarchy.RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	prog.done("rendered svg")
	if err := cc.Set(ctx, key, svg, cache.TTLArtifact); err != nil {
		c.Logger.Warn("cache write failed", "key", key, "error", err)
	}
	return svg, nil
}
