package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/store"
	"github.com/matzehuels/stubdex/pkg/stub"
)

type lookupOpts struct {
	source    sourceOpts
	singleton bool
	noInherit bool
	private   bool
	json      bool
}

// lookupResult is the JSON shape of a resolved method.
type lookupResult struct {
	Module    string       `json:"module"`
	Owner     string       `json:"owner"`
	Key       string       `json:"key"`
	Signature string       `json:"signature"`
	Inherited bool         `json:"inherited"`
	Method    *stub.Method `json:"method"`
}

// moduleResult is the JSON shape of a module overview.
type moduleResult struct {
	Module       string         `json:"module"`
	Kind         stub.Kind      `json:"kind"`
	Superclass   string         `json:"superclass,omitempty"`
	Ancestors    []string       `json:"ancestors"`
	Superclasses []string       `json:"superclasses"`
	Methods      []lookupResult `json:"methods"`
}

// lookupCommand creates the lookup command.
func (c *CLI) lookupCommand() *cobra.Command {
	var opts lookupOpts

	cmd := &cobra.Command{
		Use:   "lookup <Module> [method]",
		Short: "Resolve a method or describe a module",
		Long: `Resolve a method through a module's ancestors and print its signature. Without a
method, print the module's ancestors and every method it responds to.

The method may also be given as a key: Array#each, File.open.

Examples:
  stubdex lookup Array each
  stubdex lookup File.open
  stubdex lookup Comparable --from stubs/rubystubs34
  stubdex lookup Integer --singleton --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, method, singleton := stub.ParseKey(args[0])
			if len(args) == 2 {
				if method != "" {
					return errors.New(errors.ErrCodeInvalidInput, "method given twice: %s and %s", args[0], args[1])
				}
				method = args[1]
			}
			if singleton {
				opts.singleton = true
			}
			if err := errors.ValidateModuleName(module); err != nil {
				return err
			}
			if method == "" {
				return c.runDescribe(cmd.Context(), cmd.OutOrStdout(), module, opts)
			}
			if err := errors.ValidateMethodName(method); err != nil {
				return err
			}
			return c.runLookup(cmd.Context(), cmd.OutOrStdout(), module, method, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().BoolVarP(&opts.singleton, "singleton", "s", false, "resolve singleton (class-level) methods")
	cmd.Flags().BoolVar(&opts.noInherit, "no-inherit", false, "only look at the module itself")
	cmd.Flags().BoolVar(&opts.private, "private", false, "include private methods in module listings")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")

	return cmd
}

func (c *CLI) runLookup(ctx context.Context, w io.Writer, module, method string, opts lookupOpts) error {
	res, err := c.lookup(ctx, module, method, opts)
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSON(w, res)
	}

	fmt.Fprintln(w, StyleTitle.Render(res.Key))
	fmt.Fprintln(w, "  "+StyleValue.Render(res.Signature))
	if res.Inherited {
		fmt.Fprintln(w, "  "+StyleDim.Render("inherited by "+res.Module))
	}
	if res.Method.Visibility != stub.Public {
		fmt.Fprintln(w, "  "+StyleWarning.Render(res.Method.Visibility.String()))
	}
	if res.Method.AliasOf != "" {
		fmt.Fprintln(w, "  "+StyleDim.Render("alias of "+res.Method.AliasOf))
	}
	fmt.Fprintln(w, "  "+StyleDim.Render(res.Method.Location.String()))
	if res.Method.Doc != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(res.Method.Doc, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
	return nil
}

// lookup resolves a method from the stored dispatch chains when reading a
// database, and from an in-memory database otherwise.
func (c *CLI) lookup(ctx context.Context, module, method string, opts lookupOpts) (*lookupResult, error) {
	if path := opts.source.databasePath(c.Env); path != "" && !opts.noInherit {
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		rec, err := s.LookupMethod(ctx, opts.source.run, module, method, opts.singleton)
		if err != nil {
			return nil, err
		}
		return &lookupResult{
			Module:    rec.Module,
			Owner:     rec.Owner,
			Key:       rec.Key(),
			Signature: rec.Method.Signature(),
			Inherited: rec.Owner != rec.Module,
			Method:    &rec.Method,
		}, nil
	}

	db, err := c.openDatabase(ctx, &opts.source)
	if err != nil {
		return nil, err
	}
	r, err := db.Lookup(module, method, index.LookupOptions{Singleton: opts.singleton, Inherited: !opts.noInherit})
	if err != nil {
		return nil, err
	}
	res := resolutionResult(*r)
	return &res, nil
}

func resolutionResult(r index.Resolution) lookupResult {
	return lookupResult{
		Module:    r.Module,
		Owner:     r.Owner.Name,
		Key:       r.Key(),
		Signature: r.Method.Signature(),
		Inherited: r.Inherited(),
		Method:    r.Method,
	}
}

func (c *CLI) runDescribe(ctx context.Context, w io.Writer, module string, opts lookupOpts) error {
	db, err := c.openDatabase(ctx, &opts.source)
	if err != nil {
		return err
	}
	res, err := describeModule(db, module, opts)
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSON(w, res)
	}

	title := fmt.Sprintf("%s %s", res.Kind, res.Module)
	if res.Superclass != "" {
		title += " < " + res.Superclass
	}
	fmt.Fprintln(w, StyleTitle.Render(title))
	fmt.Fprintln(w, "  "+StyleDim.Render("ancestors: ")+StyleValue.Render(strings.Join(res.Ancestors, " > ")))
	fmt.Fprintln(w)
	if len(res.Methods) == 0 {
		fmt.Fprintln(w, StyleDim.Render("  no methods"))
		return nil
	}
	fmt.Fprintln(w, methodTable(res.Methods))
	return nil
}

func describeModule(db *index.Database, module string, opts lookupOpts) (*moduleResult, error) {
	m, ok := db.Module(module)
	if !ok {
		return nil, fmt.Errorf("%w: %s", index.ErrModuleNotFound, module)
	}
	ancestors, err := db.Ancestors(module)
	if err != nil {
		return nil, err
	}
	supers, err := db.Superclasses(module)
	if err != nil {
		return nil, err
	}
	methods, err := db.Methods(module, opts.singleton, !opts.noInherit)
	if err != nil {
		return nil, err
	}

	res := &moduleResult{
		Module:       m.Name,
		Kind:         m.Kind,
		Superclass:   m.Superclass,
		Ancestors:    ancestors,
		Superclasses: supers,
		Methods:      []lookupResult{},
	}
	for _, r := range methods {
		if r.Method.Visibility == stub.Private && !opts.private {
			continue
		}
		res.Methods = append(res.Methods, resolutionResult(r))
	}
	return res, nil
}

func methodTable(methods []lookupResult) string {
	rows := make([][]string, 0, len(methods))
	for _, r := range methods {
		owner := ""
		if r.Inherited {
			owner = r.Owner
		}
		rows = append(rows, []string{r.Signature, owner, r.Method.Visibility.String()})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Signature", "From", "Visibility").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorDim)
		}).
		Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
