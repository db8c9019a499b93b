package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/orizon-lang/lattice/internal/cli"
	"github.com/orizon-lang/lattice/internal/promotion"
	"github.com/orizon-lang/lattice/internal/types"
)

const toolName = "orizon-lattice"

var lattice = &cli.Tool{
	Name:    toolName,
	Summary: "query the type lattice and promotion rules",
	Commands: []cli.CommandInfo{
		{Name: "join", Usage: "orizon-lattice join TYPE...", Description: "Least common supertype of the given types",
			Examples: []string{`orizon-lattice join Int64 Float64`, `orizon-lattice join "Tuple{Int64, Int64}" "Tuple{Int64, Vararg{Int64}}"`}},
		{Name: "split", Usage: "orizon-lattice split TYPE REMOVE", Description: "Remove a component from a union type"},
		{Name: "subtype", Usage: "orizon-lattice subtype A B", Description: "Report whether A <: B"},
		{Name: "promote", Usage: "orizon-lattice promote TYPE...", Description: "Common promotion type of the given types"},
		{Name: "promote-join", Usage: "orizon-lattice promote-join A B", Description: "Widened element type keeping nullish members"},
		{Name: "values", Usage: "orizon-lattice values LIT::TYPE...", Description: "Promote typed literals to a common type",
			Examples: []string{`orizon-lattice values 1::Int32 2.5::Float64`}},
		{Name: "apply", Usage: "orizon-lattice apply OP LIT::TYPE LIT::TYPE", Description: "Apply an arithmetic operator after promotion",
			Examples: []string{`orizon-lattice apply + 2::Int64 0.5::Float64`}},
		{Name: "rules", Usage: "orizon-lattice rules", Description: "List the registered promotion rules"},
		{Name: "config", Usage: "orizon-lattice config [FILE]", Description: "Print the effective configuration or save it to FILE"},
	},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		showVersion bool
		jsonOutput  bool
		configFile  string
		logLevel    string
		rulesFile   string
		cacheSize   int64
	)
	fs.BoolVar(&showVersion, "version", false, "show version information")
	fs.BoolVar(&jsonOutput, "json", false, "output version in JSON format")
	fs.StringVar(&configFile, "config", "", "YAML configuration file")
	fs.StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	fs.StringVar(&rulesFile, "rules", "", "YAML promotion rule set (overrides config)")
	fs.Int64Var(&cacheSize, "join-cache", -1, "join cache size in entries, 0 disables (overrides config)")
	fs.Usage = func() { lattice.PrintUsage(fs.Output(), fs) }
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if showVersion {
		if err := cli.PrintVersion(stdout, toolName, jsonOutput); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := lattice.Command(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		return 1
	}
	if cli.IsHelp(rest[1:]) {
		lattice.PrintCommandUsage(stderr, cmd, nil)
		return 0
	}

	cfg, err := cli.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if rulesFile != "" {
		cfg.RulesFile = rulesFile
	}
	if cacheSize >= 0 {
		cfg.JoinCacheSize = cacheSize
	}
	logger, err := cli.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	if cmd.Name == "config" {
		err = writeConfig(cfg, cmd, rest[1:], stdout)
	} else {
		var a *app
		a, err = newApp(cfg, logger, stdout)
		if err == nil {
			defer a.close()
			err = a.dispatch(cmd, rest[1:])
		}
	}
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(stderr, "Error: %v\n", e)
		}
		return 1
	}
	return 0
}

type app struct {
	u      *types.Universe
	l      *types.Lattice
	p      *promotion.Promoter
	ops    *promotion.Operators
	logger *zap.Logger
	out    io.Writer
}

func newApp(cfg *cli.Config, logger *zap.Logger, out io.Writer) (*app, error) {
	u := types.NewUniverse()
	opts := []types.Option{types.WithLogger(logger)}
	if cfg.JoinCacheSize > 0 {
		opts = append(opts, types.WithJoinCache(cfg.JoinCacheSize))
	}
	l := types.NewLattice(u, opts...)

	reg := promotion.DefaultRegistry(u)
	if cfg.RulesFile != "" {
		if err := loadRulesFile(cfg.RulesFile, u, reg, logger); err != nil {
			l.Close()
			return nil, err
		}
	}
	reg.Seal()

	p := promotion.NewPromoter(l, reg,
		promotion.WithConverter(promotion.DefaultConversions(u, l)),
		promotion.WithNullish(u.Nullish()...),
		promotion.WithLogger(logger))
	return &app{u: u, l: l, p: p, ops: promotion.DefaultOperators(u, p), logger: logger, out: out}, nil
}

func loadRulesFile(path string, u *types.Universe, reg *promotion.Registry, logger *zap.Logger) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open rule set: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	n, err := promotion.LoadRules(f, u, reg)
	logger.Info("loaded promotion rules", zap.String("file", path), zap.Int("rules", n))
	return err
}

func (a *app) close() { a.l.Close() }

// writeConfig prints the effective configuration, or saves it when a path is
// given so it can be passed back with -config.
func writeConfig(cfg *cli.Config, cmd cli.CommandInfo, args []string, out io.Writer) error {
	if err := cli.ValidateArgs(cmd, args, 0, 1); err != nil {
		return err
	}
	if len(args) == 0 {
		return cfg.Encode(out)
	}
	if err := cfg.SaveConfig(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", args[0])
	return nil
}

func (a *app) dispatch(cmd cli.CommandInfo, args []string) error {
	switch cmd.Name {
	case "join":
		ts, err := a.parseTypes(cmd, args, 1, -1)
		if err != nil {
			return err
		}
		a.println(a.l.JoinAll(ts...))
	case "split":
		ts, err := a.parseTypes(cmd, args, 2, 2)
		if err != nil {
			return err
		}
		a.println(a.l.Split(ts[0], ts[1]))
	case "subtype":
		ts, err := a.parseTypes(cmd, args, 2, 2)
		if err != nil {
			return err
		}
		a.println(a.l.IsSubtype(ts[0], ts[1]))
	case "promote":
		ts, err := a.parseTypes(cmd, args, 1, -1)
		if err != nil {
			return err
		}
		a.println(a.p.PromoteTypes(ts...))
	case "promote-join":
		ts, err := a.parseTypes(cmd, args, 2, 2)
		if err != nil {
			return err
		}
		a.println(a.p.PromoteTypeJoin(ts[0], ts[1]))
	case "values":
		if err := cli.ValidateArgs(cmd, args, 1, -1); err != nil {
			return err
		}
		vs, err := a.parseValues(args)
		if err != nil {
			return err
		}
		out, err := a.p.Promote(vs...)
		if err != nil {
			return err
		}
		a.println(formatValues(out))
	case "apply":
		if err := cli.ValidateArgs(cmd, args, 3, 3); err != nil {
			return err
		}
		vs, err := a.parseValues(args[1:])
		if err != nil {
			return err
		}
		res, err := a.ops.Apply(args[0], vs[0], vs[1])
		if err != nil {
			return err
		}
		a.println(res)
	case "rules":
		if err := cli.ValidateArgs(cmd, args, 0, 0); err != nil {
			return err
		}
		lines := make([]string, 0)
		for _, r := range a.p.Registry().Rules() {
			lines = append(lines, fmt.Sprintf("%s, %s => %s", r.A, r.B, r.Result))
		}
		sort.Strings(lines)
		for _, line := range lines {
			a.println(line)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}

// parseTypes parses every argument, reporting all malformed ones. max < 0
// means no upper bound.
func (a *app) parseTypes(cmd cli.CommandInfo, args []string, min, max int) ([]types.Type, error) {
	if err := cli.ValidateArgs(cmd, args, min, max); err != nil {
		return nil, err
	}
	ts := make([]types.Type, len(args))
	var errs error
	for i, s := range args {
		t, err := types.Parse(a.u, s)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		ts[i] = t
	}
	return ts, errs
}

func (a *app) parseValues(args []string) ([]promotion.Value, error) {
	vs := make([]promotion.Value, len(args))
	var errs error
	for i, s := range args {
		v, err := promotion.ParseValue(a.u, s)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		vs[i] = v
	}
	return vs, errs
}

func (a *app) println(v interface{}) { fmt.Fprintln(a.out, v) }

func formatValues(vs []promotion.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
