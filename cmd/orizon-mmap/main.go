package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/orizon-lang/lattice/internal/cli"
	"github.com/orizon-lang/lattice/internal/mmap"
	"github.com/orizon-lang/lattice/internal/promotion"
	"github.com/orizon-lang/lattice/internal/runtime/vfs"
	"github.com/orizon-lang/lattice/internal/types"
)

const toolName = "orizon-mmap"

var mmapTool = &cli.Tool{
	Name:    toolName,
	Summary: "inspect and edit memory-mapped array files",
	Commands: []cli.CommandInfo{
		{Name: "dump", Usage: "orizon-mmap dump [-type T] [-offset N] [-count N] FILE", Description: "Print the elements of a mapped file",
			Examples: []string{"orizon-mmap dump -type Float64 data.bin"}},
		{Name: "poke", Usage: "orizon-mmap poke [-type T] [-offset N] [-no-grow] FILE INDEX VALUE", Description: "Store one element through a shared mapping",
			Examples: []string{"orizon-mmap poke -type Int32 data.bin 3 -7"}},
		{Name: "bits", Usage: "orizon-mmap bits [-offset N] FILE NBITS [SET...]", Description: "Set bits in a bit-packed file and count them"},
		{Name: "watch", Usage: "orizon-mmap watch [-poll DURATION] [-events N] FILE", Description: "Re-map a file whenever it changes"},
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		showVersion bool
		jsonOutput  bool
		configFile  string
		logLevel    string
	)
	fs.BoolVar(&showVersion, "version", false, "show version information")
	fs.BoolVar(&jsonOutput, "json", false, "output version in JSON format")
	fs.StringVar(&configFile, "config", "", "YAML configuration file")
	fs.StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	fs.Usage = func() { mmapTool.PrintUsage(fs.Output(), fs) }
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

	cfg, err := cli.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := cli.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	t := &tool{u: types.NewUniverse(), logger: logger, out: stdout, errOut: stderr}
	var cmdErr error
	switch rest[0] {
	case "dump":
		cmdErr = t.dump(rest[1:])
	case "poke":
		cmdErr = t.poke(rest[1:])
	case "bits":
		cmdErr = t.bits(rest[1:])
	case "watch":
		cmdErr = t.watch(ctx, rest[1:])
	default:
		cmdErr = fmt.Errorf("unknown command %q", rest[0])
	}
	if errors.Is(cmdErr, flag.ErrHelp) {
		return 0
	}
	if cmdErr != nil {
		for _, e := range multierr.Errors(cmdErr) {
			fmt.Fprintf(stderr, "Error: %v\n", e)
		}
		return 1
	}
	return 0
}

type tool struct {
	u      *types.Universe
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

// flags returns the flag set of a subcommand. Its usage and parse errors go
// to the tool's error stream.
func (t *tool) flags(cmd cli.CommandInfo) *flag.FlagSet {
	fs := flag.NewFlagSet(toolName+" "+cmd.Name, flag.ContinueOnError)
	fs.SetOutput(t.errOut)
	fs.Usage = func() { mmapTool.PrintCommandUsage(fs.Output(), cmd, fs) }
	return fs
}

func command(name string) cli.CommandInfo {
	cmd, _ := mmapTool.Command(name)
	return cmd
}

func (t *tool) elemType(name string) (types.Type, error) {
	return types.Parse(t.u, name)
}

func (t *tool) dump(args []string) (err error) {
	cmd := command("dump")
	fs := t.flags(cmd)
	typ := fs.String("type", "UInt8", "element type")
	offset := fs.Int64("offset", 0, "byte offset of the first element")
	count := fs.Int("count", -1, "number of elements, -1 for the rest of the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cli.ValidateArgs(cmd, fs.Args(), 1, 1); err != nil {
		return err
	}
	elem, err := t.elemType(*typ)
	if err != nil {
		return err
	}

	f, err := vfs.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	var dims []int
	if *count >= 0 {
		dims = []int{*count}
	}
	buf, err := mmap.Map(f, elem, dims, mmap.WithOffset(*offset), mmap.WithGrow(false), mmap.WithLogger(t.logger))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, buf.Close()) }()
	buf.Advise(mmap.AdviceSequential)

	fmt.Fprintf(t.out, "%s: %s of %s at offset %d\n", f.Name(), humanize.IBytes(uint64(buf.Len())), elem, buf.Offset())
	return printElements(t.out, buf)
}

func (t *tool) poke(args []string) (err error) {
	cmd := command("poke")
	fs := t.flags(cmd)
	typ := fs.String("type", "UInt8", "element type")
	offset := fs.Int64("offset", 0, "byte offset of element zero")
	noGrow := fs.Bool("no-grow", false, "fail instead of extending the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cli.ValidateArgs(cmd, fs.Args(), 3, 3); err != nil {
		return err
	}
	elem, err := t.elemType(*typ)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(fs.Arg(1))
	if err != nil || index < 0 {
		return fmt.Errorf("poke: bad index %q", fs.Arg(1))
	}
	data, err := promotion.ParseLiteral(elem, fs.Arg(2))
	if err != nil {
		return fmt.Errorf("poke: %w", err)
	}

	f, err := vfs.OpenFile(fs.Arg(0), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	buf, err := mmap.Map(f, elem, []int{index + 1},
		mmap.WithOffset(*offset), mmap.WithGrow(!*noGrow), mmap.WithLogger(t.logger))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, buf.Close()) }()

	if err := storeElement(buf, index, data); err != nil {
		return err
	}
	if err := buf.Sync(); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "%s[%d] = %v::%s\n", f.Name(), index, data, elem)
	return nil
}

func (t *tool) bits(args []string) (err error) {
	cmd := command("bits")
	fs := t.flags(cmd)
	offset := fs.Int64("offset", 0, "byte offset of the bit array")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cli.ValidateArgs(cmd, fs.Args(), 2, -1); err != nil {
		return err
	}
	nbits, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("bits: bad bit count %q", fs.Arg(1))
	}
	var set []int
	var errs error
	for _, s := range fs.Args()[2:] {
		i, perr := strconv.Atoi(s)
		if perr != nil {
			errs = multierr.Append(errs, fmt.Errorf("bits: bad bit index %q", s))
			continue
		}
		set = append(set, i)
	}
	if errs != nil {
		return errs
	}

	mode := os.O_RDONLY
	if len(set) > 0 {
		mode = os.O_RDWR | os.O_CREATE
	}
	f, err := vfs.OpenFile(fs.Arg(0), mode, 0o644)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	b, err := mmap.MapBits(f, nbits, mmap.WithOffset(*offset), mmap.WithLogger(t.logger))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, b.Close()) }()

	for _, i := range set {
		errs = multierr.Append(errs, b.Set(i, true))
	}
	if errs != nil {
		return errs
	}
	if err := b.Buffer().Sync(); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "%d of %d bits set\n", b.Count(), b.Len())
	return nil
}

func (t *tool) watch(ctx context.Context, args []string) error {
	cmd := command("watch")
	fs := t.flags(cmd)
	poll := fs.Duration("poll", 0, "poll at this interval instead of using OS notifications")
	events := fs.Int("events", 0, "stop after this many change events, 0 to run until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cli.ValidateArgs(cmd, fs.Args(), 1, 1); err != nil {
		return err
	}
	path := fs.Arg(0)

	w, err := t.newWatcher(ctx, *poll)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if err := t.report(path); err != nil {
		return err
	}

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			t.logger.Warn("watch error", zap.Error(err))
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Path != path || ev.Op&(vfs.OpWrite|vfs.OpCreate) == 0 {
				continue
			}
			t.logger.Debug("change", zap.String("path", ev.Path), zap.Stringer("op", ev.Op))
			if err := t.report(path); err != nil {
				return err
			}
			seen++
			if *events > 0 && seen >= *events {
				return nil
			}
		}
	}
}

func (t *tool) newWatcher(ctx context.Context, poll time.Duration) (vfs.Watcher, error) {
	if poll <= 0 {
		w, err := vfs.NewFSWatcher()
		if err == nil {
			return w, nil
		}
		t.logger.Info("OS notifications unavailable; polling", zap.Error(err))
		poll = 250 * time.Millisecond
	}
	w := vfs.NewPollingWatcher(poll)
	w.Start(ctx)
	return w, nil
}

// report maps path read-only and prints its size and a short prefix.
func (t *tool) report(path string) (err error) {
	f, err := vfs.Open(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	buf, err := mmap.Map(f, t.u.MustLookup("UInt8"), nil, mmap.WithLogger(t.logger))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, buf.Close()) }()

	head := buf.Bytes()
	if len(head) > 16 {
		head = head[:16]
	}
	fmt.Fprintf(t.out, "%s %s %s\n", path, humanize.IBytes(uint64(buf.Len())), hex.EncodeToString(head))
	return nil
}
