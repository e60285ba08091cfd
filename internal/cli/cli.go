// Subcommands that drive the dispatcher against a file, one per operation,
// plus capability and constant listings.
package cli

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/phusion/zangetsu/internal/config"
	"github.com/phusion/zangetsu/internal/dispatch"
	"github.com/phusion/zangetsu/internal/iomgr"
	"github.com/phusion/zangetsu/internal/system"

	"github.com/google/subcommands"
)

const GROUP_OPS = "operations"
const GROUP_INFO = "platform"

func Register(cdr *subcommands.Commander) {
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(cdr.FlagsCommand(), "")
	cdr.Register(cdr.CommandsCommand(), "")

	cdr.Register(&capsCmd{}, GROUP_INFO)
	cdr.Register(&constsCmd{}, GROUP_INFO)

	cdr.Register(&opCmd{op: iomgr.OpDataSync, name: "datasync",
		synopsis: "flush a file's data to disk", argNames: nil}, GROUP_OPS)
	cdr.Register(&opCmd{op: iomgr.OpAdvise, name: "advise",
		synopsis: "give an access pattern hint", argNames: []string{"offset", "length", "advice"}}, GROUP_OPS)
	cdr.Register(&opCmd{op: iomgr.OpPreallocate, name: "prealloc",
		synopsis: "reserve disk space", argNames: []string{"offset", "length"}}, GROUP_OPS)
	cdr.Register(&opCmd{op: iomgr.OpFallocate, name: "fallocate",
		synopsis: "reserve or punch disk space with mode flags", argNames: []string{"mode", "offset", "length"}}, GROUP_OPS)
	cdr.Register(&opCmd{op: iomgr.OpSyncRange, name: "syncrange",
		synopsis: "flush a byte range", argNames: []string{"offset", "nbytes", "flags"}}, GROUP_OPS)
}

// ParseNumber accepts integer literals (any base strconv knows) and named
// platform constants, optionally OR-ed: "SYNC_FILE_RANGE_WRITE|SYNC_FILE_RANGE_WAIT_AFTER".
func ParseNumber(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	consts := system.Constants()
	var v int64
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		c, ok := consts[part]
		if !ok {
			if n, err := strconv.ParseInt(part, 0, 64); err == nil {
				v |= n
				continue
			}
			return 0, fmt.Errorf("%q is neither a number nor a known constant", part)
		}
		v |= int64(c)
	}
	return v, nil
}

type capsCmd struct{}

func (*capsCmd) Name() string             { return "caps" }
func (*capsCmd) Synopsis() string         { return "list which operations this platform supports" }
func (*capsCmd) Usage() string            { return "caps\n" }
func (*capsCmd) SetFlags(f *flag.FlagSet) {}

func (*capsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	caps := system.Platform()
	for _, op := range iomgr.Ops() {
		fmt.Printf("%-16s %v\n", op, iomgr.Supported(op, caps))
	}
	return subcommands.ExitSuccess
}

type constsCmd struct{}

func (*constsCmd) Name() string             { return "consts" }
func (*constsCmd) Synopsis() string         { return "print the named advice/allocation/range flags" }
func (*constsCmd) Usage() string            { return "consts\n" }
func (*constsCmd) SetFlags(f *flag.FlagSet) {}

func (*constsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	consts := system.Constants()
	names := make([]string, 0, len(consts))
	for name := range consts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Printf("%-28s %d\n", name, consts[name])
	}
	return subcommands.ExitSuccess
}

type opCmd struct {
	op       iomgr.OpCode
	name     string
	synopsis string
	argNames []string

	async   bool
	create  bool
	timeout time.Duration
}

func (c *opCmd) Name() string     { return c.name }
func (c *opCmd) Synopsis() string { return c.synopsis }

func (c *opCmd) Usage() string {
	return fmt.Sprintf("%s [-async] [-create] <path> %s\n", c.name, strings.Join(wrap(c.argNames), " "))
}

func wrap(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "<" + n + ">"
	}
	return out
}

func (c *opCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.async, "async", false, "run through the worker pool and a continuation")
	f.BoolVar(&c.create, "create", false, "create the file if missing")
	f.DurationVar(&c.timeout, "timeout", 30*time.Second, "give up waiting for the continuation after this long")
}

func (c *opCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	cfg := config.Default()
	if len(args) > 0 {
		if given, ok := args[0].(config.Config); ok {
			cfg = given
		}
	}
	if f.NArg() != 1+len(c.argNames) {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	callArgs := make([]any, 0, 1+len(c.argNames))
	for i, s := range f.Args()[1:] {
		v, err := ParseNumber(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", c.argNames[i], err)
			return subcommands.ExitUsageError
		}
		callArgs = append(callArgs, v)
	}

	if err := c.run(ctx, cfg, f.Arg(0), callArgs); err != nil {
		slog.Error(c.name, "path", f.Arg(0), "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *opCmd) run(ctx context.Context, cfg config.Config, path string, nums []any) error {
	flags := os.O_RDWR
	if c.create {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	d, err := dispatch.New(dispatch.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer d.Close(context.Background())

	args := append([]any{int(file.Fd())}, nums...)
	start := time.Now()
	if !c.async {
		err = d.Call(c.op, args, nil)
		slog.Info(c.name, "mode", "sync", "took", time.Since(start), "err", err)
		return err
	}

	var result error
	if err := d.Call(c.op, args, func(err error) { result = err }); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for %s: %w", c.name, err)
	}
	slog.Info(c.name, "mode", "async", "took", time.Since(start), "err", result)
	return result
}
