package cmd

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/varcombine/combine"
	"github.com/grailbio/varcombine/config"
	"github.com/grailbio/varcombine/dedup"
	"github.com/grailbio/varcombine/encoding/vcf"
	"github.com/grailbio/varcombine/encoding/vcfgz"
	"github.com/grailbio/varcombine/normalize"
	"github.com/grailbio/varcombine/sortmerge"
	"github.com/grailbio/varcombine/toolenv"
	"v.io/x/lib/cmdline"
)

// settings are the flags shared by commands that read a config file.
type settings struct {
	configPath *string
	logLevel   *string
}

func addSettings(cmd *cmdline.Command) settings {
	return settings{
		configPath: cmd.Flags.String("config", "", "TOML file with default settings"),
		logLevel:   cmd.Flags.String("log-level", "", "One of info, warn or debug. Overrides the config file"),
	}
}

// load reads the config file and applies the log level.
func (s settings) load() (config.Config, error) {
	cfg, err := config.Load(*s.configPath)
	if err != nil {
		return cfg, err
	}
	if *s.logLevel != "" {
		cfg.LogLevel = *s.logLevel
	}
	if err := toolenv.SetLogLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(cmd *cmdline.Command, name string) bool {
	found := false
	cmd.Flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func newCmdCombine() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "combine",
		Short:    "Merge variant files and resolve duplicate records",
		ArgsName: "input.vcf...",
		Long: `
Combine sort-merges two or more variant files into one and resolves records
that share (CHROM, POS, REF, ALT). With -policy=all every record is kept,
with -policy=first the first record of each duplicate run is kept, and with
-policy=none every record that has a duplicate is removed.`,
	}
	s := addSettings(cmd)
	out := cmd.Flags.String("o", "", "Output path. Required")
	policy := cmd.Flags.String("policy", "all", "Duplicate policy: all, first or none")
	gzip := cmd.Flags.Bool("gzip", true, "Compress and index the output")
	sortScript := cmd.Flags.String("sort-script", "", "External sort program, such as sort_vcf.sh. "+
		"By default inputs are merged in-process and must each be sorted with chromosomes in "+
		"1..22, X, Y, M order (see -mito-first)")
	mitoFirst := cmd.Flags.Bool("mito-first", false, "In-process merge: inputs put chrM before chr1, as in hg19")
	metrics := cmd.Flags.String("metrics", "", "If set, write duplicate statistics to this path")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		cfg, err := s.load()
		if err != nil {
			return err
		}
		if *out == "" {
			return fmt.Errorf("combine: -o is required")
		}
		opts := combine.Opts{
			Output:      *out,
			Inputs:      argv,
			Policy:      cfg.Policy,
			Gzip:        cfg.Gzip,
			MetricsFile: *metrics,
			Compressor:  cfg.BGZF,
		}
		if flagSet(cmd, "policy") {
			if opts.Policy, err = dedup.ParsePolicy(*policy); err != nil {
				return err
			}
		}
		if flagSet(cmd, "gzip") {
			opts.Gzip = *gzip
		}
		script := cfg.SortScript
		if *sortScript != "" {
			script = *sortScript
		}
		if script != "" {
			opts.SortMerger = sortmerge.Exec{Script: script}
		} else {
			opts.SortMerger = sortmerge.Merge{MitoFirst: *mitoFirst}
		}
		path, err := combine.Combine(vcontext.Background(), opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, path)
		return nil
	})
	return cmd
}

func newCmdClean() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "clean",
		Short:    "Rewrite variant files into the minimal 10-column form",
		ArgsName: "input.vcf...",
		Long: `
Clean writes <name>.clean.vcf.gz and its index for every input. ID, QUAL and
FILTER are blanked, INFO is kept only if its keys are distinct, and a "./."
genotype becomes "0/1". Records with fewer than 9 fields are dropped with a
warning.`,
	}
	s := addSettings(cmd)
	outDir := cmd.Flags.String("outdir", "", "Output directory. By default each input's directory")
	sorted := cmd.Flags.Bool("sort", false, "Sort each clean file before compressing it")
	mitoFirst := cmd.Flags.Bool("mito-first", false, "With -sort: inputs put chrM before chr1, as in hg19")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("clean takes at least one input, but got none")
		}
		cfg, err := s.load()
		if err != nil {
			return err
		}
		ctx := vcontext.Background()
		opts := normalize.FileOpts{OutDir: *outDir, Compressor: cfg.BGZF}
		if *sorted {
			opts.Sorter = sortmerge.Merge{MitoFirst: *mitoFirst}
			if cfg.SortScript != "" {
				opts.Sorter = sortmerge.Exec{Script: cfg.SortScript}
			}
		}
		for _, path := range argv {
			gzPath, res, err := normalize.CleanFile(ctx, path, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Stdout, "%s\t%d\t%d\n", gzPath, res.Records, len(res.Dropped))
		}
		return nil
	})
	return cmd
}

func newCmdInfo() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "info",
		Short:    "Print the value of an annotation for every record",
		ArgsName: "path name",
		Long: `
Info prints CHROM, POS and the value of the named annotation for each data
record. The value is looked up in FORMAT/sample pairs and in INFO lists
without regard to column positions. "." is printed when it is not found.`,
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("info takes path and name, but got %v", argv)
		}
		name := argv[1]
		return withInput(argv[0], func(r io.Reader) error {
			sc := vcf.NewScanner(r)
			for sc.Scan() {
				rec := sc.Record()
				if rec.IsHeader() {
					continue
				}
				v, ok := vcf.Lookup(rec, name)
				if !ok {
					v = "."
				}
				fmt.Fprintf(env.Stdout, "%s\t%s\t%s\n", rec.Chrom(), rec.Pos(), v)
			}
			return sc.Err()
		})
	})
	return cmd
}

func newCmdCount() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "count",
		Short:    "Count the data records of variant files",
		ArgsName: "path...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		for _, path := range argv {
			err := withInput(path, func(r io.Reader) error {
				n, err := vcf.CountVariants(r)
				if err == nil {
					fmt.Fprintf(env.Stdout, "%s\t%d\n", path, n)
				}
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return cmd
}

func newCmdFilter() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "filter",
		Short:    "Copy the headers and the records of one chromosome",
		ArgsName: "srcpath destpath",
	}
	chrom := cmd.Flags.String("chrom", "", "Chromosome to keep. Required")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("filter takes srcpath destpath, but got %v", argv)
		}
		if *chrom == "" {
			return fmt.Errorf("filter: -chrom is required")
		}
		ctx := vcontext.Background()
		return withInput(argv[0], func(r io.Reader) error {
			out, err := file.Create(ctx, argv[1])
			if err != nil {
				return err
			}
			if err := vcf.FilterChrom(r, out.Writer(ctx), *chrom); err != nil {
				out.Discard(ctx)
				return err
			}
			return out.Close(ctx)
		})
	})
	return cmd
}

func newCmdFind() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "find",
		Short:    "Find the record matching a variant, or the closest one",
		ArgsName: "path chrom pos [ref alt]",
		Long: `
With ref and alt, find prints the first record with the same CHROM, POS, REF
and ALT. Without them it prints the record on chrom nearest to pos, if one
lies within 100 bases. Nothing is printed if there is no such record.`,
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 && len(argv) != 5 {
			return fmt.Errorf("find takes path chrom pos [ref alt], but got %v", argv)
		}
		return withInput(argv[0], func(r io.Reader) error {
			var (
				rec vcf.Record
				err error
			)
			if len(argv) == 5 {
				rec, err = vcf.MatchingAltRef(r, vcf.DuplicateKey{Chrom: argv[1], Pos: argv[2], Ref: argv[3], Alt: argv[4]})
			} else {
				var pos int
				if pos, err = strconv.Atoi(argv[2]); err != nil {
					return fmt.Errorf("find: bad position %q", argv[2])
				}
				rec, err = vcf.ClosestVariant(r, argv[1], pos)
			}
			if err != nil || rec == nil {
				return err
			}
			_, err = fmt.Fprintln(env.Stdout, rec.String())
			return err
		})
	})
	return cmd
}

func newCmdIndexQuery() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index-query",
		Short:    "Print the records of a compressed, indexed file within a region",
		ArgsName: "path.gz chrom:start-end",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("index-query takes path and region, but got %v", argv)
		}
		chrom, start, end, err := parseRegion(argv[1])
		if err != nil {
			return err
		}
		lines, err := vcfgz.Query(vcontext.Background(), argv[0], chrom, start, end)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(env.Stdout, line)
		}
		return nil
	})
	return cmd
}

func newCmdChecksum() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "checksum",
		Short: `Compute an order-independent checksum of the data records of a variant file.
The checksum is a JSON list with one summary per chromosome`,
		ArgsName: "path",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("checksum takes a path, but found %v", argv)
		}
		return withInput(argv[0], func(r io.Reader) error {
			return checksum(r, env.Stdout)
		})
	})
	return cmd
}

func newCmdVersion() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "version",
		Short: "Print the simulator version after checking the Java runtime",
	}
	s := addSettings(cmd)
	root := cmd.Flags.String("root", "", "Installation directory with bundled tools. Overrides the config file")
	simulator := cmd.Flags.String("simulator", "", "If set, also validate -simulator-opts for this read simulator")
	simOpts := cmd.Flags.String("simulator-opts", "", "Options passed to the read simulator")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		cfg, err := s.load()
		if err != nil {
			return err
		}
		if err := toolenv.CheckSimulatorOpts(*simulator, *simOpts); err != nil {
			return err
		}
		if *root != "" {
			cfg.Root = *root
		}
		tools, err := toolenv.Resolve(cfg.Root, cfg.Tools)
		if err != nil {
			return err
		}
		ctx := vcontext.Background()
		if err := toolenv.CheckJava(ctx, tools.Java); err != nil {
			return err
		}
		v, err := toolenv.Version(ctx, tools)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, v)
		return nil
	})
	return cmd
}

// withInput opens path, transparently decompressing it, and passes it to fn.
func withInput(path string, fn func(io.Reader) error) (err error) {
	in, err := vcf.Open(vcontext.Background(), path)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := in.Close(); err == nil && err2 != nil {
			err = err2
		}
	}()
	return fn(in)
}

func newRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-vcf",
		Short:    "Tools for combining and cleaning variant call files",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdCombine(),
			newCmdClean(),
			newCmdInfo(),
			newCmdCount(),
			newCmdFilter(),
			newCmdFind(),
			newCmdIndexQuery(),
			newCmdChecksum(),
			newCmdVersion(),
		},
	}
}

func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newRoot())
}
