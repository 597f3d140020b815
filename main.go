package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/bass/assembler"
	"github.gatech.edu/ECEInnovation/bass/config"
	"github.gatech.edu/ECEInnovation/bass/util"
)

var errAssemblyFailed = errors.New("assembly failed")

var options struct {
	output            string
	modify            string
	defines           []string
	constants         []string
	strict            bool
	benchmark         bool
	configFile        string
	architecturePaths []string
	debug             bool
}

var rootCmd = &cobra.Command{
	Use:   "bass [flags] source...",
	Short: "Table driven macro assembler",
	Long: `bass assembles one or more source files into a binary image.

Instructions are encoded through architecture tables (name.arch) that are
searched for in each --arch-path directory, the user configuration
directory (bass/architectures) and the architectures directory next to the
executable. Defaults for every flag may be given in a bass.json project file.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if options.debug {
			util.LoggingEnabled = true
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load(options.configFile)
		if err != nil {
			return err
		}
		return assemble(conf, args)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&options.output, "output", "o", "", "create `target` and write the image to it")
	flags.StringVarP(&options.modify, "modify", "m", "", "modify `target` in place")
	flags.StringArrayVarP(&options.defines, "define", "d", nil, "define `name[=value]` (repeatable)")
	flags.StringArrayVarP(&options.constants, "constant", "c", nil, "constant `name[=value]` (repeatable)")
	flags.BoolVar(&options.strict, "strict", false, "treat warnings as errors")
	flags.BoolVar(&options.benchmark, "benchmark", false, "report the assembly time")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&options.configFile, "config", "", "project `file` (default bass.json)")
	persistent.StringArrayVarP(&options.architecturePaths, "arch-path", "a", nil, "architecture table `directory` (repeatable)")
	persistent.BoolVar(&options.debug, "debug", false, "enable the debug trace")
}

// nameValue splits a name[=value] argument. The value defaults to 1.
func nameValue(s string) (string, string) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		value = "1"
	}
	return name, value
}

// sortedKeys keeps the order of config supplied symbols stable between runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func architecturePaths(conf *config.Config) []string {
	return append(slices.Clone(options.architecturePaths), conf.ArchitecturePaths...)
}

// newSession creates an assembler with the configured architecture paths and
// the defines and constants of both the project file and the command line.
// Command line values are registered last so they take precedence.
func newSession(conf *config.Config) *assembler.Assembler {
	a := assembler.New()
	a.ArchitecturePaths = architecturePaths(conf)

	for _, name := range sortedKeys(conf.Defines) {
		a.Define(name, conf.Defines[name])
	}
	for _, define := range options.defines {
		a.Define(nameValue(define))
	}
	for _, name := range sortedKeys(conf.Constants) {
		a.Constant(name, conf.Constants[name])
	}
	for _, constant := range options.constants {
		a.Constant(nameValue(constant))
	}
	return a
}

func assemble(conf *config.Config, sources []string) error {
	if len(sources) == 0 {
		sources = conf.Sources
	}
	if len(sources) == 0 {
		return errors.New("no source files")
	}

	target, create := conf.Target()
	if options.output != "" {
		target, create = options.output, true
	} else if options.modify != "" {
		target, create = options.modify, false
	}
	strict := options.strict || conf.Strict
	benchmark := options.benchmark || conf.Benchmark

	// missing targets and sources are warnings; the assembly decides the status
	a := newSession(conf)
	defer a.Close()
	if target != "" {
		a.Target(target, create)
	}
	for _, source := range sources {
		a.Source(source)
	}

	start := time.Now()
	if err := a.Assemble(strict); err != nil {
		return errAssemblyFailed
	}
	if benchmark {
		fmt.Fprintf(os.Stderr, "bass: assembled in %s\n", time.Since(start))
	}
	return a.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bass:", err)
		os.Exit(1)
	}
}
