package plinstall

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// onceValue is a string flag that may be given at most once.
type onceValue struct {
	name  string
	value string
	set   bool
}

func (o *onceValue) Set(s string) error {
	if o.set {
		return fmt.Errorf("duplicate switch --%s", o.name)
	}
	// pflag hands over the next argument even when it is another switch.
	if strings.HasPrefix(s, "-") {
		return fmt.Errorf("switch --%s needs an argument, got switch %q", o.name, s)
	}
	o.value, o.set = s, true
	return nil
}

func (o *onceValue) String() string { return o.value }
func (o *onceValue) Type() string   { return "path" }

// onceBool is a boolean switch that may be given at most once.
type onceBool struct {
	name string
	set  bool
}

func (o *onceBool) Set(string) error {
	if o.set {
		return fmt.Errorf("duplicate switch --%s", o.name)
	}
	o.set = true
	return nil
}

func (o *onceBool) String() string {
	if o.set {
		return "true"
	}
	return "false"
}
func (o *onceBool) Type() string { return "bool" }

// options is the parsed command line.
type options struct {
	Installer   string
	Destination string
	Usage       bool
	Help        bool
	Version     bool
	Verbosity   int
}

func newFlagSet(opts *options, installer, destination *onceValue, usage, help, ver *onceBool) *pflag.FlagSet {
	fs := pflag.NewFlagSet("plinstall", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	fs.VarP(installer, "installer", "i", "Search only this archive or directory instead of the default locations")
	fs.VarP(destination, "destination", "d", "Install into this directory (default "+DefaultDestination+")")
	fs.VarPF(usage, "usage", "u", "Print a short usage message").NoOptDefVal = "true"
	fs.VarPF(help, "help", "h", "Print this help").NoOptDefVal = "true"
	fs.VarPF(ver, "version", "", "Print version information").NoOptDefVal = "true"
	fs.CountVarP(&opts.Verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	return fs
}

// parseArgs turns the command line into options. Every failure is an
// *Error coded ErrBadSwitch or ErrMissingArgument.
func parseArgs(args []string) (options, error) {
	var opts options
	installer := &onceValue{name: "installer"}
	destination := &onceValue{name: "destination"}
	usage := &onceBool{name: "usage"}
	help := &onceBool{name: "help"}
	ver := &onceBool{name: "version"}

	fs := newFlagSet(&opts, installer, destination, usage, help, ver)
	if err := fs.Parse(args); err != nil {
		if strings.Contains(err.Error(), "needs an argument") {
			return opts, wrapError(err, ErrMissingArgument, "missing switch argument")
		}
		return opts, wrapError(err, ErrBadSwitch, "invalid switch")
	}
	if fs.NArg() > 0 {
		return opts, newErrorf(ErrBadSwitch, "unexpected argument %q", fs.Arg(0))
	}
	if (usage.set || help.set) && fs.NFlag() > 1 {
		return opts, newError(ErrBadSwitch, "-u and -h cannot be combined with other switches")
	}
	for _, v := range []*onceValue{installer, destination} {
		if v.set && strings.TrimSpace(v.value) == "" {
			return opts, newErrorf(ErrMissingArgument, "switch --%s needs a path", v.name)
		}
	}

	opts.Installer = installer.value
	opts.Destination = destination.value
	opts.Usage = usage.set
	opts.Help = help.set
	opts.Version = ver.set
	return opts, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: plinstall [-i|--installer=<path>] [-d|--destination=<path>] [-v] | -u | -h")
}

// printHelp prints the full help with aligned switch descriptions.
func printHelp(w io.Writer) {
	cFprintf(w, colSuccess, "Usage: plinstall [options]\n")
	fmt.Fprintln(w, "Find a Pharo Launcher archive or installation and install it.")
	fmt.Fprintln(w)
	cFprintf(w, colInfo, "Options:\n")

	type optInfo struct {
		Flag string
		Arg  string
		Desc string
	}
	opts := []optInfo{
		{"-i, --installer", "<path>", "Search only this archive or directory"},
		{"-d, --destination", "<path>", "Install into this directory (default " + DefaultDestination + ")"},
		{"-v, --verbose", "", "Increase log verbosity (repeatable)"},
		{"    --version", "", "Print version information"},
		{"-u, --usage", "", "Print a short usage message"},
		{"-h, --help", "", "Print this help"},
	}

	maxLen := 0
	for _, o := range opts {
		if n := len(o.Flag) + len(o.Arg) + 1; n > maxLen {
			maxLen = n
		}
	}
	for _, o := range opts {
		usage := o.Flag
		fmt.Fprint(w, "  ")
		cFprintf(w, color.Bold, "%s", o.Flag)
		if o.Arg != "" {
			usage += " " + o.Arg
			fmt.Fprint(w, " ")
			cFprintf(w, color.Cyan, "%s", o.Arg)
		}
		fmt.Fprint(w, strings.Repeat(" ", maxLen-len(usage)+4))
		fmt.Fprintln(w, o.Desc)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without -i the current directory, the download directory and the home")
	fmt.Fprintln(w, "directory are searched. Settings are read from "+configFilePath())
	fmt.Fprintln(w, "and PLINSTALL_* environment variables. Archives with identical content")
	fmt.Fprintln(w, "are extracted once, whatever their location.")
}

// app bundles the I/O of one invocation so tests can drive run directly.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	temps  *TempRegistry
	isTTY  bool
}

// run executes one invocation and returns the exit status. The deferred
// release is the single teardown every path goes through.
func (a *app) run(ctx context.Context, args []string) (code int) {
	opts, err := parseArgs(args)
	if err != nil {
		cFprintf(a.stderr, colError, "Error: %v\n", err)
		printUsage(a.stderr)
		return ExitCode(err)
	}
	switch {
	case opts.Usage:
		printUsage(a.stdout)
		return ExitOK
	case opts.Help:
		printHelp(a.stdout)
		return ExitOK
	case opts.Version:
		cFprintf(a.stdout, colNote, "plinstall %s (%s) built %s\n", version, arch, buildDate)
		return ExitOK
	}

	cfg, err := LoadConfig()
	if err != nil {
		cFprintf(a.stderr, colError, "Error: %v\n", err)
		return ExitCode(err)
	}
	if !cfg.Color {
		color.Enable = false
	}
	if opts.Verbosity > 0 {
		cfg.Verbosity = opts.Verbosity
	}
	SetupLogger(cfg.Verbosity, a.stderr)

	if a.temps == nil {
		a.temps = NewTempRegistry("")
	}
	if cfg.TmpDir != "" {
		a.temps.SetBase(expandHome(cfg.TmpDir))
	}
	defer func() {
		if err := a.temps.Release(); err != nil {
			cFprintf(a.stderr, colWarn, "Warning: some temporary files could not be removed: %v\n", err)
		}
	}()

	roots := cfg.SearchRoots
	if opts.Installer != "" {
		roots = []string{opts.Installer}
	}
	dest := cfg.Destination
	if opts.Destination != "" {
		dest = opts.Destination
	}

	engine := a.newEngine(ctx, cfg)
	res, err := engine.Run(ctx, roots, dest)
	if err != nil {
		e := log.Error().Err(err).Str("code", string(GetErrorCode(err))).Stringer("outcome", res.Outcome)
		if pe, ok := err.(*Error); ok && len(pe.Details) > 0 {
			e = e.Fields(pe.Details)
		}
		e.Msg("Installation did not complete")

		switch GetErrorCode(err) {
		case ErrCancelled:
			arrowf(a.stdout, colWarn, "%v", err)
		case ErrNotFound:
			arrowf(a.stdout, colWarn, "Nothing found: %v", err)
		case ErrInternal:
			cFprintf(a.stderr, colError, "Internal error (please report it): %v\n", err)
		default:
			cFprintf(a.stderr, colError, "Error: %v\n", err)
		}
	}
	return ExitCode(err)
}

func (a *app) newEngine(ctx context.Context, cfg *Config) *Engine {
	prompter := NewPrompter(a.stdin, a.stdout)
	var chooser Chooser = prompter
	if cfg.UI == "tui" && a.isTTY {
		chooser = NewTUIChooser(prompter)
	}

	userExec := &Executor{Context: ctx, Stdout: a.stdout, Stderr: a.stderr}
	rootExec := &Executor{Context: ctx, ShouldRunAsRoot: true, Interactive: true}

	extractor := &Extractor{
		Mode:     cfg.Extractor,
		Exec:     userExec,
		Tools:    NewToolchain(rootExec, prompter),
		Progress: cfg.Progress && a.isTTY,
		Out:      a.stderr,
	}
	classifier := NewClassifier(extractor, a.temps)
	classifier.Exec = userExec
	installer := NewInstaller(prompter, userExec, a.stdout)
	installer.WriteReceipt = cfg.Receipt

	return &Engine{
		Resolver:  NewResolver(classifier),
		Chooser:   chooser,
		Installer: installer,
		Out:       a.stdout,
	}
}

// Main is the CLI entrypoint for cmd/plinstall. It returns the exit status.
func Main() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		isTTY:  term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd())),
	}
	a.temps = NewTempRegistry("")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	done := make(chan struct{})

	// A blocked prompt cannot observe ctx, so after a grace period (or on a
	// second signal) the handler tears down on its own and exits.
	go func() {
		select {
		case sig := <-sigs:
			cFprintf(os.Stderr, colArrow, "\n-> ")
			cFprintf(os.Stderr, colError, "Received %v. Cancelling\n", sig)
			cancel()
			select {
			case <-done:
				return
			case <-sigs:
			case <-time.After(2 * time.Second):
			}
			_ = a.temps.Release()
			os.Exit(ExitInterrupted)
		case <-done:
		}
	}()

	code := a.run(ctx, os.Args[1:])
	close(done)
	return code
}
