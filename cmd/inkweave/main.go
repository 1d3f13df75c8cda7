package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/voxelbrain/goptions"
	"golang.org/x/term"

	"github.com/tale-forge/inkweave/internal/cache"
	"github.com/tale-forge/inkweave/internal/config"
	"github.com/tale-forge/inkweave/internal/diffstate"
	"github.com/tale-forge/inkweave/internal/telemetry"
	"github.com/tale-forge/inkweave/internal/utils/ansi"
	"github.com/tale-forge/inkweave/pkg/ink"
	"github.com/tale-forge/inkweave/pkg/ink/parser"
)

// Version holds the current version of inkweave.
var Version = "(development)"

var getopts = func(o interface{}) {
	if err := goptions.Parse(o); err != nil {
		usage()
	}
}

var exit = func(code int) { os.Exit(code) }

var usage = func() {
	goptions.PrintHelp()
	exit(1)
}

type runOpts struct {
	Config  string             `goptions:"-c, --config, description='Path to a TOML configuration file'"`
	Profile string             `goptions:"--profile, description='Named configuration profile (default, strict)'"`
	Watch   bool               `goptions:"-w, --watch, description='Hot-reload --config while the story runs and report what changed'"`
	Help    bool               `goptions:"--help, -h"`
	Files   goptions.Remainder `goptions:"description='The .ink entry file to run'"`
}

type diffOpts struct {
	Help  bool               `goptions:"--help, -h"`
	Files goptions.Remainder `goptions:"description='Two saved snapshot files to compare'"`
}

func main() {
	var options struct {
		Version bool   `goptions:"-v, --version, description='Display version information'"`
		Color   string `goptions:"--color, description='Control color output (on/off/auto, default: auto)'"`
		Action  goptions.Verbs
		Run     runOpts  `goptions:"run"`
		Diff    diffOpts `goptions:"diff"`
	}
	getopts(&options)

	if options.Version {
		fmt.Printf("inkweave - Version %s\n", Version)
		exit(0)
		return
	}

	shouldEnableColor := false
	switch options.Color {
	case "on":
		shouldEnableColor = true
	case "off":
		shouldEnableColor = false
	case "auto", "":
		shouldEnableColor = isatty.IsTerminal(os.Stdout.Fd())
	default:
		fmt.Fprintf(os.Stderr, "invalid --color option: %s. Must be 'on', 'off', or 'auto'.\n", options.Color)
		exit(1)
		return
	}
	ansi.Color(shouldEnableColor)

	switch options.Action {
	case "run":
		if options.Run.Help {
			usage()
			return
		}
		if err := cmdRun(options.Run); err != nil {
			fmt.Fprintln(os.Stderr, ansi.Sprintf("@R{%s}", err.Error()))
			exit(2)
			return
		}
	case "diff":
		if options.Diff.Help {
			usage()
			return
		}
		if err := cmdDiff(options.Diff); err != nil {
			fmt.Fprintln(os.Stderr, ansi.Sprintf("@R{%s}", err.Error()))
			exit(2)
			return
		}
	default:
		usage()
	}
}

// cmdRun loads a configuration profile, compiles the given story, and
// drives it interactively from the terminal (spec §4.5's Continue/
// Choose loop: each turn drains every pending paragraph, then shows
// the choice menu).
func cmdRun(opts runOpts) error {
	if len(opts.Files) != 1 {
		return ansi.Errorf("@R{run expects exactly one .ink file}")
	}
	storyPath := opts.Files[0]

	logger := config.DefaultLogger{}

	mgr := config.NewManager()
	if opts.Config != "" {
		if err := mgr.Load(opts.Config); err != nil {
			return err
		}
	} else {
		if opts.Watch {
			return ansi.Errorf("@R{--watch requires --config, since named profiles have no file to poll}")
		}
		profile := opts.Profile
		if profile == "" {
			profile = "default"
		}
		if err := mgr.LoadProfile(profile); err != nil {
			return err
		}
	}
	runtimeOpts := mgr.Get().ToRuntimeOptions()

	if opts.Watch {
		watcher, err := watchConfig(mgr, opts.Config, logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	includeRoot := runtimeOpts.IncludeRoot
	if includeRoot == "" {
		includeRoot = filepath.Dir(storyPath)
	}

	source, err := os.ReadFile(storyPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", storyPath, err)
	}

	storyCache := cache.NewStoryCache(runtimeOpts.CacheMaxEntries, runtimeOpts.CacheTTL)
	story, found := storyCache.Get(string(source))
	if !found {
		story, err = parser.Compile(storyPath, includeRoot, runtimeOpts.MaxIncludeDepth)
		if err != nil {
			return fmt.Errorf("compiling %s: %w", storyPath, err)
		}
		storyCache.Put(string(source), story)
	}

	pub, err := telemetry.New(runtimeOpts, logger)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer pub.Close()

	session := ink.NewSession(story, ink.NewRNG(runtimeOpts.RNGSeed))
	rec := telemetry.Attach(session, pub)

	if err := rec.Begin(); err != nil {
		return err
	}
	return playLoop(rec)
}

// watchConfig starts polling configPath for changes (grounded on the
// teacher's config hot-reload idiom) and prints a colored line for
// each setting DetectChanges finds different from the configuration
// loaded just before this reload, so a host can tweak cache/engine/
// telemetry settings in the TOML file while a long story session runs
// without restarting cmdRun.
func watchConfig(mgr *config.Manager, configPath string, logger config.Logger) (*config.FileWatcher, error) {
	var mu sync.Mutex
	before := mgr.Get()

	mgr.OnChange(func(after *config.Config) {
		mu.Lock()
		prior := before
		before = after
		mu.Unlock()

		events := config.NewChangeDetector(prior, after).DetectChanges()
		for _, ev := range events {
			fmt.Println(ansi.Sprintf("@Y{config %s}: %s (@K{%v} -> @G{%v})", ev.Type, ev.Path, ev.OldValue, ev.NewValue))
		}
	})

	watcher := config.NewFileWatcher(mgr, logger)
	if err := watcher.Watch(configPath); err != nil {
		return nil, fmt.Errorf("watching %s: %w", configPath, err)
	}
	return watcher, nil
}

func playLoop(rec *telemetry.Recorder) error {
	reader := bufio.NewReader(os.Stdin)
	width := terminalWidth()

	for {
		if rec.CanContinue() {
			ps, err := rec.Continue(0)
			if err != nil {
				return err
			}
			for _, p := range ps {
				fmt.Println(wrap(p.Text, width))
			}
		}

		if rec.IsOver() {
			return nil
		}

		if !rec.CanChoose() {
			return nil
		}

		choices := rec.GetChoices()
		for i, c := range choices {
			fmt.Println(ansi.Sprintf("@G{%d)} %s", i+1, c.Title))
		}

		fmt.Print(ansi.Sprintf("@c{> }"))
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || i < 1 || i > len(choices) {
			fmt.Println(ansi.Sprintf("@Y{please enter a number between 1 and %d}", len(choices)))
			continue
		}
		if err := rec.Choose(i); err != nil {
			return err
		}
	}
}

// cmdDiff renders the structural diff between two saved snapshots.
func cmdDiff(opts diffOpts) error {
	if len(opts.Files) != 2 {
		return ansi.Errorf("@R{diff expects exactly two snapshot files}")
	}
	from, err := os.ReadFile(opts.Files[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.Files[0], err)
	}
	to, err := os.ReadFile(opts.Files[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.Files[1], err)
	}

	report, err := diffstate.Diff(from, to)
	if err != nil {
		return err
	}
	if !diffstate.Changed(report) {
		fmt.Println("no differences")
		return nil
	}
	rendered, err := diffstate.Render(report)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// wrap breaks text into lines no wider than width, breaking only on
// whitespace so a paragraph reads naturally in a narrow terminal.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if lineLen > 0 && lineLen+1+len(w) > width {
			b.WriteByte('\n')
			lineLen = 0
		} else if i > 0 {
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}
