package main

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"syscall"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"

	"papyrus/common"
	"papyrus/config"
	"papyrus/internal/anchors"
	"papyrus/internal/cache"
	"papyrus/internal/cachepath"
	"papyrus/internal/cssresolve"
	"papyrus/internal/hyphen"
	"papyrus/internal/imagecache"
	"papyrus/internal/metrics"
	"papyrus/internal/page"
	"papyrus/internal/parser"
	"papyrus/internal/pipeline"
	"papyrus/internal/reader"
	"papyrus/internal/storage"
	"papyrus/misc"
	"papyrus/state"
	treedump "papyrus/utils/debug"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		if len(configFile) > 0 {
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))
	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Anchors != nil {
		if er := env.Anchors.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close anchor index: %w", er))
		}
	}

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()

	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling - cli.Exit() is non-transparent;
// errors are returned as regular errors from subcommands instead.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "paginating reader for flat HTML/XHTML chapter sets",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "paginate",
				Usage:        "Renders every chapter of SOURCE into the section cache under CACHE-DIR",
				OnUsageError: usageErrorHandler,
				Action:       runPaginate,
				ArgsUsage:    "SOURCE CACHE-DIR",
			},
			{
				Name:         "read",
				Usage:        "Opens an interactive reader over a previously paginated CACHE-DIR",
				OnUsageError: usageErrorHandler,
				Action:       runRead,
				ArgsUsage:    "CACHE-DIR",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
			},
		},
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)
	var (
		err  error
		data []byte
		kind string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		kind = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputting configuration", zap.String("state", kind), zap.String("file", fname))

	_, err = out.Write(data)
	return err
}

// buildSpine lists SOURCE's chapter files (.html/.xhtml/.htm), naturally
// sorted so "chapter2.html" precedes "chapter10.html" the way a reader
// would expect, matching the order the corpus's own directory-driven
// conversions use.
func buildSpine(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("unable to list source directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".html", ".xhtml", ".htm":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no chapter files found under %s", sourceDir)
	}
	sort.Sort(natural.StringSlice(names))
	return names, nil
}

func cachePathsFor(names []string) []string {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = fmt.Sprintf("ch%04d.cache", i)
	}
	return paths
}

func paragraphAlign(a config.ParagraphAlignment) common.BlockStyle {
	switch a {
	case config.ParagraphAlignmentLeft:
		return common.BlockLeft
	case config.ParagraphAlignmentCenter:
		return common.BlockCenter
	case config.ParagraphAlignmentRight:
		return common.BlockRight
	default:
		return common.BlockJustified
	}
}

func paragraphSpacing(s config.SpacingLevel) page.SpacingLevel {
	switch s {
	case config.SpacingLevelFull:
		return page.SpacingFull
	case config.SpacingLevelHalf:
		return page.SpacingHalf
	default:
		return page.SpacingNone
	}
}

// buildCollaborators wires the text-metrics, CSS and image-cache
// collaborators (§6.3) from cfg, registering every configured font face.
func buildCollaborators(cfg *config.Config, sourceStore storage.Storage, cacheDir string, log *zap.Logger) (*metrics.Metrics, *cssresolve.Resolver, *imagecache.Cache, error) {
	m := metrics.New(cfg.Fonts.SizePx)
	for _, face := range cfg.Fonts.Faces {
		if err := registerFace(m, face); err != nil {
			return nil, nil, nil, err
		}
	}

	var sheet []byte
	if cfg.Style.StylesheetPath != "" {
		data, err := os.ReadFile(cfg.Style.StylesheetPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("unable to read stylesheet: %w", err)
		}
		sheet = data
	}
	css := cssresolve.New(sheet, log)

	images := imagecache.New(sourceStore, "", filepath.Join(cacheDir, imagecache.CacheDir), cfg.Viewport.Width, cfg.Viewport.Height, log)

	return m, css, images, nil
}

func registerFace(m *metrics.Metrics, face config.FontFaceConfig) error {
	data, err := os.ReadFile(face.Regular)
	if err != nil {
		return fmt.Errorf("unable to read font %q: %w", face.Regular, err)
	}
	if err := m.Register(face.ID, common.StyleRegular, data, face.Grayscale); err != nil {
		return err
	}
	for path, style := range map[string]common.GlyphStyle{
		face.Bold:       common.StyleBold,
		face.Italic:     common.StyleItalic,
		face.BoldItalic: common.StyleBoldItalic,
	} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to read font %q: %w", path, err)
		}
		if err := m.Register(face.ID, style, data, face.Grayscale); err != nil {
			return err
		}
	}
	return nil
}

func parserConfig(cfg *config.Config, m *metrics.Metrics, css *cssresolve.Resolver, images *imagecache.Cache, hy *hyphen.Hyphenator) parser.Config {
	return parser.Config{
		FontID:          cfg.Fonts.DefaultFont,
		ViewportWidth:   cfg.Viewport.Width,
		ViewportHeight:  cfg.Viewport.Height,
		LineCompression: float32(cfg.Layout.LineCompression),
		ParagraphAlign:  paragraphAlign(cfg.Layout.ParagraphAlign),
		UseGreedy:       cfg.Layout.UseGreedy,
		HyphenEnabled:   cfg.Layout.HyphenEnabled,
		IndentLevel:     cfg.Layout.IndentLevel,
		ParaSpacing:     paragraphSpacing(cfg.Layout.ParagraphSpacing),
		ImagesEnabled:   cfg.Images.Enabled,
		TinyImagePolicy: cfg.Images.TinyPolicy,
		MaxParseTime:    cfg.Limits.MaxParseTime,
		MinFreeHeap:     cfg.Limits.MinFreeHeap,
		Metrics:         m,
		Hyphenator:      hy,
		CSS:             css,
		Images:          images,
	}
}

func renderConfig(cfg *config.Config) cache.RenderConfig {
	return cache.RenderConfig{
		FontID:                int32(cfg.Fonts.DefaultFont),
		LineCompression:       float32(cfg.Layout.LineCompression),
		ExtraParagraphSpacing: cfg.Layout.ParagraphSpacing == config.SpacingLevelFull,
		ParagraphAlignment:    paragraphAlign(cfg.Layout.ParagraphAlign),
		ViewportWidth:         uint16(cfg.Viewport.Width),
		ViewportHeight:        uint16(cfg.Viewport.Height),
	}
}

func runPaginate(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("expected SOURCE and CACHE-DIR arguments")
	}
	sourceDir := cmd.Args().Get(0)
	cacheDir := filepath.Join(env.Cfg.Library.CacheRoot, cachepath.ForDocument(filepath.Base(sourceDir), sourceDir))
	if dest := cmd.Args().Get(1); dest != "" {
		cacheDir = dest
	}

	names, err := buildSpine(sourceDir)
	if err != nil {
		return err
	}
	cachePaths := cachePathsFor(names)

	sourceStore := storage.NewDir(sourceDir)
	cacheStore := storage.NewDir(cacheDir)

	m, css, images, err := buildCollaborators(env.Cfg, sourceStore, cacheDir, env.Log)
	if err != nil {
		return err
	}
	hy := hyphen.New(language.English, env.Log)

	idx, err := anchors.Open(filepath.Join(cacheDir, "anchors.db"))
	if err != nil {
		return fmt.Errorf("unable to open anchor index: %w", err)
	}
	env.Anchors = idx

	rc := renderConfig(env.Cfg)
	hash := manifestHash(rc)
	ext := pipeline.NewSectionExtender(sourceStore, cacheStore, names, cachePaths,
		parserConfig(env.Cfg, m, css, images, hy), rc, hash, idx, env.Log)

	var errs error
	for i, name := range names {
		// Driving Extend with an unreachable minPages forces one parse batch
		// per call regardless of how many pages are already cached; looping
		// while the cache reports itself partial drains the section fully.
		for {
			cc, err := ext.Extend(ctx, i, math.MaxInt32)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("chapter %s: %w", name, err))
				break
			}
			partial, err := cc.Partial()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("chapter %s: %w", name, err))
				break
			}
			if !partial {
				env.Log.Info("paginated chapter", zap.String("source", name), zap.Int("pages", cc.PageCount()))
				if env.Rpt != nil {
					dumpSectionTree(env.Rpt, name, cc)
				}
				break
			}
		}
	}
	if errs != nil {
		return errs
	}

	if err := writeManifest(cacheDir, manifest{SourceDir: sourceDir, Spine: names, RenderHash: hash}); err != nil {
		return fmt.Errorf("unable to write manifest: %w", err)
	}
	env.Log.Info("pagination complete", zap.String("cache_dir", cacheDir), zap.Int("chapters", len(names)))
	return nil
}

func runRead(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("expected CACHE-DIR argument")
	}
	cacheDir := cmd.Args().Get(0)

	man, err := readManifest(cacheDir)
	if err != nil {
		return fmt.Errorf("unable to read manifest (did you run paginate first?): %w", err)
	}

	cacheStore := storage.NewDir(cacheDir)
	sourceStore := storage.NewDir(man.SourceDir)
	cachePaths := cachePathsFor(man.Spine)

	m, css, images, err := buildCollaborators(env.Cfg, sourceStore, cacheDir, env.Log)
	if err != nil {
		return err
	}
	hy := hyphen.New(language.English, env.Log)

	idx, err := anchors.Open(filepath.Join(cacheDir, "anchors.db"))
	if err != nil {
		return fmt.Errorf("unable to open anchor index: %w", err)
	}
	env.Anchors = idx

	rc := renderConfig(env.Cfg)
	ext := pipeline.NewSectionExtender(sourceStore, cacheStore, man.Spine, cachePaths,
		parserConfig(env.Cfg, m, css, images, hy), rc, man.RenderHash, idx, env.Log)

	cur := reader.NewCursor(cacheStore, ".", len(man.Spine), man.Cover != "", env.Cfg.Images.Enabled, ext, env.Log)
	if err := cur.Restore(); err != nil {
		return fmt.Errorf("unable to restore reading position: %w", err)
	}
	cur.StartBackgroundFill(ctx)
	defer cur.StopBackgroundFill()

	return repl(ctx, cur)
}

type manifest struct {
	SourceDir  string   `yaml:"source_dir"`
	Spine      []string `yaml:"spine"`
	Cover      string   `yaml:"cover,omitempty"`
	RenderHash string   `yaml:"render_hash"`
}

const manifestName = "manifest.yaml"

func writeManifest(cacheDir string, m manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cacheDir, manifestName), data, 0o644)
}

func readManifest(cacheDir string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(filepath.Join(cacheDir, manifestName))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

// dumpSectionTree writes a human-readable dump of every cached page's
// elements for one chapter into the debug report, the way the teacher's
// content debug dumper renders its parsed document tree for troubleshooting.
func dumpSectionTree(rpt *config.Report, sourceName string, cc *cache.Cache) {
	tw := treedump.NewTreeWriter()
	tw.Line(0, "section %s (%d pages)", sourceName, cc.PageCount())
	for i := 0; i < cc.PageCount(); i++ {
		p, err := cc.ReadPage(i)
		if err != nil {
			tw.Line(1, "page %d: error: %v", i, err)
			continue
		}
		tw.Line(1, "page %d", i)
		for _, el := range p.Elements {
			switch {
			case el.Line != nil:
				var sb strings.Builder
				for _, w := range el.Line.Line.Words {
					sb.WriteString(w.Text)
					sb.WriteByte(' ')
				}
				tw.TextBlock(2, fmt.Sprintf("line@(%d,%d)", el.Line.X, el.Line.Y), sb.String())
			case el.Image != nil:
				tw.Line(2, "image@(%d,%d): %s", el.Image.X, el.Image.Y, el.Image.Image.Path)
			}
		}
	}
	rpt.StoreData(fmt.Sprintf("pages/%s.tree", sourceName), []byte(tw.String()))
}

// manifestHash keys the anchor index and cache-invalidation logic to the
// render configuration in force, the way cache.Header.matches keys an
// individual section cache (§4.4); a changed viewport or font invalidates
// every section's cache together.
func manifestHash(rc cache.RenderConfig) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%+v", rc)))
	return hex.EncodeToString(sum[:])
}

// renderPage writes a page's text content to w, one line per PageLine and a
// bracketed placeholder for each PageImage, the simplest rendering that
// exercises every element kind without a real display surface.
func renderPage(w *bufio.Writer, p page.Page) {
	for _, el := range p.Elements {
		switch {
		case el.Line != nil:
			var sb strings.Builder
			for i, word := range el.Line.Line.Words {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.Text)
			}
			fmt.Fprintln(w, sb.String())
		case el.Image != nil:
			fmt.Fprintf(w, "[image: %s]\n", el.Image.Image.Path)
		}
	}
}

// repl drives a minimal line-oriented navigation loop: n/p move pages, q
// quits. It is deliberately plain text since papyrus has no display surface
// of its own (§9 Non-goals: rendering backend is out of scope).
func repl(ctx context.Context, cur *reader.Cursor) error {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	show := func() error {
		p, err := cur.CurrentPage(ctx)
		if err != nil {
			return err
		}
		pos := cur.Position()
		fmt.Fprintf(out, "--- spine %d, page %d ---\n", pos.Spine, pos.SectionPage)
		renderPage(out, p)
		out.Flush()
		return nil
	}

	if err := show(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(out, "commands: n(ext), p(rev), q(uit)")
	out.Flush()
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "n", "next":
			if err := cur.NextPage(ctx); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "p", "prev":
			if err := cur.PrevPage(ctx); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "q", "quit":
			return nil
		default:
			fmt.Fprintln(out, "unknown command")
			out.Flush()
			continue
		}
		if err := show(); err != nil {
			return err
		}
	}
	return scanner.Err()
}
