package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/umputun/swipecache/app/cache"
)

var opts struct {
	DB  string        `short:"d" long:"db" env:"SWIPECACHE_DB" default:"swipecache.db" description:"cache database file"`
	TTL time.Duration `long:"ttl" env:"SWIPECACHE_TTL" default:"1h" description:"job cache time-to-live"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable log to file"`
		Filename        string `long:"file" env:"FILE" default:"swipecache.log" description:"location of log file"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"maximum size in megabytes before rotation"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"maximum number of days to retain"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"maximum number of rotated files to retain"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"enable gzip compression of rotated files"`
	} `group:"log" namespace:"log" env-namespace:"SWIPECACHE_LOG"`

	Dbg bool `long:"dbg" env:"SWIPECACHE_DEBUG" description:"debug mode"`

	Args struct {
		Command string `positional-arg-name:"command" description:"stats | export | import | clear-jobs | clear-pending"`
		File    string `positional-arg-name:"file" description:"snapshot file, import only"`
	} `positional-args:"yes" required:"1"`
}

var revision = "unknown"

func main() {
	fmt.Printf("swipecache %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	if err := run(); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run() error {
	m, err := cache.New(opts.DB, opts.TTL)
	if err != nil {
		return fmt.Errorf("failed to open cache at %s: %w", opts.DB, err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Printf("[WARN] failed to close cache: %v", err)
		}
	}()

	ctx := context.Background()
	switch opts.Args.Command {
	case "stats":
		return showStats(ctx, m, os.Stdout)
	case "export":
		return exportSnapshot(ctx, m, os.Stdout)
	case "import":
		return importSnapshot(ctx, m, opts.Args.File)
	case "clear-jobs":
		return m.Jobs().Clear(ctx)
	case "clear-pending":
		return m.Pending().Clear(ctx)
	}
	return fmt.Errorf("unknown command %q", opts.Args.Command)
}

// snapshot is the YAML shape used by export and import
type snapshot struct {
	Jobs    []snapshotJob    `yaml:"jobs"`
	Pending []snapshotAction `yaml:"pending"`
}

type snapshotJob struct {
	ID       string  `yaml:"id"`
	Title    string  `yaml:"title"`
	Company  string  `yaml:"company"`
	Location *string `yaml:"location,omitempty"`
	Snippet  *string `yaml:"snippet,omitempty"`
	Score    float64 `yaml:"score"`
	ApplyURL *string `yaml:"apply_url,omitempty"`
}

type snapshotAction struct {
	JobID     string `yaml:"job_id"`
	Direction string `yaml:"direction"`
}

func showStats(ctx context.Context, m *cache.Manager, w io.Writer) error {
	jobs, err := m.Jobs().Get(ctx)
	if err != nil {
		return err
	}
	pending, err := m.Pending().Get(ctx)
	if err != nil {
		return err
	}
	if jobs == nil {
		fmt.Fprintf(w, "job cache: empty\n")
	} else {
		fmt.Fprintf(w, "job cache: %d listings\n", len(jobs))
	}
	fmt.Fprintf(w, "pending swipes: %d\n", len(pending))
	return nil
}

func exportSnapshot(ctx context.Context, m *cache.Manager, w io.Writer) error {
	jobs, err := m.Jobs().Get(ctx)
	if err != nil {
		return err
	}
	pending, err := m.Pending().Get(ctx)
	if err != nil {
		return err
	}

	snap := snapshot{}
	for _, j := range jobs {
		snap.Jobs = append(snap.Jobs, snapshotJob{ID: j.ID, Title: j.Title, Company: j.Company,
			Location: j.Location, Snippet: j.Snippet, Score: j.Score, ApplyURL: j.ApplyURL})
	}
	for _, a := range pending {
		snap.Pending = append(snap.Pending, snapshotAction{JobID: a.JobID, Direction: a.Direction.String()})
	}

	enc := yaml.NewEncoder(w)
	defer func() {
		if err := enc.Close(); err != nil {
			log.Printf("[WARN] failed to close yaml encoder: %v", err)
		}
	}()
	return enc.Encode(snap)
}

func importSnapshot(ctx context.Context, m *cache.Manager, file string) error {
	if file == "" {
		return fmt.Errorf("import requires a snapshot file")
	}
	data, err := os.ReadFile(file) // nolint gosec // operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", file, err)
	}

	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot %s: %w", file, err)
	}

	jobs := make([]cache.Listing, 0, len(snap.Jobs))
	for _, j := range snap.Jobs {
		jobs = append(jobs, cache.Listing{ID: j.ID, Title: j.Title, Company: j.Company,
			Location: j.Location, Snippet: j.Snippet, Score: j.Score, ApplyURL: j.ApplyURL})
	}
	actions := make([]cache.Action, 0, len(snap.Pending))
	for _, a := range snap.Pending {
		direction, err := cache.ParseDirection(a.Direction)
		if err != nil {
			return fmt.Errorf("bad action for job %s in %s: %w", a.JobID, file, err)
		}
		actions = append(actions, cache.Action{JobID: a.JobID, Direction: direction})
	}

	if err := m.Jobs().Replace(ctx, jobs); err != nil {
		return err
	}
	if err := m.Pending().Replace(ctx, actions); err != nil {
		return err
	}
	log.Printf("[INFO] imported %d listings and %d pending swipes from %s", len(jobs), len(actions), file)
	return nil
}

func setupLogs() io.Writer {
	logOpts := []log.Option{log.Msec, log.LevelBraces}
	if opts.Dbg {
		logOpts = []log.Option{log.Debug, log.CallerFile, log.CallerFunc, log.Msec, log.LevelBraces}
	}

	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	logOpts = append(logOpts, log.Out(out))
	log.Setup(logOpts...)
	return out
}
