package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"github.com/specialistvlad/superbuild/internal/app"
	"github.com/specialistvlad/superbuild/internal/hcl"
	"github.com/specialistvlad/superbuild/internal/publish"
)

// Version is stamped at link time.
var Version = "dev"

// EnvFileVar names the variable that points at an alternative .env file.
const EnvFileVar = "SUPERBUILD_ENV_FILE"

// runner carries what every command action needs.
type runner struct {
	ctx  context.Context
	outW io.Writer
	errW io.Writer
}

// Run parses args (without the program name) and executes the selected
// command. Any returned error is an *ExitError.
func Run(ctx context.Context, args []string, outW, errW io.Writer) error {
	if err := loadEnvFile(); err != nil {
		return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
	}
	r := &runner{ctx: ctx, outW: outW, errW: errW}
	return wrap(r.newCLI().Run(append([]string{"superbuild"}, args...)))
}

// loadEnvFile reads .env (or $SUPERBUILD_ENV_FILE) without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	path := os.Getenv(EnvFileVar)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func usageError(_ *cli.Context, err error, _ bool) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

func (r *runner) newCLI() *cli.App {
	a := cli.NewApp()
	a.Name = "superbuild"
	a.Usage = "build interdependent native subprojects and package their install trees into artifacts"
	a.Version = Version
	a.Writer = r.outW
	a.ErrWriter = r.errW
	a.OnUsageError = usageError
	a.ExitErrHandler = func(*cli.Context, error) {}
	a.Flags = []cli.Flag{
		cli.StringSliceFlag{
			Name:   "config, c",
			Usage:  "declaration file or directory (repeatable, default: current directory)",
			EnvVar: "SUPERBUILD_CONFIG",
		},
		cli.StringFlag{
			Name:   "log-level",
			Value:  "info",
			Usage:  "logging level: 'debug', 'info', 'warn' or 'error'",
			EnvVar: "SUPERBUILD_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "log-format",
			Value:  "text",
			Usage:  "log output format: 'text' or 'json'",
			EnvVar: "SUPERBUILD_LOG_FORMAT",
		},
		cli.BoolFlag{
			Name:   "no-color",
			Usage:  "disable colored status lines",
			EnvVar: "SUPERBUILD_NO_COLOR",
		},
	}
	a.Action = func(c *cli.Context) error {
		if c.NArg() > 0 {
			return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unknown command %q", c.Args().First())}
		}
		return cli.ShowAppHelp(c)
	}
	a.Commands = []cli.Command{
		r.buildCommand(),
		r.packageCommand(),
		r.reportCommand(),
		r.execCommand(),
		r.importNinjaCommand(),
		r.graphCommand(),
		r.publishCommand(),
	}
	for i := range a.Commands {
		a.Commands[i].OnUsageError = usageError
	}
	return a
}

var jobsFlag = cli.IntFlag{
	Name:   "jobs, j",
	Usage:  "number of concurrent jobs (0: number of CPUs)",
	EnvVar: "SUPERBUILD_JOBS",
}

var targetFlag = cli.StringFlag{
	Name:   "target, t",
	Usage:  "build target (default: first declared target)",
	EnvVar: "SUPERBUILD_TARGET",
}

// newApp builds the application from the global flags and the command's
// jobs flag.
func (r *runner) newApp(c *cli.Context) (*app.App, error) {
	cfg, err := app.NewConfig(app.Config{
		Paths:     c.GlobalStringSlice("config"),
		LogFormat: strings.ToLower(c.GlobalString("log-format")),
		LogLevel:  strings.ToLower(c.GlobalString("log-level")),
		Jobs:      c.Int("jobs"),
		NoColor:   c.GlobalBool("no-color"),
	})
	if err != nil {
		return nil, err
	}
	return app.NewApp(r.outW, r.errW, cfg), nil
}

// loadedApp is newApp plus loading the declarations.
func (r *runner) loadedApp(c *cli.Context) (*app.App, error) {
	a, err := r.newApp(c)
	if err != nil {
		return nil, err
	}
	if err := a.Load(r.ctx, hcl.NewLoader()); err != nil {
		return nil, err
	}
	return a, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *runner) buildCommand() cli.Command {
	return cli.Command{
		Name:  "build",
		Usage: "build every subproject (or a subset) in dependency order",
		Flags: []cli.Flag{
			jobsFlag,
			targetFlag,
			cli.StringFlag{Name: "only", Usage: "comma separated subprojects to build, with their dependencies"},
			cli.StringFlag{Name: "trace", Usage: "execution trace file (default: <build root>/<target>/logs/trace.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			a, err := r.loadedApp(c)
			if err != nil {
				return err
			}
			_, err = a.Build(r.ctx, app.BuildOptions{
				Target:    c.String("target"),
				Only:      splitList(c.String("only")),
				TracePath: c.String("trace"),
			})
			return err
		},
	}
}

func (r *runner) packageCommand() cli.Command {
	return cli.Command{
		Name:      "package",
		Usage:     "stage and archive the components of an artifact",
		ArgsUsage: "<artifact>",
		Flags: []cli.Flag{
			jobsFlag,
			cli.StringSliceFlag{
				Name:   "target, t",
				Usage:  "target to package (repeatable, default: first declared target)",
				EnvVar: "SUPERBUILD_TARGET",
			},
			cli.StringFlag{Name: "components", Usage: "comma separated components (default: all)"},
			cli.StringFlag{Name: "archive", Value: "xz", Usage: "archive compression: xz, zst, gz or none"},
			cli.StringFlag{Name: "hash", Value: "sha256", Usage: "archive digest: sha256 or blake3"},
			cli.StringFlag{Name: "out, o", Usage: "output directory (default: <build root>/artifacts)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return &ExitError{Code: ExitUsage, Message: "package: exactly one artifact name is required"}
			}
			a, err := r.loadedApp(c)
			if err != nil {
				return err
			}
			_, err = a.Package(r.ctx, app.PackageOptions{
				Artifact:   c.Args().First(),
				Targets:    c.StringSlice("target"),
				Components: splitList(c.String("components")),
				OutDir:     c.String("out"),
				Archive:    c.String("archive"),
				Hash:       c.String("hash"),
			})
			return err
		},
	}
}

func (r *runner) reportCommand() cli.Command {
	return cli.Command{
		Name:  "report",
		Usage: "summarize build concurrency from a trace and gate it against a baseline",
		Flags: []cli.Flag{
			targetFlag,
			cli.StringFlag{Name: "trace", Usage: "trace file (default: the target's build trace)"},
			cli.StringFlag{Name: "baseline", Usage: "baseline file (.yaml or .json) enabling the regression gate"},
			cli.Float64Flag{Name: "threshold", Usage: "allowed fractional drop (default: the baseline's threshold_drop, else 0.2)"},
			cli.Float64Flag{Name: "bin-width", Value: 10, Usage: "concurrency bin width in seconds"},
			cli.StringFlag{Name: "format", Value: "table", Usage: "output format: table, csv, md or json"},
			cli.StringFlag{Name: "write-baseline", Usage: "store the current figures as a baseline file"},
		},
		Action: func(c *cli.Context) error {
			var (
				a   *app.App
				err error
			)
			if c.String("trace") == "" {
				a, err = r.loadedApp(c)
			} else {
				a, err = r.newApp(c)
			}
			if err != nil {
				return err
			}
			var threshold *float64
			if c.IsSet("threshold") {
				v := c.Float64("threshold")
				threshold = &v
			}
			_, err = a.Report(r.ctx, app.ReportOptions{
				TracePath:     c.String("trace"),
				Target:        c.String("target"),
				BinWidth:      time.Duration(c.Float64("bin-width") * float64(time.Second)),
				Format:        c.String("format"),
				BaselinePath:  c.String("baseline"),
				Threshold:     threshold,
				WriteBaseline: c.String("write-baseline"),
			})
			return err
		},
	}
}

func (r *runner) execCommand() cli.Command {
	return cli.Command{
		Name:      "exec",
		Usage:     "run a compiler command and record its resource usage",
		ArgsUsage: "-- <command> [args...]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "component", Usage: "component label (default: guessed from the command line)"},
			cli.StringFlag{Name: "trace", Usage: "trace file to append to", EnvVar: "SUPERBUILD_TRACE"},
		},
		Action: func(c *cli.Context) error {
			a, err := r.newApp(c)
			if err != nil {
				return err
			}
			code, err := a.Exec(r.ctx, app.ExecOptions{
				Args:      c.Args(),
				Component: c.String("component"),
				TracePath: c.String("trace"),
			})
			if err != nil && errors.Is(err, app.ErrUsage) {
				return err
			}
			if code < 0 {
				code = ExitGeneric
			}
			if code == 0 {
				return err
			}
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			return &ExitError{Code: code, Message: msg, Err: err}
		},
	}
}

func (r *runner) importNinjaCommand() cli.Command {
	return cli.Command{
		Name:      "import-ninja",
		Usage:     "convert .ninja_log entries into trace samples",
		ArgsUsage: "<.ninja_log>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "trace", Usage: "trace file to append to", EnvVar: "SUPERBUILD_TRACE"},
			cli.StringFlag{Name: "component", Usage: "label for entries without a CMake target"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return &ExitError{Code: ExitUsage, Message: "import-ninja: exactly one log file is required"}
			}
			a, err := r.newApp(c)
			if err != nil {
				return err
			}
			_, err = a.ImportNinja(r.ctx, app.ImportOptions{
				LogPath:   c.Args().First(),
				TracePath: c.String("trace"),
				Component: c.String("component"),
			})
			return err
		},
	}
}

func (r *runner) graphCommand() cli.Command {
	return cli.Command{
		Name:  "graph",
		Usage: "print the topological order, build levels and the critical chain",
		Action: func(c *cli.Context) error {
			a, err := r.loadedApp(c)
			if err != nil {
				return err
			}
			return a.Graph()
		},
	}
}

func (r *runner) publishCommand() cli.Command {
	return cli.Command{
		Name:      "publish",
		Usage:     "upload archives and digests to S3-compatible storage",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			jobsFlag,
			cli.StringFlag{Name: "bucket", EnvVar: "SUPERBUILD_S3_BUCKET", Usage: "destination bucket"},
			cli.StringFlag{Name: "prefix", EnvVar: "SUPERBUILD_S3_PREFIX", Usage: "key prefix"},
			cli.StringFlag{Name: "region", EnvVar: "AWS_REGION", Usage: "bucket region"},
			cli.StringFlag{Name: "endpoint", EnvVar: "SUPERBUILD_S3_ENDPOINT", Usage: "endpoint of an S3-compatible store"},
			cli.StringFlag{Name: "access-key-id", EnvVar: "SUPERBUILD_S3_ACCESS_KEY_ID"},
			cli.StringFlag{Name: "secret-access-key", EnvVar: "SUPERBUILD_S3_SECRET_ACCESS_KEY"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return &ExitError{Code: ExitUsage, Message: "publish: exactly one directory is required"}
			}
			a, err := r.newApp(c)
			if err != nil {
				return err
			}
			_, err = a.Publish(r.ctx, app.PublishOptions{
				Dir: c.Args().First(),
				Settings: publish.Settings{
					Bucket:          c.String("bucket"),
					Prefix:          c.String("prefix"),
					Region:          c.String("region"),
					Endpoint:        c.String("endpoint"),
					AccessKeyID:     c.String("access-key-id"),
					SecretAccessKey: c.String("secret-access-key"),
				},
			})
			return err
		},
	}
}
