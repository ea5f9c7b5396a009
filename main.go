package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/pflag"

	"github.com/smazurov/screenrec/cmd"
	"github.com/smazurov/screenrec/internal/api"
	"github.com/smazurov/screenrec/internal/binaries"
	"github.com/smazurov/screenrec/internal/config"
	"github.com/smazurov/screenrec/internal/encoders"
	"github.com/smazurov/screenrec/internal/events"
	"github.com/smazurov/screenrec/internal/logging"
	"github.com/smazurov/screenrec/internal/metrics"
	"github.com/smazurov/screenrec/internal/process"
	"github.com/smazurov/screenrec/internal/recorder"
	"github.com/smazurov/screenrec/internal/version"
)

const shutdownTimeout = 15 * time.Second

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:"127.0.0.1:8090" toml:"server.port" env:"SERVER_PORT"`

	// Recorder settings, also hot-reloaded from the [recorder] table
	RecordingsDir string `help:"Directory for generated recording paths" default:"" toml:"recorder.recordings_dir" env:"RECORDINGS_DIR"`
	FfmpegPath    string `help:"Path to the ffmpeg binary" default:"" toml:"recorder.ffmpeg_path" env:"FFMPEG_PATH"`
	FfprobePath   string `help:"Path to the ffprobe binary" default:"" toml:"recorder.ffprobe_path" env:"FFPROBE_PATH"`
	Encoder       string `help:"Pin an encoder instead of probing (h264_nvenc, h264_amf, h264_qsv, h264_videotoolbox, libx264)" default:"" toml:"recorder.encoder" env:"ENCODER"`
	DefaultFPS    int    `help:"Frame rate when a request has none" default:"60" toml:"recorder.default_fps" env:"DEFAULT_FPS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingRecorder string `help:"Recorder logging level" default:"" toml:"logging.recorder" env:"LOGGING_RECORDER"`
	LoggingFfmpeg   string `help:"ffmpeg output logging level" default:"" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingEncoders string `help:"Encoders logging level" default:"" toml:"logging.encoders" env:"LOGGING_ENCODERS"`
	LoggingAPI      string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
}

func (o *Options) recorderSettings() config.RecorderSettings {
	return config.RecorderSettings{
		FFmpegPath:    o.FfmpegPath,
		FFprobePath:   o.FfprobePath,
		RecordingsDir: o.RecordingsDir,
		Encoder:       o.Encoder,
		DefaultFPS:    float64(o.DefaultFPS),
	}
}

func (o *Options) loggingConfig() logging.Config {
	cfg := config.LoadLoggingConfig(o.Config)
	cfg.Level = o.LoggingLevel
	cfg.Format = o.LoggingFormat
	for module, level := range map[string]string{
		"recorder": o.LoggingRecorder,
		"ffmpeg":   o.LoggingFfmpeg,
		"encoders": o.LoggingEncoders,
		"api":      o.LoggingAPI,
	} {
		if level != "" {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

// pinnedSettings returns the recorder settings given as command-line flags.
func pinnedSettings(flags *pflag.FlagSet, o *Options) config.RecorderSettings {
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var s config.RecorderSettings
	if changed("ffmpeg-path") {
		s.FFmpegPath = o.FfmpegPath
	}
	if changed("ffprobe-path") {
		s.FFprobePath = o.FfprobePath
	}
	if changed("recordings-dir") {
		s.RecordingsDir = o.RecordingsDir
	}
	if changed("encoder") {
		s.Encoder = o.Encoder
	}
	if changed("default-fps") {
		s.DefaultFPS = float64(o.DefaultFPS)
	}
	return s
}

func selectorFor(encoder string, rec *recorder.Recorder) encoders.Selector {
	if encoder != "" {
		return encoders.Fixed(encoder)
	}
	return encoders.NewProbeSelector(logging.GetLogger("encoders"), rec.ObserveProbe)
}

func main() {
	if err := process.InitChildCleanup(); err != nil {
		slog.Warn("Failed to initialize child process cleanup", "error", err)
	}
	defer process.DisposeChildCleanup()

	env := &cmd.Env{}

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		settings := opts.recorderSettings()
		env.Recorder = settings

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		bins := binaries.NewSwappable(binaries.Resolver{
			FFmpegPath:  settings.FFmpegPath,
			FFprobePath: settings.FFprobePath,
		})
		rec := recorder.New(recorder.Config{
			Binaries:      bins,
			RecordingsDir: settings.RecordingsDir,
			DefaultFPS:    settings.DefaultFPS,
			Bus:           eventBus,
		})
		if settings.Encoder != "" {
			rec.SetSelector(selectorFor(settings.Encoder, rec))
		}

		// Values given as flags stay pinned across reloads; the file and
		// the environment supply the rest.
		pinned := pinnedSettings(cli.Root().PersistentFlags(), opts)
		watcher := config.NewConfigWatcher(opts.Config, func(path string) (config.RecorderSettings, error) {
			loaded, err := config.LoadRecorderSettings(path)
			if err != nil {
				return config.RecorderSettings{}, err
			}
			return pinned.Merge(loaded.Merge(config.RecorderSettings{DefaultFPS: float64(opts.DefaultFPS)})), nil
		}, logging.GetLogger("config"), config.WithErrorHandler[config.RecorderSettings](func(err error) {
			eventBus.Publish(events.ConfigReloadedEvent{
				Path:      opts.Config,
				Error:     err.Error(),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}))
		watcher.OnReload(func(s config.RecorderSettings) {
			bins.Set(binaries.Resolver{FFmpegPath: s.FFmpegPath, FFprobePath: s.FFprobePath})
			rec.SetSelector(selectorFor(s.Encoder, rec))
			rec.SetRecordingsDir(s.RecordingsDir)
			rec.SetDefaultFPS(s.DefaultFPS)
			env.Recorder = s

			logger.Info("Recorder settings reloaded",
				"ffmpeg", s.FFmpegPath, "ffprobe", s.FFprobePath,
				"recordings_dir", s.RecordingsDir, "encoder", s.Encoder, "default_fps", s.DefaultFPS)
			eventBus.Publish(events.ConfigReloadedEvent{
				Path:      opts.Config,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		})

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Recorder:     rec,
			Binaries:     bins,
			EventBus:     eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = metrics.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		hooks.OnStart(func() {
			if _, statErr := os.Stat(opts.Config); statErr == nil {
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Config hot reload disabled", "error", startErr)
				}
			}

			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Finish an active recording after the API stops accepting requests
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if stopErr := rec.Shutdown(ctx); stopErr != nil {
				logger.Error("Error finishing recording", "error", stopErr)
			}

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Error("Error stopping config watcher", "error", stopErr)
			}
		})
	})

	root := cli.Root()
	root.Use = "screenrec"
	root.Short = "ffmpeg screen and window recorder with a local control API"
	root.Version = version.Get().String()

	root.AddCommand(cmd.CreateRecordCmd(env))
	root.AddCommand(cmd.CreateProbeCmd(env))
	root.AddCommand(cmd.CreateValidateEncodersCmd(env))
	root.AddCommand(cmd.CreateDisplaysCmd())
	root.AddCommand(cmd.CreateDoctorCmd(env))

	// Run the CLI
	cli.Run()
}
