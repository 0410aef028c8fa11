package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"vidchunk/batch"
	"vidchunk/chunker"
	"vidchunk/concatenator"
	"vidchunk/config"
	"vidchunk/ffmpeg"
	"vidchunk/internal/logging"
	"vidchunk/nodes"
	"vidchunk/pipeline"
	"vidchunk/registry"
	"vidchunk/statestore"
)

// app is everything one invocation needs, built from the effective config.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	env     *nodes.Env
	catalog *nodes.Catalog

	opener *statestore.Opener
	stores []statestore.Backend
	bar    *progressbar.ProgressBar
}

type setupOptions struct {
	needFFmpeg bool      // fail early when ffmpeg or ffprobe is missing
	stdin      io.Reader // backs the "-" video handle, nil when stdin carries JSON
	stderr     io.Writer
	progress   bool
}

func setup(ctx context.Context, cmd *cli.Command, opts setupOptions) (*app, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(opts.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger = logger.With("run", uuid.NewString())

	a := &app{cfg: cfg, logger: logger}
	a.opener = cfg.StateOpener()
	a.opener.Logger = logger

	env := &nodes.Env{
		Defaults:         cfg.PipelineSettings(chunker.ModeFrameExact),
		StretchOutputDir: cfg.Chunk.StretchOutputDir,
		Stdin:            opts.stdin,
		Logger:           logger,
	}

	if env.VideoBatch, err = a.loader(ctx, cfg.State.BatchFile, batch.VideoExtensions); err != nil {
		a.Close()
		return nil, err
	}
	if env.ImageBatch, err = a.loader(ctx, cfg.State.ImageBatchFile, batch.ImageExtensions); err != nil {
		a.Close()
		return nil, err
	}

	bins, err := ffmpeg.Locate(cfg.FFmpegPath, cfg.FFprobePath)
	switch {
	case err == nil:
		runner := ffmpeg.NewExecRunner(cfg.FFmpegTimeout, logger)

		store, err := a.open(ctx, cfg.State.ProcessedFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		env.Pipeline = pipeline.New(bins, runner, registry.New(store, logger), logger)
		env.Concatenator = concatenator.NewConcatenator(runner, bins.FFmpeg, true, logger)

		if opts.progress && cfg.Log.Format != "json" && logging.IsTerminal(opts.stderr) {
			env.Pipeline.SetProgressCallback(a.progress(opts.stderr))
		}
		logger.Debug("ffmpeg located", "ffmpeg", bins.FFmpeg, "ffprobe", bins.FFprobe)
	case errors.Is(err, ffmpeg.ErrNotFound) && !opts.needFFmpeg:
		logger.Debug("ffmpeg unavailable", "err", err)
	default:
		a.Close()
		return nil, err
	}

	a.env = env
	a.catalog = nodes.NewCatalog(env)
	return a, nil
}

func (a *app) open(ctx context.Context, name string) (statestore.Backend, error) {
	store, err := a.opener.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", name, err)
	}
	a.stores = append(a.stores, store)
	return store, nil
}

func (a *app) loader(ctx context.Context, name string, exts []string) (*batch.Loader, error) {
	store, err := a.open(ctx, name)
	if err != nil {
		return nil, err
	}
	return batch.NewLoader(store, batch.DirLister{}, exts, a.logger), nil
}

// progress renders chunk completion on w. The bar is created on the first
// update, once the total is known.
func (a *app) progress(w io.Writer) func(done, total int) {
	return func(done, total int) {
		if a.bar == nil {
			a.bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Chunking"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "█",
					SaucerHead:    "█",
					SaucerPadding: "░",
					BarStart:      "▐",
					BarEnd:        "▌",
				}),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = a.bar.Set(done)
		if done >= total {
			_ = a.bar.Finish()
			a.bar = nil
		}
	}
}

// Close releases state stores and database connections.
func (a *app) Close() error {
	var errs []error
	for _, s := range a.stores {
		errs = append(errs, s.Close())
	}
	errs = append(errs, a.opener.Close())
	return errors.Join(errs...)
}
