package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"vidchunk/config"
)

func main() {
	// SIGINT/SIGTERM cancel the context, which kills running ffmpeg processes
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newCommand(os.Stdin, os.Stdout, os.Stderr).Run(ctx, os.Args)
	interrupted := ctx.Err() != nil
	stop()

	if err != nil {
		if interrupted || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "vidchunk: interrupted")
			os.Exit(130) // Standard exit code for SIGINT
		}
		fmt.Fprintf(os.Stderr, "vidchunk: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the command tree. Results go to stdout as JSON, logs and
// progress to stderr.
func newCommand(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	// runNode executes a catalog node with inputs and prints its outputs
	runNode := func(ctx context.Context, cmd *cli.Command, id string, needFFmpeg bool, inputs func(cfg *config.Config) map[string]any) error {
		a, err := setup(ctx, cmd, setupOptions{needFFmpeg: needFFmpeg, stdin: stdin, stderr: stderr, progress: true})
		if err != nil {
			return err
		}
		defer a.Close()

		raw, err := json.Marshal(inputs(a.cfg))
		if err != nil {
			return err
		}
		out, err := a.catalog.Run(ctx, id, raw)
		if err != nil {
			return err
		}
		return writeJSON(stdout, out)
	}

	videoArg := func(cmd *cli.Command) (string, error) {
		if cmd.NArg() != 1 {
			return "", fmt.Errorf("expected exactly one video argument (use - for stdin), got %d", cmd.NArg())
		}
		return cmd.Args().First(), nil
	}

	videoCommand := func(name, usage, id string, inputs func(video string, cfg *config.Config) map[string]any) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<video|->",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				video, err := videoArg(cmd)
				if err != nil {
					return err
				}
				return runNode(ctx, cmd, id, true, func(cfg *config.Config) map[string]any {
					return inputs(video, cfg)
				})
			},
		}
	}

	batchCommand := func(name, usage, id string, image bool) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<directory>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Value: "*", Usage: "Glob pattern; ** matches across directories"},
				&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Value: "Batch 001", Usage: "Label the cursor is stored under"},
				&cli.BoolFlag{Name: "reset", Usage: "Forget the stored cursor for the label instead of loading"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				label := cmd.String("label")
				if cmd.Bool("reset") {
					a, err := setup(ctx, cmd, setupOptions{stderr: stderr})
					if err != nil {
						return err
					}
					defer a.Close()

					loader := a.env.VideoBatch
					if image {
						loader = a.env.ImageBatch
					}
					if err := loader.Reset(ctx, label); err != nil {
						return err
					}
					a.logger.Info("batch cursor reset", "label", label)
					return nil
				}

				if cmd.NArg() != 1 {
					return fmt.Errorf("expected a directory argument")
				}
				return runNode(ctx, cmd, id, false, func(*config.Config) map[string]any {
					return map[string]any{"path": cmd.Args().First(), "pattern": cmd.String("pattern"), "label": label}
				})
			},
		}
	}

	return &cli.Command{
		Name:  "vidchunk",
		Usage: "Prepare videos for frame-based workflows: fixed-FPS stretching, frame-exact chunking, batch loading",
		Flags: config.Flags(),
		Commands: []*cli.Command{
			videoCommand("chunk", "Split a video into chunks of exactly N frames at its original frame rate", "VideoChunker",
				func(video string, cfg *config.Config) map[string]any {
					return map[string]any{
						"video":            video,
						"output_dir":       cfg.Chunk.OutputDir,
						"frames_per_chunk": cfg.Chunk.FramesPerChunk,
					}
				}),
			videoCommand("stretch", "Retime a video to the target FPS without dropping frames, then split it", "VideoFPSChunker",
				func(video string, cfg *config.Config) map[string]any {
					return map[string]any{
						"video":            video,
						"output_dir":       cfg.Chunk.StretchOutputDir,
						"frames_per_chunk": cfg.Chunk.FramesPerChunk,
						"target_fps":       cfg.Chunk.TargetFPS,
					}
				}),
			videoCommand("check", "Report whether a video already has a chunk directory", "CheckVideoProcessed",
				func(video string, _ *config.Config) map[string]any { return map[string]any{"video": video} }),
			videoCommand("info", "Print frame rate, size, duration, frame count and codec", "VideoInfo",
				func(video string, _ *config.Config) map[string]any { return map[string]any{"video": video} }),
			batchCommand("batch", "Return the next video in a directory, advancing the label's cursor", "LoadVideoBatch", false),
			batchCommand("image-batch", "Return the next image in a directory, advancing the label's cursor", "LoadImageBatch", true),
			{
				Name:      "concat",
				Usage:     "Concatenate matching videos of a directory into a numbered output file",
				ArgsUsage: "<directory>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "glob", Aliases: []string{"g"}, Value: "*-audio.mp4", Usage: "Glob pattern of the inputs"},
					&cli.StringFlag{Name: "prefix", Value: "concatenated", Usage: "Output prefix under the output root, may contain subdirectories"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return fmt.Errorf("expected a directory argument")
					}
					return runNode(ctx, cmd, "ConcatenateVideosFromDirectory", true, func(*config.Config) map[string]any {
						return map[string]any{
							"directory_path": cmd.Args().First(),
							"glob_pattern":   cmd.String("glob"),
							"output_prefix":  cmd.String("prefix"),
						}
					})
				},
			},
			{
				Name:  "node",
				Usage: "Workflow host bridge",
				Commands: []*cli.Command{
					{
						Name:  "schema",
						Usage: "Print every node schema as JSON",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							a, err := setup(ctx, cmd, setupOptions{stderr: stderr})
							if err != nil {
								return err
							}
							defer a.Close()
							return writeJSON(stdout, a.catalog.Schemas())
						},
					},
					{
						Name:      "run",
						Usage:     "Run a node with JSON inputs from stdin and print JSON outputs",
						ArgsUsage: "<NodeID>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							if cmd.NArg() != 1 {
								return fmt.Errorf("expected a node ID")
							}
							// stdin carries the inputs, so "-" video handles are unavailable
							a, err := setup(ctx, cmd, setupOptions{stderr: stderr})
							if err != nil {
								return err
							}
							defer a.Close()

							raw, err := io.ReadAll(stdin)
							if err != nil {
								return fmt.Errorf("read inputs: %w", err)
							}
							out, err := a.catalog.Run(ctx, cmd.Args().First(), raw)
							if err != nil {
								return err
							}
							return writeJSON(stdout, out)
						},
					},
				},
			},
			{
				Name:  "config",
				Usage: "Inspect or create configuration files",
				Commands: []*cli.Command{
					{
						Name:  "show",
						Usage: "Print the effective configuration as YAML",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							cfg, err := config.Load(cmd)
							if err != nil {
								return err
							}
							data, err := cfg.Marshal()
							if err != nil {
								return err
							}
							_, err = stdout.Write(data)
							return err
						},
					},
					{
						Name:      "init",
						Usage:     "Write the default configuration to a file",
						ArgsUsage: "[path]",
						Flags:     []cli.Flag{&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"}},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							path := "./vidchunk.yaml"
							if cmd.NArg() > 0 {
								path = cmd.Args().First()
							}
							if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
								return fmt.Errorf("%s already exists (use --force to overwrite)", path)
							}
							if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
								return err
							}
							fmt.Fprintf(stderr, "wrote %s\n", path)
							return nil
						},
					},
				},
			},
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
