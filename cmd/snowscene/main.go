package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gekko3d/snowscene"
)

func main() {
	// GLFW and the GPU surface must stay on the main thread.
	runtime.LockOSThread()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "snowscene",
		Short:        "A snowy holiday scene with a decorated tree",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newConfigCmd())
	return root
}

type runOptions struct {
	config string
	preset string
	debug  bool
	width  int
	height int
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the scene window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.config, "config", "", "scene config file (.toml, .yaml or .json) overlaid on the preset")
	f.StringVar(&opts.preset, "preset", snowscene.DefaultPreset, fmt.Sprintf("base preset %v", snowscene.PresetNames()))
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	f.IntVar(&opts.width, "width", 0, "window width, overrides the config")
	f.IntVar(&opts.height, "height", 0, "window height, overrides the config")
	return cmd
}

func run(opts runOptions) error {
	cfg, err := snowscene.LoadSceneConfig(opts.preset, opts.config)
	if err != nil {
		return err
	}
	if opts.width > 0 {
		cfg.Window.Width = opts.width
	}
	if opts.height > 0 {
		cfg.Window.Height = opts.height
	}

	app := snowscene.NewAppBuilder().
		UseModule(
			snowscene.LoggingModule{Prefix: "snowscene", Debug: opts.debug},
			snowscene.TimeModule{},
			snowscene.NewPlatformWindow(cfg.Window),
			snowscene.AssetServerModule{},
			snowscene.InputModule{},
			snowscene.SceneModule{Config: cfg},
			snowscene.MusicModule{
				Config: cfg.Music,
				Path:   cfg.Resolve(cfg.Music.Path),
				Policy: cfg.ErrorPolicy,
			},
			snowscene.RenderModule{},
		).
		Build()

	if err := app.Run(); err != nil {
		return fmt.Errorf("scene %s: %w", cfg.Name, err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	var preset, format, path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective scene config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := snowscene.LoadSceneConfig(preset, path)
			if err != nil {
				return err
			}
			data, err := snowscene.EncodeSceneConfig(cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&preset, "preset", snowscene.DefaultPreset, "preset to print")
	cmd.Flags().StringVar(&format, "format", "toml", "output format: toml, yaml or json")
	cmd.Flags().StringVar(&path, "config", "", "scene config file overlaid on the preset")
	return cmd
}
