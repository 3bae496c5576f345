package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/config"
	"murmur/doctor"
	"murmur/hotkey"
	"murmur/log"
	"murmur/paste"
	"murmur/shutdown"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logPath    string
	tui        bool
	gui        bool
	profile    string
}

// exitCode ends the process with a status but no error message.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func execute() int {
	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	defer log.Close()

	err := newRootCmd().ExecuteContext(ctx)
	var code exitCode
	switch {
	case err == nil:
		return 0
	case errors.As(err, &code):
		return int(code)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

// wantsGUI reports whether --gui was given. It is checked before cobra
// parses anything because the GUI must own the main thread.
func wantsGUI(args []string) bool {
	for _, a := range args {
		switch a {
		case "--":
			return false
		case "--gui", "-gui", "--gui=true":
			return true
		}
	}
	return false
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "murmur",
		Short:         "Hold Ctrl+Shift+Space, speak, release: the text is pasted where you type",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setupLogging(opts.logPath)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.profile != "" {
				go serveProfile(opts.profile)
			}
			return runDaemon(cmd.Context(), cfg, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default: murmur/config.yaml in the user config dir)")
	pf.StringVar(&opts.logPath, "logpath", "", "log directory (default: OS-specific location, use ./ for current dir)")

	f := root.Flags()
	f.BoolVar(&opts.tui, "tui", true, "run with the terminal UI")
	f.BoolVar(&opts.gui, "gui", false, "show the desktop overlay (needs a build with -tags gui)")
	f.StringVar(&opts.profile, "profile", "", "serve pprof on this address (e.g. localhost:6060)")

	root.AddCommand(
		newDevicesCmd(opts),
		newConfigCmd(opts),
		newDoctorCmd(opts),
		newReplayCmd(opts),
		newVersionCmd(),
	)
	return root
}

func setupLogging(flagPath string) error {
	dir, err := log.ResolveDir(flagPath)
	if err != nil {
		return fmt.Errorf("resolving log directory: %w", err)
	}
	log.SetDir(dir)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
		return nil
	}
	openCrashLog()
	return nil
}

// openCrashLog sends fatal runtime errors to crash_log.txt next to the
// diagnostics log. The file stays open for the life of the process.
func openCrashLog() {
	path := filepath.Join(log.Dir(), "crash_log.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warnf("crash log unavailable: %v", err)
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	if err := debug.SetCrashOutput(f, debug.CrashOptions{}); err != nil {
		log.Warnf("crash log unavailable: %v", err)
	}
}

func serveProfile(addr string) {
	fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
	}
}

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Choose the microphone and save it to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			actx, err := audio.NewContext()
			if err != nil {
				return fmt.Errorf("initializing audio: %w", err)
			}
			defer actx.Close()

			out := cmd.OutOrStdout()
			if list {
				devices, err := actx.Devices()
				if err != nil {
					return fmt.Errorf("enumerating devices: %w", err)
				}
				for _, d := range devices {
					mark := "  "
					if d.Name == cfg.Device || d.ID == cfg.Device {
						mark = "* "
					}
					tag := ""
					if audio.IsBluetooth(d.Name) {
						tag = " [bluetooth]"
					}
					fmt.Fprintf(out, "%s%s%s\n", mark, d.Name, tag)
				}
				return nil
			}

			dev, err := audio.SelectDevice(actx, cfg.Device)
			if errors.Is(err, audio.ErrSelectionCancelled) {
				fmt.Fprintln(out, "Cancelled, device unchanged.")
				return nil
			}
			if err != nil {
				return err
			}
			if err := config.SetDevice(cfg.Path(), dev.Name); err != nil {
				return err
			}
			log.Infof("device set to %q in %s", dev.Name, cfg.Path())
			fmt.Fprintf(out, "Using %s (saved to %s)\n", dev.Name, cfg.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the available devices and exit")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg, err := config.Defaults()
			if err != nil {
				return err
			}
			if err := config.WriteFile(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", cfg.Path())
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the hotkey, microphone, provider and clipboard one by one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			actx, err := audio.NewContext()
			if err != nil {
				return fmt.Errorf("initializing audio: %w", err)
			}
			defer actx.Close()

			code := doctor.Run(cmd.Context(), doctor.Checks{
				Out:         cmd.OutOrStdout(),
				Hotkey:      hotkey.New(),
				Diagnose:    hotkey.Diagnose,
				Audio:       actx,
				Recorder:    recorderConfig(cfg, findDevice(actx, cfg.Device)),
				Transcriber: newTranscriber(cfg),
				Board:       clipboard.System(),
				Paste:       paste.Verify,
				Reset:       doctor.ResetTerminal,
			})
			if code != 0 {
				return exitCode(code)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// no log files for this one
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "murmur %s\n", version)
		},
	}
}
