package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "stockpile",
		Short: "Install, update and remove components of a curated collection",
		Long: `Stockpile manages optional components described by an XML manifest.

It tracks what is installed under a destination directory, flags components
with newer builds, and plans downloads, changes, updates and a full uninstall.
Transfers are carried out by an external executor that reads the plan.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.setup()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/stockpile/config.json)")
	pf.StringVarP(&opts.manifest, "manifest", "m", "", "local manifest file (overrides config)")
	pf.StringVarP(&opts.dest, "dest", "d", "", "destination directory (overrides config)")
	pf.BoolVarP(&opts.yes, "yes", "y", false, "accept path warnings without asking")
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "write session metrics in textfile format to this path")
	pf.StringVar(&opts.planOut, "plan-out", "", "write operation plans to this file instead of stdout")
	pf.BoolVar(&opts.debug, "debug", false, "enable all debug categories (needs a -tags debug build)")

	rootCmd.AddCommand(
		listCmd(opts),
		statusCmd(opts),
		downloadCmd(opts),
		applyCmd(opts),
		updateCmd(opts),
		autoCmd(opts),
		uninstallCmd(opts),
		configCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		errorMsg("%s", err)
		os.Exit(1)
	}
}

// color is on when stdout is a terminal
var color = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func paint(code, s string) string {
	if !color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s\n", paint("32", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", paint("33", "⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", paint("31", "Error:"), fmt.Sprintf(format, args...))
}
