/*
Copyright © 2024 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	icat "github.com/blacktop/go-icat"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	noScale bool
	timeout time.Duration
)

func init() {
	log.SetHandler(clihander.Default)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable verbose logging")
	rootCmd.Flags().BoolVar(&noScale, "no-scale", false, "Send images at native size and let the terminal scale them")
	rootCmd.Flags().DurationVar(&timeout, "timeout", icat.DetectTimeout, "How long to wait for the graphics support probe")
}

// fatal reports an environment failure and aborts the whole run. Exit code
// 2 keeps these distinguishable from per-item failures, which exit 1.
func fatal(format string, args ...any) {
	log.Errorf(format, args...)
	os.Exit(2)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "icat <file-or-directory>...",
	Short: "Display images in your terminal.",
	Long: `Display images in terminals that speak the kitty graphics protocol.

Arguments may be image files or directories; directories are scanned
recursively for recognized image types.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		if !isatty.IsTerminal(os.Stdout.Fd()) || !isatty.IsTerminal(os.Stdin.Fd()) {
			fatal("must be run in a terminal, stdout is currently not a terminal")
		}
		if _, err := icat.Geometry(false); err != nil {
			fatal("%v", err)
		}
		icat.WatchResize(cmd.Context())

		fmt.Printf("Checking for graphics (%s max. wait)...\r", timeout)
		graphics, files, err := icat.DetectSupport(timeout)
		if err != nil {
			fatal("graphics detection: %v", err)
		}
		if !graphics {
			fatal("this terminal emulator does not support the graphics protocol, use a terminal emulator such as kitty that does support it")
		}
		log.Debugf("graphics protocol supported (file transfer: %t)", files)

		items, err := expand(args)
		if err != nil {
			fatal("%v", err)
		}
		for _, item := range items {
			if icat.IsSVG(item) && !icat.HaveRasterizer() {
				fatal("%v", icat.ErrRasterizerMissing)
			}
		}

		p := icat.NewPrinter(os.Stdout)
		p.Scale = !noScale
		for _, item := range items {
			log.Debugf("transmitting %s", item)
			if err := p.Print(item); err != nil {
				var oe *icat.OpenError
				if errors.As(err, &oe) {
					continue // collected, reported after the run
				}
				fatal("%v", err) // write or terminal-state failure
			}
		}

		if errs := p.Errors(); len(errs) > 0 {
			for _, err := range errs {
				log.Error(err.Error())
			}
			os.Exit(1)
		}
	},
}

// expand flattens the argument list into image file paths, scanning
// directories recursively. Nonexistent paths stay in the list so they
// surface as ordinary per-item open failures.
func expand(args []string) ([]string, error) {
	var items []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err == nil && fi.IsDir() {
			found, err := icat.Scan(arg)
			if err != nil {
				return nil, err
			}
			items = append(items, found...)
			continue
		}
		items = append(items, arg)
	}
	return items, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(2)
	}
}
