package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gobeaver/beaver-kit/config"
	"github.com/gobeaver/uploadguard"
	"github.com/gobeaver/uploadguard/filevalidator"
	"github.com/gobeaver/uploadguard/httpintake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// cli holds flags shared by every command
type cli struct {
	prefix   string
	driver   string
	basePath string
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "uploadguard",
		Short: "Validate untrusted file uploads before they are stored",
		Long: `uploadguard checks uploads against a rate limit, a filename denylist,
per-type size ceilings, magic-byte detection, declared MIME agreement and an
injection scan, then stores accepted files under generated names.

Configuration is read from BEAVER_UPLOADGUARD_* environment variables.

Examples:
  uploadguard serve                         # HTTP intake on :8080
  uploadguard check photo.jpg --folder news # evaluate a local file
  uploadguard list 'news/*.jpg'             # list stored uploads`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&c.prefix, "env-prefix", "", "Environment variable prefix (default BEAVER_)")
	root.PersistentFlags().StringVar(&c.driver, "driver", "", "Storage driver, overrides UPLOADGUARD_DRIVER")
	root.PersistentFlags().StringVar(&c.basePath, "path", "", "Local storage root, overrides UPLOADGUARD_LOCAL_BASE_PATH")

	root.AddCommand(newServeCommand(c))
	root.AddCommand(newCheckCommand(c))
	root.AddCommand(newListCommand(c))
	return root
}

func (c *cli) loadConfig() (*uploadguard.Config, error) {
	cfg := &uploadguard.Config{}
	var err error
	if c.prefix != "" {
		err = config.Load(cfg, config.LoadOptions{Prefix: c.prefix})
	} else {
		err = config.Load(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if c.driver != "" {
		cfg.Driver = c.driver
	}
	if c.basePath != "" {
		cfg.LocalBasePath = c.basePath
	}
	return cfg, nil
}

func (c *cli) service(reg prometheus.Registerer) (*uploadguard.Service, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return uploadguard.New(cfg, uploadguard.WithRegisterer(reg))
}

func newServeCommand(c *cli) *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /uploads, /healthz and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			svc, err := c.service(reg)
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			h := httpintake.New(svc.Guard,
				httpintake.WithTrustForwarded(svc.Config.TrustForwardedFor),
				httpintake.WithLogger(svc.Logger),
			)
			server := &http.Server{
				Addr:              net.JoinHostPort(svc.Config.Host, strconv.Itoa(svc.Config.Port)),
				Handler:           httpintake.NewRouter(h, httpintake.RouterConfig{Gatherer: reg, Logger: svc.Logger}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				svc.Logger.Info("upload intake listening",
					"addr", server.Addr,
					"driver", svc.Config.Driver,
				)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			svc.Logger.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "Time allowed for in-flight uploads on shutdown")
	return cmd
}

func newCheckCommand(c *cli) *cobra.Command {
	var (
		mimeType string
		folder   string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Evaluate a local file as if it were uploaded",
		Long: `Evaluate a local file as if it were uploaded. The declared MIME type
defaults to the one implied by the file extension. Exits non-zero when the
file is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(prometheus.NewRegistry())
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			declared := mimeType
			if declared == "" {
				declared = mime.TypeByExtension(filepath.Ext(info.Name()))
			}

			attempt := uploadguard.Attempt{
				Body:     f,
				Size:     info.Size(),
				Filename: info.Name(),
				MIMEType: declared,
				Folder:   folder,
				CallerID: "cli",
			}

			var v *uploadguard.Verdict
			if save {
				v, err = svc.Guard.Save(cmd.Context(), attempt)
			} else {
				v = svc.Intake.EvaluateContext(cmd.Context(), attempt)
				err = v.Err()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, v.Summary())
			for _, check := range v.Checks {
				mark := "✓"
				if !check.Passed {
					mark = "✗"
				}
				fmt.Fprintf(out, "  %s %-14s %s\n", mark, check.Name, check.Message)
			}
			if v.Rejection != nil && v.Rejection.Detail() != "" {
				fmt.Fprintf(out, "  detail: %s\n", v.Rejection.Detail())
			}
			if err == nil && save {
				fmt.Fprintf(out, "stored %s\n", v.Path())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "Declared MIME type")
	cmd.Flags().StringVar(&folder, "folder", filevalidator.DefaultFolder, "Requested folder")
	cmd.Flags().BoolVar(&save, "save", false, "Store the file if accepted")
	return cmd
}

func newListCommand(c *cli) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "list PATTERN",
		Short: "List stored uploads matching a glob pattern",
		Long: `List stored uploads matching a glob pattern. "*" stays within a folder,
"**" crosses folders.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(prometheus.NewRegistry())
			if err != nil {
				return err
			}

			files, err := svc.Guard.Match(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var corrupt int
			for _, f := range files {
				line := fmt.Sprintf("%-48s %10s  %s", f.Path, filevalidator.FormatSizeReadable(f.Size), f.ContentType)
				if verify {
					ok, err := svc.Guard.Verify(cmd.Context(), f.Path)
					switch {
					case err != nil:
						line += "  unverified"
					case ok:
						line += "  ok"
					default:
						line += "  CHECKSUM MISMATCH"
						corrupt++
					}
				}
				fmt.Fprintln(out, line)
			}

			if corrupt > 0 {
				return fmt.Errorf("%d file(s) failed checksum verification", corrupt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Recompute and compare stored checksums")
	return cmd
}
