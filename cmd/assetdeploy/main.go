package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/SavagePirate/assetdeploy/internal/app"
	"github.com/SavagePirate/assetdeploy/internal/config"
	"github.com/SavagePirate/assetdeploy/internal/deploy"
	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/infra/github"
	"github.com/SavagePirate/assetdeploy/internal/infra/gitrepo"
	"github.com/SavagePirate/assetdeploy/internal/infra/repos/profiles"
	"github.com/SavagePirate/assetdeploy/internal/infra/repos/runcache"
	"github.com/SavagePirate/assetdeploy/internal/logging"
	"github.com/SavagePirate/assetdeploy/internal/resolve"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	exitFailure      = 1
	exitUnresolvable = 2
	exitNoToken      = 128
)

var (
	profileID   string
	profilePath string
	cachePath   string
	logLevel    string
)

// remoteExitError carries the remote session's exit code so the tool
// can mirror it.
type remoteExitError struct {
	code int
}

func (e *remoteExitError) Error() string {
	return fmt.Sprintf("remote session exited with code %d", e.code)
}

func main() {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:           "assetdeploy",
		Short:         "Deploy the newest CI artifact matching the current checkout's inputs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&profileID, "profile", "", "Profile ID (default: built-in lila profile)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile-path", "", "Profile file path")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", cfg.CachePath, "Run cache location (sqlite path or postgres DSN)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level")

	rootCmd.AddCommand(deployCmd(cfg))
	rootCmd.AddCommand(resolveCmd(cfg))
	rootCmd.AddCommand(syncCmd(cfg))
	rootCmd.AddCommand(runsCmd(cfg))
	rootCmd.AddCommand(historyCmd(cfg))
	rootCmd.AddCommand(profileCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var remote *remoteExitError
	switch {
	case errors.Is(err, config.ErrMissingToken):
		return exitNoToken
	case errors.Is(err, resolve.ErrMissingTrackedPath):
		return exitUnresolvable
	case errors.As(err, &remote):
		return remote.code
	default:
		return exitFailure
	}
}

func loadProfile(cfg *config.Config) (*domain.Profile, error) {
	repo := profiles.NewFileRepository(cfg.ProfilesDir)
	if profilePath != "" {
		return repo.GetByPath(profilePath)
	}
	if profileID != "" {
		return repo.Get(profileID)
	}
	return config.DefaultProfile(), nil
}

func openStore(checkout *gitrepo.Repo) (runcache.Repository, error) {
	location := cachePath
	if location == "" {
		location = filepath.Join(checkout.CacheDir(), "workflow_runs.sqlite")
	}

	var store runcache.Repository
	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		store = runcache.NewPostgresRepository(location)
	} else {
		store = runcache.NewSQLiteRepository(location)
	}

	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("opening run cache: %w", err)
	}
	return store, nil
}

func buildService(cfg *config.Config, logger *logging.Logger) (*app.DeployService, *github.Client, *domain.Profile, runcache.Repository, error) {
	token, err := cfg.RequireToken()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	profile, err := loadProfile(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	checkout, err := gitrepo.Open(".")
	if err != nil {
		return nil, nil, nil, nil, err
	}

	store, err := openStore(checkout)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	client := github.NewClient(token)
	service := app.NewDeployService(checkout, client, store, profile, logger)
	return service, client, profile, store, nil
}

func deployCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Resolve the matching artifact and deploy it to the remote host",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel)

			service, client, profile, store, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := service.Resolve()
			if err != nil {
				return err
			}

			executor := deploy.NewExecutor(profile, client.AuthorizationHeader(), logger)
			code, err := service.Deploy(res, executor)
			if err != nil {
				return err
			}
			if code != 0 {
				return &remoteExitError{code: code}
			}
			return nil
		},
	}
}

func resolveCmd(cfg *config.Config) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the deployable run and artifact without deploying",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel)

			service, _, _, store, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := service.Resolve()
			if err != nil {
				return err
			}

			if format == "json" {
				data, _ := json.MarshalIndent(res, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Run:      %d (%s)\n", res.Run.ID, res.Run.HTMLURL)
			fmt.Printf("Commit:   %s\n", res.Run.HeadCommit)
			fmt.Printf("Artifact: %s\n", res.Artifact.ArchiveDownloadURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text|json)")
	return cmd
}

func syncCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the run cache from the CI provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel)

			token, err := cfg.RequireToken()
			if err != nil {
				return err
			}

			profile, err := loadProfile(cfg)
			if err != nil {
				return err
			}

			checkout, err := gitrepo.Open(".")
			if err != nil {
				return err
			}

			store, err := openStore(checkout)
			if err != nil {
				return err
			}
			defer store.Close()

			return runcache.Sync(github.NewClient(token), store, profile.RunsURL, logger)
		},
	}
}

func runsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the cached workflow runs",
	}

	var limit int
	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached runs in selection order",
		RunE: func(cmd *cobra.Command, args []string) error {
			checkout, err := gitrepo.Open(".")
			if err != nil {
				return err
			}

			store, err := openStore(checkout)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Load()
			if err != nil {
				return err
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}

			if format == "json" {
				data, _ := json.MarshalIndent(runs, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOMMIT\tSTATUS\tCONCLUSION\tURL")
			for _, r := range runs {
				commit := r.HeadCommit
				if len(commit) > 8 {
					commit = commit[:8]
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, commit, r.Status, r.Conclusion, r.HTMLURL)
			}
			w.Flush()
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 0, "Limit results")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show one cached run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id: %s", args[0])
			}

			checkout, err := gitrepo.Open(".")
			if err != nil {
				return err
			}

			store, err := openStore(checkout)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(id)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run not cached: %d", id)
			}

			data, _ := yaml.Marshal(run)
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func historyCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past deployments",
	}

	var limit int
	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List deploy attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			checkout, err := gitrepo.Open(".")
			if err != nil {
				return err
			}

			store, err := openStore(checkout)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListDeploys(limit)
			if err != nil {
				return err
			}

			if format == "json" {
				data, _ := json.MarshalIndent(records, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRUN\tHOST\tSTARTED\tEXIT")
			for _, rec := range records {
				exit := "-"
				if rec.ExitCode != nil {
					exit = strconv.Itoa(*rec.ExitCode)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					rec.ID[:8], rec.RunID, rec.Host, rec.StartedAt.Format("2006-01-02 15:04"), exit)
			}
			w.Flush()
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Limit results")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	cmd.AddCommand(listCmd)
	return cmd
}

func profileCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage deploy profiles",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := profiles.NewFileRepository(cfg.ProfilesDir)
			list, err := repo.List()
			if err != nil {
				return err
			}
			list = append([]*domain.Profile{config.DefaultProfile()}, list...)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tARTIFACT\tHOST")
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.ArtifactName, p.Host)
			}
			w.Flush()
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show profile details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var profile *domain.Profile
			if args[0] == config.DefaultProfile().ID {
				profile = config.DefaultProfile()
			} else {
				repo := profiles.NewFileRepository(cfg.ProfilesDir)
				p, err := repo.Get(args[0])
				if err != nil {
					return err
				}
				profile = p
			}

			data, _ := yaml.Marshal(profile)
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
