package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"

	"github.com/reaandrew/salus/config"
	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/reporters"
	"github.com/reaandrew/salus/repositories"
	"github.com/reaandrew/salus/scanners"
	"github.com/reaandrew/salus/tools"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ErrScanFailed is returned when an enforced scanner failed on any scanned
// repository.
var ErrScanFailed = errors.New("one or more enforced scanners failed")

// Cli represents the command-line interface
type Cli struct {
	configPaths  []string
	verbose      bool
	concurrency  int
	reportURI    string
	storeKind    string
	storePath    string
	installTools bool
	binDir       string
	recursive    bool
	gitlabURL    string
	noCache      bool
}

func (cli *Cli) Execute() error {
	return cli.RootCommand().Execute()
}

func (cli *Cli) RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "salus",
		Short:         "Salus runs a suite of security and inventory scanners against repositories.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cli.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(cli.createScanCommand())
	return rootCmd
}

func (cli *Cli) createScanCommand() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan repositories, organizations or directories.",
	}

	flags := scanCmd.PersistentFlags()
	flags.StringSliceVarP(&cli.configPaths, "config", "c", nil, "Configuration files (YAML or TOML), merged in order")
	flags.IntVar(&cli.concurrency, "concurrency", 1, "Scanners run in parallel per repository")
	flags.StringVar(&cli.reportURI, "report-uri", "", "Publish events to this HTTP endpoint")
	flags.StringVar(&cli.storeKind, "store", "", "Event store: sqlite, file or bolt")
	flags.StringVar(&cli.storePath, "store-path", "", "Event store file or directory")
	flags.BoolVar(&cli.installTools, "install-tools", false, "Install Trivy and update its database before scanning")
	flags.StringVar(&cli.binDir, "bin-dir", filepath.Join(os.TempDir(), "salus", "bin"), "Where installed tools are kept")

	scanRepoCmd := &cobra.Command{
		Use:   "repo <REPO_URL>",
		Short: "Scan a single Git repository.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.run(cmd.Context(), func(ctx context.Context, suite scanners.Suite) (bool, error) {
				scanner := scanners.RepoScanner{
					Suite:     suite,
					GitClient: utils.GitClient{},
					Token:     os.Getenv("GITHUB_TOKEN"),
				}
				return scanner.Scan(ctx, args[0])
			})
		},
	}

	scanOrgCmd := &cobra.Command{
		Use:   "github_org <ORG_NAME>",
		Short: "Scan all repositories within a GitHub organization.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.run(cmd.Context(), func(ctx context.Context, suite scanners.Suite) (bool, error) {
				scanner := scanners.GithubOrgScanner{
					Suite:            suite,
					GithubClient:     utils.NewGithubApiClient(os.Getenv("GITHUB_TOKEN")),
					GitClient:        utils.GitClient{},
					ProgressReporter: utils.NewBarProgressReporter(0, "Scanning repositories"),
				}
				return scanner.Scan(ctx, args[0])
			})
		},
	}

	scanGitlabCmd := &cobra.Command{
		Use:   "gitlab",
		Short: "Scan every project visible to GITLAB_TOKEN.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gitlabApi, err := utils.NewGitlabApiClient(os.Getenv("GITLAB_TOKEN"), cli.gitlabURL, cli.noCache)
			if err != nil {
				return err
			}
			return cli.run(cmd.Context(), func(ctx context.Context, suite scanners.Suite) (bool, error) {
				scanner := scanners.GitlabScanner{
					Suite:            suite,
					GitlabApi:        gitlabApi,
					GitClient:        utils.GitClient{},
					ProgressReporter: utils.NewBarProgressReporter(0, "Scanning projects"),
				}
				return scanner.Scan(ctx)
			})
		},
	}
	scanGitlabCmd.Flags().StringVar(&cli.gitlabURL, "gitlab-url", "https://gitlab.com", "GitLab base URL")
	scanGitlabCmd.Flags().BoolVar(&cli.noCache, "no-cache", false, "Always fetch the project list from the API")

	scanDirCmd := &cobra.Command{
		Use:   "dir [DIRECTORY]",
		Short: "Scan a directory (defaults to CWD).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory := "."
			if len(args) == 1 {
				directory = args[0]
			}
			info, err := os.Stat(directory)
			if err != nil {
				return fmt.Errorf("error accessing directory '%s': %w", directory, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("provided path '%s' is not a directory", directory)
			}
			return cli.run(cmd.Context(), func(ctx context.Context, suite scanners.Suite) (bool, error) {
				return scanners.DirectoryScanner{Suite: suite, Recursive: cli.recursive}.Scan(ctx, directory)
			})
		},
	}
	scanDirCmd.Flags().BoolVarP(&cli.recursive, "recursive", "r", false, "Scan each top-level directory as its own repository")

	scanCmd.AddCommand(scanRepoCmd)
	scanCmd.AddCommand(scanOrgCmd)
	scanCmd.AddCommand(scanGitlabCmd)
	scanCmd.AddCommand(scanDirCmd)
	return scanCmd
}

func (cli *Cli) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cli.configPaths...)
	if err != nil {
		return nil, err
	}
	if cli.reportURI != "" {
		cfg.ReportURI = cli.reportURI
	}
	if cli.storeKind != "" {
		cfg.Store.Kind = cli.storeKind
	}
	if cli.storePath != "" {
		cfg.Store.Path = cli.storePath
	}
	return cfg, nil
}

// run wires configuration, tools, event store and reporters around scan.
func (cli *Cli) run(ctx context.Context, scan func(ctx context.Context, suite scanners.Suite) (bool, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	processRunner := tools.NewShellRunner()
	if cli.installTools {
		if err := installTrivy(ctx, cfg, cli.binDir, processRunner); err != nil {
			return err
		}
	}

	events, err := repositories.New(cfg.Store.Kind, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer events.Close()
	if err := events.Clear(); err != nil {
		return fmt.Errorf("failed to clear event store: %w", err)
	}

	suite := scanners.Suite{
		Runner: scanners.NewRunner(scanners.DefaultRegistry(), cfg, processRunner, cli.concurrency),
		Events: events,
	}
	passed, err := scan(ctx, suite)
	if err != nil {
		return err
	}

	for _, reporter := range reporters.CreateReporters(cfg.ReportURI) {
		if err := reporter.Report(events); err != nil {
			return fmt.Errorf("error generating report: %w", err)
		}
	}
	if !passed {
		return ErrScanFailed
	}
	return nil
}

func installTrivy(ctx context.Context, cfg *config.Config, binDir string, runner core.ProcessRunner) error {
	path, err := tools.NewInstaller(binDir, runner, exec.LookPath).EnsureTrivy(ctx)
	if err != nil {
		return fmt.Errorf("failed to install trivy: %w", err)
	}
	trivy := cfg.ScannerConfig("Trivy")
	trivy["binary"] = path
	cfg.ScannerConfigs["Trivy"] = trivy
	return nil
}
