package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/00dev-org/llmpal/code_analyzer"
	contracts_analyzer "github.com/00dev-org/llmpal/code_analyzer/contracts"
	"github.com/00dev-org/llmpal/config"
	"github.com/00dev-org/llmpal/constants/lipgloss"
	"github.com/00dev-org/llmpal/logging"
	"github.com/00dev-org/llmpal/token_management"
	contracts_token "github.com/00dev-org/llmpal/token_management/contracts"
)

// RootDependencies is everything a run needs, resolved once before any
// request is built.
type RootDependencies struct {
	Cwd             string
	Config          *config.Config
	Profile         config.ModelProfile
	Analyzer        contracts_analyzer.ICodeAnalyzer
	TokenManagement contracts_token.ITokenManagement
	Logger          *zap.Logger
	LookupEnv       func(string) (string, bool)
	Stdout          io.Writer
	Stderr          io.Writer
}

type rootOptions struct {
	files      []string
	output     string
	model      string
	verbose    bool
	trace      bool
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "llmpal [flags] INSTRUCTIONS",
		Short: "Send files and an instruction to an LLM and apply the files it returns.",
		Long: `llmpal sends your instruction together with the given files to a chat-completion
API (OpenRouter by default). The reply is split into an explanation, printed to
stdout, and full file bodies, written to disk. The model may only write files
you passed with -f (or that live directly inside a directory passed with -f)
and the file named by -o.`,
		Example: `  llmpal -f src/main.rs 'Generate unit tests'
  llmpal -f src/main.rs -f src/config.rs -o README.md 'Create a README.md file'
  llmpal -f src/main.rs 'Explain what this code is doing'
  llmpal -o src/countries.json 'Create a JSON file with a list of G20 countries. Fields: name, code.'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rootDependencies, err := handleRootCommand(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = rootDependencies.Logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runPrompt(ctx, rootDependencies, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.files, "file", "f", nil, "Input files to work with. They will be sent to the LLM, and might be modified.")
	flags.StringVarP(&opts.output, "output", "o", "", "Path to output file. The LLM will be allowed to write to it.")
	flags.StringVarP(&opts.model, "model", "m", "", "Use a different model configured in the .llmpal.json file.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Logs LLM prompt and response to stderr.")
	flags.BoolVar(&opts.trace, "trace", false, "Logs the full JSON sent and received during API calls to stderr.")
	flags.Duration("timeout", config.DefaultRequestTimeout, "Deadline for the LLM request; 0 waits indefinitely.")
	flags.String("theme", config.DefaultTheme, "Chroma theme for the explanation, or \"none\" for plain text.")
	flags.StringVarP(&opts.configFile, "config", "c", "", "Config file (default is .llmpal.json in the working directory, then $HOME)")

	return cmd
}

// handleRootCommand resolves configuration and wires the run's collaborators.
func handleRootCommand(cmd *cobra.Command, opts *rootOptions) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting current working directory: %w", err)
	}
	home, _ := os.UserHomeDir()

	cfg, err := config.LoadConfigs(config.LoadOptions{
		ConfigFile: opts.configFile,
		Cwd:        cwd,
		Home:       home,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}

	// The spinner, the logger and status lines share one locked writer.
	stderr := zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr()))
	logger := logging.New(stderr, opts.verbose || opts.trace)
	if cfg.ConfigFileUsed != "" {
		logger.Debug("config loaded", zap.String("file", cfg.ConfigFileUsed))
	}

	profile := cfg.ResolveModelProfile(os.LookupEnv)

	return &RootDependencies{
		Cwd:             cwd,
		Config:          cfg,
		Profile:         profile,
		Analyzer:        code_analyzer.NewCodeAnalyzer(cwd, logger),
		TokenManagement: token_management.NewTokenManager(profile.PromptCost, profile.CompletionCost, profile.MaxOutputTokens()),
		Logger:          logger,
		LookupEnv:       os.LookupEnv,
		Stdout:          cmd.OutOrStdout(),
		Stderr:          stderr,
	}, nil
}

// Execute runs the root command and exits non-zero on any error.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}
