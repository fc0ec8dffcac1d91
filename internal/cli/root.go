// Package cli implements marksctl, the terminal client for smartmarks.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrSnakeDoc/smartmarks/internal/client"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const (
	envPrefix      = "MARKSCTL"
	configName     = ".marksctl"
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 15 * time.Second
)

// IO is where commands read and write.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Execute runs marksctl with the process arguments and returns the exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd(IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+describe(err)))
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree. Each call gets its own viper
// instance so trees never share configuration.
func NewRootCmd(stdio IO) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "marksctl",
		Short: "Manage your smartmarks bookmarks from the terminal",
		Long: `marksctl talks to a smartmarks server with a session token.

Sign in on the web app, open /app/token and export the token as
MARKSCTL_TOKEN, or store it in $HOME/.marksctl.yaml:

  server: https://marks.example.com
  token: eyJ...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadConfig(v, cfgFile)
		},
	}
	root.SetIn(stdio.In)
	root.SetOut(stdio.Out)
	root.SetErr(stdio.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.marksctl.yaml)")
	flags.String("server", defaultServer, "smartmarks server URL")
	flags.String("token", "", "session token")
	flags.Duration("timeout", defaultTimeout, "HTTP request timeout")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	for _, name := range []string{"server", "token", "timeout", "log-level"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", name, err))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newListCmd(v),
		newAddCmd(v),
		newRmCmd(v),
		newOpenCmd(v),
		newImportCmd(v),
		newWatchCmd(v),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file. A missing default file is fine; a
// missing explicit one is not.
func loadConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// env bundles what a command needs to reach the server.
type env struct {
	api    *client.API
	server string
	log    logger.Logger
	out    io.Writer
}

func newEnv(cmd *cobra.Command, v *viper.Viper) (*env, error) {
	token := v.GetString("token")
	if token == "" {
		return nil, errNoToken
	}
	server := v.GetString("server")

	api, err := client.NewAPI(server, token, &http.Client{Timeout: v.GetDuration("timeout")})
	if err != nil {
		return nil, err
	}
	return &env{
		api:    api,
		server: strings.TrimSuffix(server, "/"),
		log:    logger.New(v.GetString("log-level"), true),
		out:    cmd.OutOrStdout(),
	}, nil
}

var errNoToken = errors.New("no session token: sign in on the web app, open /app/token and set MARKSCTL_TOKEN")

// describe turns an error into a one-line message for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return "not signed in: the token is missing or no longer valid (get a new one from /app/token)"
	case domain.IsValidation(err):
		return domain.UserMessage(err)
	default:
		return err.Error()
	}
}
