package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"nmrupload/internal/acdata"
	"nmrupload/internal/config"
	"nmrupload/internal/logging"
	"nmrupload/internal/prompt"
)

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	prompt *prompt.Prompter
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := strings.TrimSpace(c.flags.logFormat); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config, c.configPath, c.configExists = cfg, path, exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// newClient builds an API client, preferring urlOverride to server.base_url.
func (c *commandContext) newClient(urlOverride string) (*acdata.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(urlOverride)
	if base == "" {
		base = cfg.Server.BaseURL
	}
	return acdata.New(base,
		acdata.WithTimeout(cfg.Timeout()),
		acdata.WithUserAgent(cfg.Server.UserAgent),
		acdata.WithLogger(logging.NewComponentLogger(logger, "acdata")),
	)
}

// prompter asks on stderr so stdout carries only command output. One
// Prompter is shared per invocation because it buffers stdin.
func (c *commandContext) prompter(cmd *cobra.Command) *prompt.Prompter {
	if c.prompt == nil {
		c.prompt = prompt.New(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	return c.prompt
}

// authFlags are shared by every command that talks to the server.
type authFlags struct {
	url      string
	session  string
	username string
}

func (f *authFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "URL of the ACData instance")
	cmd.Flags().StringVar(&f.session, "session", "", "Existing session token (skips sign-in)")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "zID to sign in with")
}

// session returns a usable session: the flag, then auth.session, then an
// interactive sign-in.
func (c *commandContext) session(ctx context.Context, cmd *cobra.Command, client *acdata.Client, flags authFlags) (acdata.Session, error) {
	if s := acdata.Session(strings.TrimSpace(flags.session)); s.Valid() {
		return s, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if s := acdata.Session(cfg.Auth.Session); s.Valid() {
		return s, nil
	}
	return c.login(ctx, cmd, client, flags.username)
}

func (c *commandContext) login(ctx context.Context, cmd *cobra.Command, client *acdata.Client, username string) (acdata.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	p := c.prompter(cmd)
	user := strings.TrimSpace(username)
	if user == "" {
		user = cfg.Auth.Username
	}
	if user == "" {
		p.Println()
		if user, err = p.Ask("zID"); err != nil {
			return "", missingInput("username", "-u", err)
		}
	}
	password, err := p.AskSecret("zPass")
	if err != nil {
		return "", missingInput("password", "", err)
	}

	session, err := client.Login(ctx, user, password)
	if err != nil {
		return "", err
	}
	if !session.Valid() {
		return "", acdata.ErrNoSession
	}
	return session, nil
}

func missingInput(what, flag string, err error) error {
	if errors.Is(err, prompt.ErrNoInput) {
		if flag == "" {
			return fmt.Errorf("%s not given and no input available", what)
		}
		return fmt.Errorf("%s not given and no input available (use %s)", what, flag)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
