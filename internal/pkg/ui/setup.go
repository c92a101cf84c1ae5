package ui

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Lostmyname/release-tagger/internal/pkg/config"
	"github.com/charmbracelet/huh"
)

// setupAnswers holds the values collected by the setup wizard.
type setupAnswers struct {
	Remote           string
	PrimaryBranch    string
	ProductionSuffix string
	QASuffix         string
	BaseURL          string
	Account          string
	Repo             string
	PackagePrefix    string
	Archs            string
	NonInteractive   bool
}

func answersFromConfig(cfg *config.Config) *setupAnswers {
	return &setupAnswers{
		Remote:           cfg.Git.Remote,
		PrimaryBranch:    cfg.Git.PrimaryBranch,
		ProductionSuffix: cfg.Release.ProductionSuffix,
		QASuffix:         cfg.Release.QASuffix,
		BaseURL:          cfg.Registry.BaseURL,
		Account:          cfg.Registry.Account,
		Repo:             cfg.Registry.Repo,
		PackagePrefix:    cfg.Registry.PackagePrefix,
		Archs:            strings.Join(cfg.Registry.Archs, ","),
		NonInteractive:   cfg.UI.NonInteractive,
	}
}

// apply copies the answers onto cfg.
func (a *setupAnswers) apply(cfg *config.Config) {
	cfg.Git.Remote = strings.TrimSpace(a.Remote)
	cfg.Git.PrimaryBranch = strings.TrimSpace(a.PrimaryBranch)
	cfg.Release.ProductionSuffix = strings.TrimSpace(a.ProductionSuffix)
	cfg.Release.QASuffix = strings.TrimSpace(a.QASuffix)
	cfg.Registry.BaseURL = strings.TrimSpace(a.BaseURL)
	cfg.Registry.Account = strings.TrimSpace(a.Account)
	cfg.Registry.Repo = strings.TrimSpace(a.Repo)
	cfg.Registry.PackagePrefix = strings.TrimSpace(a.PackagePrefix)
	cfg.Registry.Archs = splitList(a.Archs)
	cfg.UI.NonInteractive = a.NonInteractive
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func validateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("registry URL must be an http(s) URL")
	}
	return nil
}

func validateArchs(s string) error {
	if len(splitList(s)) == 0 {
		return fmt.Errorf("at least one architecture is required")
	}
	return nil
}

// RunInteractiveSetup walks the user through the release settings and
// writes them to the config file.
func RunInteractiveSetup(cfgMgr *config.ViperManager, out io.Writer) error {
	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}
	answers := answersFromConfig(cfg)

	fmt.Fprintln(out, "Let's set up release-tagger.")
	fmt.Fprintln(out)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Git remote").
				Value(&answers.Remote).
				Validate(validateRequired("remote")),
			huh.NewInput().
				Title("Primary branch").
				Description("Releases from this branch are tagged production").
				Value(&answers.PrimaryBranch).
				Validate(validateRequired("primary branch")),
			huh.NewInput().
				Title("Production tag suffix").
				Value(&answers.ProductionSuffix),
			huh.NewInput().
				Title("QA tag suffix").
				Value(&answers.QASuffix).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == strings.TrimSpace(answers.ProductionSuffix) {
						return fmt.Errorf("QA suffix must differ from the production suffix")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Registry URL").
				Value(&answers.BaseURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("Registry account").
				Value(&answers.Account).
				Validate(validateRequired("account")),
			huh.NewInput().
				Title("Registry repository").
				Value(&answers.Repo).
				Validate(validateRequired("repository")),
			huh.NewInput().
				Title("Package name prefix").
				Description("Prepended to the repository directory name").
				Value(&answers.PackagePrefix),
			huh.NewInput().
				Title("Architectures").
				Description("Comma separated").
				Value(&answers.Archs).
				Validate(validateArchs),
			huh.NewConfirm().
				Title("Skip confirmation prompts?").
				Value(&answers.NonInteractive),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	answers.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration saved to %s\n", cfgMgr.GetConfigPath())
	return nil
}
