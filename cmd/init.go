package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/JakeTRogers/geoBuddy/tree"
)

// errNotTerminal is returned when init is run without an interactive terminal.
var errNotTerminal = errors.New("geoBuddy init needs an interactive terminal; set flags or GEOBUDDY_* variables instead")

// initAnswers holds the values collected by the init form.
type initAnswers struct {
	source          string
	dbPath          string
	endpoint        string
	appID           string
	apiKey          string
	policy          string
	pruneOnCollapse bool
}

// answersFromConfig seeds the form with the current configuration.
func answersFromConfig(v *viper.Viper) initAnswers {
	a := initAnswers{
		source:          v.GetString("source"),
		dbPath:          v.GetString("db"),
		endpoint:        v.GetString("endpoint"),
		appID:           v.GetString("app-id"),
		apiKey:          v.GetString("api-key"),
		policy:          v.GetString("policy"),
		pruneOnCollapse: v.GetBool("prune-on-collapse"),
	}
	if a.source == "" {
		a.source = sourceSQLite
	}
	if a.policy == "" {
		a.policy = tree.PolicyAccordion
	}
	return a
}

// validateEndpoint accepts absolute http(s) URLs.
func validateEndpoint(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return errors.New("endpoint must be an http or https URL")
	}
	return nil
}

// newInitForm builds the interactive form writing into a.
func newInitForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should geoBuddy load the hierarchy from?").
				Options(
					huh.NewOption("Local SQLite database (built-in world data)", sourceSQLite),
					huh.NewOption("Parse GraphQL endpoint", sourceGraphQL),
				).
				Value(&a.source),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Database path").
				Description("Leave empty for geoBuddy.db next to the config file").
				Value(&a.dbPath),
		).WithHideFunc(func() bool { return a.source != sourceSQLite }),
		huh.NewGroup(
			huh.NewInput().
				Title("GraphQL endpoint").
				Placeholder("https://parseapi.back4app.com/graphql").
				Validate(validateEndpoint).
				Value(&a.endpoint),
			huh.NewInput().
				Title("Application id").
				Value(&a.appID),
			huh.NewInput().
				Title("REST API key").
				EchoMode(huh.EchoModePassword).
				Value(&a.apiKey),
		).WithHideFunc(func() bool { return a.source != sourceGraphQL }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Expansion policy").
				Options(
					huh.NewOption("Accordion: opening a node closes its siblings", tree.PolicyAccordion),
					huh.NewOption("Collapse root: closing a continent closes everything below it", tree.PolicyCollapseRoot),
				).
				Value(&a.policy),
			huh.NewConfirm().
				Title("Discard loaded children when a node is collapsed?").
				Value(&a.pruneOnCollapse),
		),
	).WithTheme(huh.ThemeDracula())
}

// applyAnswers stores a in v. Settings that do not apply to the chosen
// source are left untouched.
func applyAnswers(v *viper.Viper, a initAnswers) {
	v.Set("source", a.source)
	switch a.source {
	case sourceGraphQL:
		v.Set("endpoint", a.endpoint)
		v.Set("app-id", a.appID)
		v.Set("api-key", a.apiKey)
	default:
		v.Set("db", a.dbPath)
	}
	v.Set("policy", a.policy)
	v.Set("prune-on-collapse", a.pruneOnCollapse)
}

// NewInitCmd creates and returns a new init command.
// Each call returns a fresh instance for test isolation.
func NewInitCmd(v *viper.Viper) *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write the geoBuddy config file",
		Long: `Walk through the data source and explorer settings and save them to the config file.

Example:
  $ geoBuddy init`,
		Args: cobra.NoArgs,
	}

	initCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errNotTerminal
		}

		answers := answersFromConfig(v)
		if err := newInitForm(&answers).Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("init failed: %w", err)
		}

		applyAnswers(v, answers)
		path := v.ConfigFileUsed()
		if path == "" {
			path = filepath.Join(getConfigPath(), configName+"."+configType)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := v.WriteConfigAs(path); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", path)
		return nil
	}

	return initCmd
}
