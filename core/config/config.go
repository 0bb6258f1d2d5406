package config

import (
	_ "embed"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/mumsh/core/shell"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

type Configuration struct {
	Prompt              string              `json:"prompt" validate:"required"`
	ContinuationPrompts ContinuationPrompts `json:"continuation_prompts"`

	HistoryFile  string `json:"history_file"`
	HistoryLimit int    `json:"history_limit" validate:"gte=-1"`

	JobControl bool   `json:"job_control"`
	Color      string `json:"color" validate:"oneof=auto always never"`

	Aliases map[string]string `json:"aliases" validate:"dive,keys,alias,endkeys,required"`
	EnvFile string            `json:"env_file"`

	Log Log `json:"log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	if err := validate.RegisterValidation("alias", validAlias); err != nil {
		return err
	}

	return validate.Struct(c)
}

// validAlias rejects alias names that couldn't be typed as a single word.
func validAlias(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name != "" && !strings.ContainsAny(name, " \t\n'\"`$|&;<>()=/\\")
}

type ContinuationPrompts struct {
	Quote   string `json:"quote"`
	Brace   string `json:"brace"`
	Subst   string `json:"subst"`
	Heredoc string `json:"heredoc"`
	And     string `json:"and"`
	Or      string `json:"or"`
	Other   string `json:"other"`
}

// For returns the prompt for a continuation kind.
func (p ContinuationPrompts) For(c shell.Continuation) string {
	switch c {
	case shell.ContinueQuote:
		return p.Quote
	case shell.ContinueBrace:
		return p.Brace
	case shell.ContinueSubst:
		return p.Subst
	case shell.ContinueHeredoc:
		return p.Heredoc
	case shell.ContinueAnd:
		return p.And
	case shell.ContinueOr:
		return p.Or
	default:
		return p.Other
	}
}

type Log struct {
	Path  string `json:"path"`
	Level string `json:"level" validate:"oneof=debug info warn error"`
}

// ExpandHome replaces a leading ~ in path with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
