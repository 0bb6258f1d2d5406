package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/josephlewis42/mumsh/core/shell"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Nil(t, cfg.Validate())
}

func TestConfiguration_Validate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Configuration)
		errTag string
	}{
		"default": {
			mutate: func(*Configuration) {},
		},
		"empty prompt": {
			mutate: func(c *Configuration) { c.Prompt = "" },
			errTag: "prompt",
		},
		"bad color": {
			mutate: func(c *Configuration) { c.Color = "sometimes" },
			errTag: "color",
		},
		"bad log level": {
			mutate: func(c *Configuration) { c.Log.Level = "loud" },
			errTag: "level",
		},
		"alias with space": {
			mutate: func(c *Configuration) { c.Aliases = map[string]string{"g s": "git status"} },
			errTag: "aliases",
		},
		"alias without body": {
			mutate: func(c *Configuration) { c.Aliases = map[string]string{"gs": ""} },
			errTag: "aliases",
		},
		"history limit": {
			mutate: func(c *Configuration) { c.HistoryLimit = -2 },
			errTag: "history_limit",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errTag == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.errTag)
		})
	}
}

func TestContinuationPrompts_For(t *testing.T) {
	prompts := Default().ContinuationPrompts
	assert.Equal(t, "dquote> ", prompts.For(shell.ContinueQuote))
	assert.Equal(t, "heredoc> ", prompts.For(shell.ContinueHeredoc))
	assert.Equal(t, "cmdand> ", prompts.For(shell.ContinueAnd))
	assert.Equal(t, "cmdor> ", prompts.For(shell.ContinueOr))
	assert.Equal(t, "> ", prompts.For(shell.ContinueOther))
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/u", ExpandHome("~", "/home/u"))
	assert.Equal(t, "/home/u/.hist", ExpandHome("~/.hist", "/home/u"))
	assert.Equal(t, "/tmp/~/x", ExpandHome("/tmp/~/x", "/home/u"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x", "/home/u"))
}
