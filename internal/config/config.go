// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the YAML configuration for providers and pipeline
// knobs. Providers left unconfigured degrade per the pipeline's fallback
// rules instead of failing at startup.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cloudwego/postpipe/llm"
)

type Config struct {
	LLM       llm.ModelConfig `yaml:"llm"`
	Discovery Discovery       `yaml:"discovery"`
	Image     Image           `yaml:"image"`
	Social    Social          `yaml:"social"`
	Store     StoreConfig     `yaml:"store"`
	Pipeline  Pipeline        `yaml:"pipeline"`
}

type Discovery struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	CostPerCall float64 `yaml:"cost_per_call"`
}

type Image struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Size        string  `yaml:"size"`
	CostPerCall float64 `yaml:"cost_per_call"`
}

type Social struct {
	Instagram Instagram `yaml:"instagram"`
}

type Instagram struct {
	Endpoint    string `yaml:"endpoint"`
	AccessToken string `yaml:"access_token"`
	AccountID   string `yaml:"account_id"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// Pipeline holds the engine knobs the product may want to tune. The retry
// bound and the parse-failure bias are deliberate knobs, not constants.
type Pipeline struct {
	MaxFetchAttempts              int   `yaml:"max_fetch_attempts"`
	MinReportLength               int   `yaml:"min_report_length"`
	DefaultSufficientOnParseError *bool `yaml:"default_sufficient_on_parse_error"`
	MaxCondensePasses             int   `yaml:"max_condense_passes"`
}

// MaxFetch returns the bounded total number of fetch attempts (default 2:
// one initial fetch plus one retry).
func (p Pipeline) MaxFetch() int {
	if p.MaxFetchAttempts <= 0 {
		return 2
	}
	return p.MaxFetchAttempts
}

// DefaultSufficient returns the quality-gate verdict used when the model
// response cannot be parsed (default true).
func (p Pipeline) DefaultSufficient() bool {
	if p.DefaultSufficientOnParseError == nil {
		return true
	}
	return *p.DefaultSufficientOnParseError
}

// Load reads and decodes the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return &cfg, nil
}
