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

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloudwego/postpipe/discovery"
	"github.com/cloudwego/postpipe/imagegen"
	"github.com/cloudwego/postpipe/internal/config"
	"github.com/cloudwego/postpipe/internal/log"
	"github.com/cloudwego/postpipe/internal/metrics"
	"github.com/cloudwego/postpipe/internal/pipeline"
	"github.com/cloudwego/postpipe/internal/runner"
	"github.com/cloudwego/postpipe/llm"
	"github.com/cloudwego/postpipe/social"
	"github.com/cloudwego/postpipe/store"
	"github.com/cloudwego/postpipe/version"
)

func main() {
	root := &cobra.Command{
		Use:           "postpipe",
		Short:         "Automated social media posting pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "postpipe:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("postpipe", version.Version)
		},
	}
}

type runFlags struct {
	configPath       string
	query            string
	location         string
	platform         string
	style            string
	user             string
	workflow         string
	requiresApproval bool
	verbose          bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one posting pipeline to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "config.yaml", "path to the YAML config")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "topic search query (required)")
	cmd.Flags().StringVarP(&f.location, "location", "l", "", "location bias for discovery")
	cmd.Flags().StringVarP(&f.platform, "platform", "p", "instagram", "target platform")
	cmd.Flags().StringVar(&f.style, "style", "", "image style prompt")
	cmd.Flags().StringVar(&f.user, "user", "", "user id the run belongs to")
	cmd.Flags().StringVarP(&f.workflow, "workflow", "w", "", "workflow id (generated when empty)")
	cmd.Flags().BoolVar(&f.requiresApproval, "requires-approval", false, "persist for approval instead of publishing")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func runPipeline(cmd *cobra.Command, f runFlags) error {
	if f.verbose {
		log.SetLogLevel(log.DebugLevel)
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}

	deps, closer, err := buildDeps(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer()

	r, err := runner.New(deps, runner.Options{
		MaxFetchAttempts:  cfg.Pipeline.MaxFetch(),
		MinReportLength:   cfg.Pipeline.MinReportLength,
		DefaultSufficient: cfg.Pipeline.DefaultSufficient(),
		MaxCondensePasses: cfg.Pipeline.MaxCondensePasses,
		SearchCostPerCall: cfg.Discovery.CostPerCall,
		LLMCostPerCall:    cfg.LLM.CostPerCall,
	})
	if err != nil {
		return err
	}

	workflowID := f.workflow
	if workflowID == "" {
		workflowID = uuid.NewString()
	}
	st := pipeline.NewPipelineState(f.query, strings.ToLower(f.platform), workflowID, f.requiresApproval)
	st.Location = f.location
	st.StylePrompt = f.style
	st.UserID = f.user
	if tok := cfg.Social.Instagram.AccessToken; tok != "" {
		st.Credentials = &social.InstagramCredentials{
			AccessToken: tok,
			AccountID:   cfg.Social.Instagram.AccountID,
		}
	}

	log.Info("starting run %s: query=%q platform=%s", workflowID, f.query, st.Platform)
	start := time.Now()
	final, err := r.Run(cmd.Context(), st)
	metrics.ObserveRun(string(final.PublishStatus))
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished in %s\n", workflowID, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  status: %s\n", final.PublishStatus)
	if final.PublishedURL != "" {
		fmt.Printf("  published: %s\n", final.PublishedURL)
	}
	if final.PublishError != "" {
		fmt.Printf("  error: %s\n", final.PublishError)
	}
	for svc, cost := range final.APICosts {
		fmt.Printf("  cost[%s]: %.4f\n", svc, cost)
	}
	return nil
}

// buildDeps turns the config into live collaborators. Unconfigured providers
// stay nil and the corresponding steps degrade per their fallback rules.
func buildDeps(cmd *cobra.Command, cfg *config.Config) (runner.Deps, func(), error) {
	deps := runner.Deps{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Observer:   metrics.ObserveStep,
	}
	closer := func() {}

	if cfg.LLM.ModelName != "" {
		cfg.LLM.APIType = llm.NewModelType(string(cfg.LLM.APIType))
		model, err := llm.NewChatModel(cmd.Context(), cfg.LLM)
		if err != nil {
			return deps, closer, err
		}
		deps.Gen = llm.NewChat(model, llm.ChatOptions{
			Retries: cfg.LLM.Retries,
			Timeout: cfg.LLM.Timeout,
		})
	} else {
		log.Warn("no llm configured, curation and captioning use fallbacks")
	}

	if cfg.Discovery.Endpoint != "" {
		deps.Discovery = discovery.NewHTTPClient(cfg.Discovery.Endpoint, cfg.Discovery.APIKey)
	}

	if cfg.Image.APIKey != "" {
		deps.Image = imagegen.NewOpenAIClient(imagegen.Config{
			APIKey:      cfg.Image.APIKey,
			BaseURL:     cfg.Image.BaseURL,
			Model:       cfg.Image.Model,
			Size:        cfg.Image.Size,
			CostPerCall: cfg.Image.CostPerCall,
		})
	}

	deps.Publishers = map[string]social.Publisher{}
	if cfg.Social.Instagram.Endpoint != "" {
		deps.Publishers["instagram"] = social.NewInstagram(cfg.Social.Instagram.Endpoint, deps.HTTPClient)
	}

	if cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return deps, closer, err
		}
		deps.Store = s
		closer = func() {
			if err := s.Close(); err != nil {
				log.Error("closing store: %v", err)
			}
		}
	}
	return deps, closer, nil
}
