package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tickerpulse/tickerpulse/internal/config"
	"github.com/tickerpulse/tickerpulse/internal/llm"
)

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show per-provider daily request usage",
		RunE:  runQuota,
	}
}

func runQuota(_ *cobra.Command, _ []string) error {
	statePath := config.ExpandPath(viper.GetString("llm.state_path"))
	if statePath == "" {
		statePath = config.DefaultStatePath()
	}

	usage, err := llm.ReadQuotaUsage(statePath)
	if err != nil {
		return fmt.Errorf("failed to read quota state: %w", err)
	}

	if len(usage) == 0 {
		fmt.Println("No quota usage recorded.")
		return nil
	}

	providers := make([]string, 0, len(usage))
	for provider := range usage {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	fmt.Printf("%-12s %12s %14s\n", "PROVIDER", "USED TODAY", "LAST RESET")
	for _, provider := range providers {
		rec := usage[provider]
		fmt.Printf("%-12s %12d %14s\n", provider, rec.DailyUsage, rec.LastResetDate)
	}

	return nil
}
