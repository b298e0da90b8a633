package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/anisan-cli/adplay/color"
	"github.com/anisan-cli/adplay/config"
	"github.com/anisan-cli/adplay/icon"
	"github.com/anisan-cli/adplay/style"
	"github.com/anisan-cli/adplay/util"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func errUnknownKey(key string) error {
	closest := lo.MinBy(lo.Keys(config.Default), func(a, b string) bool {
		return levenshtein.Distance(key, a) < levenshtein.Distance(key, b)
	})

	return fmt.Errorf(
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(key),
		style.Fg(color.Yellow)(closest),
	)
}

// lookupField returns the registered field for k.
func lookupField(k string) (config.Field, error) {
	field, ok := config.Default[k]
	if !ok {
		return config.Field{}, errUnknownKey(k)
	}
	return field, nil
}

// saveConfig writes viper's values to the config file, creating it when missing.
func saveConfig() error {
	err := viper.WriteConfig()
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return viper.SafeWriteConfig()
	}
	return err
}

func completionConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	keys := lo.Keys(config.Default)
	sort.Strings(keys)
	return keys, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInfoCmd, configGetCmd, configSetCmd, configResetCmd)

	configInfoCmd.Flags().BoolP("json", "j", false, "Print fields as JSON")
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
}

var configInfoCmd = &cobra.Command{
	Use:               "info [keys...]",
	Short:             "Describe settings, all of them when no key is given",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		fields := lo.Values(config.Default)
		if len(args) > 0 {
			fields = lo.Map(args, func(k string, _ int) config.Field {
				field, err := lookupField(k)
				handleErr(err)
				return field
			})
		}

		sort.Slice(fields, func(i, j int) bool {
			return fields[i].Key < fields[j].Key
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(fields))
			return
		}

		for i := range fields {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), fields[i].Pretty())
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Print the current value of a setting",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		_, err := lookupField(args[0])
		handleErr(err)

		fmt.Fprintln(cmd.OutOrStdout(), viper.Get(args[0]))
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value...>",
	Short:             "Change a setting and save it",
	Example:           "  adplay config set ads.retry_limit 3\n  adplay config set ads.request_timeout 5s",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field, err := lookupField(args[0])
		handleErr(err)

		value, err := field.Parse(args[1:])
		handleErr(err)

		viper.Set(field.Key, value)
		handleErr(saveConfig())

		fmt.Fprintf(
			cmd.OutOrStdout(),
			"%s %s = %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(field.Key),
			style.Fg(color.Yellow)(fmt.Sprint(value)),
		)
	},
}

var configResetCmd = &cobra.Command{
	Use:               "reset [key]",
	Short:             "Restore a setting to its default",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))
		if all == (len(args) == 1) {
			handleErr(errors.New("give either a key or --all"))
		}

		fields := lo.Values(config.Default)
		if !all {
			field, err := lookupField(args[0])
			handleErr(err)
			fields = []config.Field{field}
		}

		for _, field := range fields {
			viper.Set(field.Key, field.Value)
		}
		handleErr(saveConfig())

		fmt.Fprintf(
			cmd.OutOrStdout(),
			"%s reset %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			util.Quantify(len(fields), "key", "keys"),
		)
	},
}
