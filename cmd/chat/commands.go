package main

import (
	"github.com/spf13/cobra"
)

// rootFlags are shared by every command.
type rootFlags struct {
	configPath string
	logLevel   string
}

func buildRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Terminal client for a channel chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		buildRegisterCmd(flags),
		buildLoginCmd(flags),
		buildLogoutCmd(flags),
		buildWhoamiCmd(flags),
		buildChannelsCmd(flags),
		buildMessagesCmd(flags),
		buildSendCmd(flags),
		buildChatCmd(flags),
	)
	return cmd
}

// =============================================================================
// Session Commands
// =============================================================================

func buildRegisterCmd(flags *rootFlags) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, flags, args[0], password)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")
	return cmd
}

func buildLoginCmd(flags *rootFlags) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, flags, args[0], password)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")
	return cmd
}

func buildLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, flags)
		},
	}
}

func buildWhoamiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd, flags)
		},
	}
}

// =============================================================================
// Channel and Message Commands
// =============================================================================

func buildChannelsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List or create channels",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every channel",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChannelsList(cmd, flags)
			},
		},
		&cobra.Command{
			Use:   "create <title>",
			Short: "Create a channel",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChannelsCreate(cmd, flags, args[0])
			},
		},
	)
	return cmd
}

func buildMessagesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "messages <channelId>",
		Short: "Print the history of a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMessages(cmd, flags, args[0])
		},
	}
}

func buildSendCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <channelId> <text>",
		Short: "Post a message to a channel",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, flags, args[0], args[1:])
		},
	}
}

func buildChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [channelId]",
		Short: "Open the interactive chat",
		Long: `Open the interactive chat. Channel and message pushes are printed as
they arrive and every line typed is sent to the selected channel.

Commands:
  /join <id>     switch channel
  /new <title>   create a channel
  /quit          exit`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel := ""
			if len(args) > 0 {
				channel = args[0]
			}
			return runChat(cmd, flags, channel)
		},
	}
}
