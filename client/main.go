package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/makini/darasa/pkg/model"
)

var (
	apiAddr     string
	gatewayAddr string
	userID      string
	role        string
)

func main() {
	root := &cobra.Command{
		Use:   "darasa",
		Short: "Terminal messenger for the Darasa e-learning platform",
	}

	root.PersistentFlags().StringVar(&apiAddr, "api", "http://localhost:8081", "api service address")
	root.PersistentFlags().StringVar(&gatewayAddr, "gateway", "localhost:8080", "gateway service address")
	root.PersistentFlags().StringVar(&userID, "user", "", "user id")
	root.PersistentFlags().StringVar(&role, "role", "student", "role (student, instructor, admin)")

	root.AddCommand(chatCmd())
	root.AddCommand(threadsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func chatCmd() *cobra.Command {
	var withUser, space string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open a private conversation or a course space",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			var thread model.ThreadID
			switch {
			case withUser != "" && space != "":
				return fmt.Errorf("--with and --space are mutually exclusive")
			case withUser != "":
				thread = model.NewConversation(userID, withUser)
			case space != "":
				thread = model.NewSpace(space)
			default:
				return fmt.Errorf("one of --with or --space is required")
			}

			return runChat(cmd.Context(), thread)
		},
	}

	cmd.Flags().StringVar(&withUser, "with", "", "user id to message privately")
	cmd.Flags().StringVar(&space, "space", "", "course id whose space to join")
	return cmd
}

func threadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List your conversations and spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runThreads(cmd.Context())
		},
	}
}
