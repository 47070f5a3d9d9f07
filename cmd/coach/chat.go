package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/coach/internal/cli"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [problem]",
	Short: "Practice a problem interactively",
	Long: `Starts an interactive coaching session in the terminal.

The problem statement is taken from the argument, from --problem-file, or from
the session being resumed with --session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		problem, err := readProblem(cmd, args)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		skill, _ := cmd.Flags().GetString("skill")
		switch domain.SkillLevel(skill) {
		case domain.SkillUnknown, domain.SkillBeginner, domain.SkillIntermediate, domain.SkillAdvanced:
		default:
			return fmt.Errorf("unknown skill level %q", skill)
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")

		cfg, app, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.RunChat(ctx, app.Engine, cli.ChatOptions{
			SessionID:  sessionID,
			Problem:    problem,
			SkillLevel: domain.SkillLevel(skill),
			JSON:       jsonMode,
			Plain:      plain,
			In:         cmd.InOrStdin(),
			Out:        cmd.OutOrStdout(),
		}, cli.NewLogger(cfg.Log, os.Stderr))
	},
}

func readProblem(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, _ := cmd.Flags().GetString("problem-file")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read problem: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("session", "s", "", "Session id to resume or create")
	chatCmd.Flags().StringP("problem-file", "f", "", "Read the problem statement from a file")
	chatCmd.Flags().String("skill", "", "Learner skill level: beginner, intermediate or advanced")
	chatCmd.Flags().Bool("json", false, "Use JSON-Lines input and output")
	chatCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")

	// 'chat' is the default command.
	rootCmd.RunE = chatCmd.RunE
	rootCmd.Args = chatCmd.Args
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}
