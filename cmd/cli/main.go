package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/internal/config"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/clients/gmailclient"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/services"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/postgres"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/utils"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg      *config.Config
	store    *postgres.Store
	notifier services.Notifier
	logger   *zap.Logger
	ctx      context.Context
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Volunteer Portal CLI - Manage shift admissions",
		Long:  `A CLI tool for managing shift signups, auto-acceptance rules, group bookings, and regular volunteer schedules.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.store != nil {
					app.store.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createShiftCmd())
	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(waitlistCmd())
	rootCmd.AddCommand(rejectCmd())
	rootCmd.AddCommand(cancelCmd())
	rootCmd.AddCommand(noShowCmd())
	rootCmd.AddCommand(listPendingCmd())
	rootCmd.AddCommand(createGroupCmd())
	rootCmd.AddCommand(inviteCmd())
	rootCmd.AddCommand(acceptInviteCmd())
	rootCmd.AddCommand(setGroupStatusCmd())
	rootCmd.AddCommand(placeCmd())
	rootCmd.AddCommand(moveCmd())
	rootCmd.AddCommand(pauseRegularCmd())
	rootCmd.AddCommand(resumeRegularCmd())
	rootCmd.AddCommand(interactiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, and the email notifier
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	// Initialize logger
	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.logger.Info("Loading configuration")
	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	// Connect to the database
	app.logger.Info("Connecting to database")
	app.store, err = postgres.NewStore(app.ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.logger.Debug("Database connection established")

	// The email notifier is optional: without an OAuth client file the
	// portal still admits signups, it just doesn't email anyone.
	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		app.logger.Warn("No OAuth client configuration found; email notifications disabled", zap.Error(err))
		return nil
	}

	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return fmt.Errorf("failed to get oauth config: %w", err)
	}

	token, err := utils.GetTokenWithFlow(app.ctx, oauthConfig)
	if err != nil {
		return fmt.Errorf("failed to authorize gmail: %w", err)
	}

	app.logger.Info("Initializing gmail client")
	gmailClient, err := gmailclient.NewClient(app.ctx, oauthCfg, token, app.cfg.GmailSender)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}
	app.notifier = gmailclient.NewNotifier(gmailClient, lookupVolunteerEmail)
	app.logger.Debug("Gmail client initialized successfully")

	return nil
}

// lookupVolunteerEmail resolves a volunteer id to an email address for
// outbound notifications.
func lookupVolunteerEmail(ctx context.Context, volunteerID string) (string, error) {
	var email string
	err := app.store.InTx(ctx, func(tx db.Tx) error {
		var err error
		email, err = tx.GetVolunteerEmail(ctx, volunteerID)
		return err
	})
	return email, err
}

func invitationTTL() time.Duration {
	return time.Duration(app.cfg.InvitationTTLDays) * 24 * time.Hour
}

// Command definitions

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.RunMigrations(app.ctx); err != nil {
				return err
			}
			fmt.Println("Migrations applied.")
			return nil
		},
	}
}

func createShiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createShift <shift_type_id> <start> <end> <capacity>",
		Short: "Create a shift (times in RFC 3339, e.g. 2026-03-10T09:00:00Z)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("start must be RFC 3339: %w", err)
			}
			end, err := time.Parse(time.RFC3339, args[2])
			if err != nil {
				return fmt.Errorf("end must be RFC 3339: %w", err)
			}
			capacity, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("capacity must be a number: %w", err)
			}
			location, _ := cmd.Flags().GetString("location")

			shift, err := services.CreateShift(app.ctx, app.store, app.logger, services.CreateShiftParams{
				ShiftTypeID: args[0],
				Location:    location,
				Start:       start,
				End:         end,
				Capacity:    capacity,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Shift created: %s (capacity %d)\n", shift.ID, shift.Capacity)
			return nil
		},
	}

	cmd.Flags().String("location", "", "Location the shift runs at")

	return cmd
}

func signupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup <volunteer_id> <shift_id>",
		Short: "Sign a volunteer up for a shift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			autoAccept, _ := cmd.Flags().GetBool("auto-accept")
			fromRegular, _ := cmd.Flags().GetBool("regular")
			flexible, _ := cmd.Flags().GetBool("flexible")

			result, err := services.CreateSignup(app.ctx, app.store, app.logger, services.CreateSignupParams{
				VolunteerID:         args[0],
				ShiftID:             args[1],
				RequestAutoAccept:   autoAccept,
				FromRegularSchedule: fromRegular,
				IsFlexiblePlacement: flexible,
				NotificationBaseURL: app.cfg.NotificationBaseURL,
				Now:                 time.Now(),
			})
			if err != nil {
				return err
			}

			services.DeliverQuietly(app.ctx, app.notifier, app.logger, result.Notification)

			fmt.Printf("\nSignup created: %s\n", result.Signup.ID)
			fmt.Printf("Status: %s\n", result.Signup.Status)
			if result.RuleDecision.Eligible {
				fmt.Printf("Auto-accepted by rule: %s\n", result.RuleDecision.MatchedRuleName)
			}
			return nil
		},
	}

	cmd.Flags().Bool("auto-accept", false, "Ask the rule engine for instant approval")
	cmd.Flags().Bool("regular", false, "Mark the signup as generated from a regular schedule")
	cmd.Flags().Bool("flexible", false, "Create as a flexible placement against a placeholder shift")

	return cmd
}

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <signup_id>",
		Short: "Approve a pending signup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.ApproveSignup(app.ctx, app.store, app.logger, args[0], app.cfg.NotificationBaseURL, time.Now())
			if err != nil {
				return err
			}

			services.DeliverQuietly(app.ctx, app.notifier, app.logger, result.Notification)

			fmt.Printf("Signup %s is now %s\n", result.Signup.ID, result.Signup.Status)
			return nil
		},
	}
}

func waitlistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "waitlist <signup_id>",
		Short: "Move a pending signup to the waitlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.WaitlistSignup(app.ctx, app.store, app.logger, args[0], app.cfg.NotificationBaseURL)
			if err != nil {
				return err
			}

			services.DeliverQuietly(app.ctx, app.notifier, app.logger, result.Notification)

			fmt.Printf("Signup %s is now %s\n", result.Signup.ID, result.Signup.Status)
			return nil
		},
	}
}

func rejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <signup_id> <reason>",
		Short: "Reject a signup with a reason",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.RejectSignup(app.ctx, app.store, app.logger, args[0], args[1], time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("Signup %s rejected\n", result.Signup.ID)
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <signup_id> [reason]",
		Short: "Cancel a signup on behalf of the volunteer",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reason string
			if len(args) > 1 {
				reason = args[1]
			}

			result, err := services.CancelSignup(app.ctx, app.store, app.logger, args[0], reason, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("Signup %s canceled\n", result.Signup.ID)
			return nil
		},
	}
}

func noShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "noshow <signup_id>",
		Short: "Mark a confirmed signup as a no-show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.MarkNoShow(app.ctx, app.store, app.logger, args[0], time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("Signup %s marked as no-show\n", result.Signup.ID)
			return nil
		},
	}
}

func listPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listPending",
		Short: "List signups awaiting review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signups, err := app.store.ListPendingSignups(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to list pending signups: %w", err)
			}

			fmt.Printf("\nFound %d pending signups:\n\n", len(signups))
			for _, s := range signups {
				fmt.Printf("- %s  volunteer=%s  shift=%s  status=%s  created=%s\n",
					s.ID, s.VolunteerID, s.ShiftID, s.Status, s.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func createGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createGroup <leader_id> <shift_id> <max_members>",
		Short: "Create a group booking led by a volunteer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxMembers, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("max_members must be a number: %w", err)
			}
			notes, _ := cmd.Flags().GetString("notes")

			result, err := services.CreateGroupBooking(app.ctx, app.store, app.logger, args[0], args[1], maxMembers, notes, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("\nGroup booking created: %s\n", result.Group.ID)
			fmt.Printf("Leader signup: %s (%s)\n", result.LeaderSignup.ID, result.LeaderSignup.Status)
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Notes attached to the group booking")

	return cmd
}

func inviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <group_id> <leader_id> <email> [email...]",
		Short: "Invite volunteers to a group booking by email",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.InviteToGroup(app.ctx, app.store, app.logger, services.InviteToGroupParams{
				GroupID:   args[0],
				Emails:    args[2:],
				InvitedBy: args[1],
				TTL:       invitationTTL(),
				BaseURL:   app.cfg.NotificationBaseURL,
				Now:       time.Now(),
			})
			if err != nil {
				return err
			}

			for i := range result.Notifications {
				services.DeliverQuietly(app.ctx, app.notifier, app.logger, &result.Notifications[i])
			}

			fmt.Printf("\nCreated %d invitations:\n", len(result.Invitations))
			for _, inv := range result.Invitations {
				fmt.Printf("  %s  token=%s  expires=%s\n", inv.Email, inv.Token, inv.ExpiresAt.Format("2006-01-02"))
			}
			if len(result.SkippedEmails) > 0 {
				fmt.Printf("Skipped (already invited or inviter's own address): %s\n",
					strings.Join(result.SkippedEmails, ", "))
			}
			return nil
		},
	}
}

func acceptInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acceptInvite <token> <volunteer_id>",
		Short: "Accept a group invitation by token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.AcceptGroupInvitation(app.ctx, app.store, app.logger, args[0], args[1], app.cfg.NotificationBaseURL, time.Now())
			if err != nil {
				return err
			}

			services.DeliverQuietly(app.ctx, app.notifier, app.logger, result.Notification)

			fmt.Printf("Invitation accepted; member signup %s is %s\n",
				result.MemberSignup.ID, result.MemberSignup.Status)
			return nil
		},
	}
}

func setGroupStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setGroupStatus <group_id> <status>",
		Short: "Apply an admin decision to a whole group booking",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")
			actor := services.Actor{IsAdmin: true}

			result, err := services.SetGroupStatus(app.ctx, app.store, app.logger, actor, args[0], model.GroupStatus(args[1]), notes, app.cfg.NotificationBaseURL, time.Now())
			if err != nil {
				return err
			}

			for i := range result.Notifications {
				services.DeliverQuietly(app.ctx, app.notifier, app.logger, &result.Notifications[i])
			}

			fmt.Printf("\nGroup %s is now %s\n", result.Group.ID, result.Group.Status)
			for _, s := range result.MemberSignups {
				fmt.Printf("  member signup %s: %s\n", s.ID, s.Status)
			}
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Notes recorded with the decision")

	return cmd
}

func placeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place <signup_id> <target_shift_id>",
		Short: "Bind a flexible signup to a concrete shift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")

			result, err := services.PlaceFlexible(app.ctx, app.store, app.logger, args[0], args[1], notes, app.cfg.NotificationBaseURL, time.Now())
			if err != nil {
				return err
			}

			services.DeliverQuietly(app.ctx, app.notifier, app.logger, result.Notification)

			fmt.Printf("Signup %s placed on shift %s (%s)\n",
				result.Signup.ID, result.Shift.ID, result.Signup.Status)
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Placement notes")

	return cmd
}

func moveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <signup_id> <target_shift_id>",
		Short: "Move a signup onto a different shift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")

			result, err := services.MoveVolunteer(app.ctx, app.store, app.logger, args[0], args[1], notes, app.cfg.NotificationBaseURL, time.Now())
			if err != nil {
				return err
			}

			services.DeliverQuietly(app.ctx, app.notifier, app.logger, result.Notification)

			fmt.Printf("Signup %s moved to shift %s (%s)\n",
				result.Signup.ID, result.Shift.ID, result.Signup.Status)
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Placement notes")

	return cmd
}

func pauseRegularCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pauseRegular <regular_id>",
		Short: "Pause a regular volunteer's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			untilStr, _ := cmd.Flags().GetString("until")
			reason, _ := cmd.Flags().GetString("reason")

			var until *time.Time
			if untilStr != "" {
				parsed, err := time.Parse("2006-01-02", untilStr)
				if err != nil {
					return fmt.Errorf("until must be YYYY-MM-DD: %w", err)
				}
				until = &parsed
			}

			result, err := services.PauseRegular(app.ctx, app.store, app.logger, args[0], until, reason, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("Regular schedule %s paused", result.Regular.ID)
			if until != nil {
				fmt.Printf(" until %s", until.Format("2006-01-02"))
			}
			fmt.Printf("; canceled %d generated signups\n", len(result.CanceledSignups))
			return nil
		},
	}

	cmd.Flags().String("until", "", "Pause end date (YYYY-MM-DD); empty pauses indefinitely")
	cmd.Flags().String("reason", "", "Reason recorded on canceled signups")

	return cmd
}

func resumeRegularCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resumeRegular <regular_id>",
		Short: "Resume a paused regular schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			regular, err := services.ResumeRegular(app.ctx, app.store, app.logger, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Regular schedule %s resumed\n", regular.ID)
			return nil
		},
	}
}

func interactiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (authenticate once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands without re-authenticating.
The session will keep running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\nStarting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			// Get all sibling commands (excluding interactive itself)
			rootCmd := cmd.Parent()
			commands := make(map[string]*cobra.Command)
			for _, subCmd := range rootCmd.Commands() {
				if subCmd.Name() != "interactive" && subCmd.Name() != "completion" && subCmd.Name() != "help" {
					commands[subCmd.Name()] = subCmd
				}
			}

			scanner := bufio.NewScanner(os.Stdin)

			for {
				fmt.Print("> ")

				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				// Parse command
				parts := strings.Fields(line)
				cmdName := parts[0]
				cmdArgs := parts[1:]

				// Handle exit
				if cmdName == "exit" || cmdName == "quit" {
					fmt.Println("Goodbye!")
					return nil
				}

				// Handle help
				if cmdName == "help" {
					printInteractiveHelp(commands)
					continue
				}

				// Execute command via Cobra
				targetCmd, exists := commands[cmdName]
				if !exists {
					fmt.Printf("Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
					continue
				}

				// Reset command flags and args
				targetCmd.Flags().VisitAll(func(flag *pflag.Flag) {
					flag.Changed = false
					flag.Value.Set(flag.DefValue)
				})

				// Execute the command's RunE directly, bypassing the full Execute() flow
				// This avoids re-running PersistentPreRunE which would call initApp() again
				if err := targetCmd.ParseFlags(cmdArgs); err != nil {
					fmt.Printf("Error parsing flags: %v\n\n", err)
					continue
				}

				// Get non-flag args after parsing flags
				cmdArgs = targetCmd.Flags().Args()

				// Validate args
				if err := targetCmd.Args(targetCmd, cmdArgs); err != nil {
					fmt.Printf("Error: %v\n\n", err)
					continue
				}

				// Execute the RunE function directly
				if targetCmd.RunE != nil {
					if err := targetCmd.RunE(targetCmd, cmdArgs); err != nil {
						fmt.Printf("Error: %v\n\n", err)
					}
				} else if targetCmd.Run != nil {
					targetCmd.Run(targetCmd, cmdArgs)
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}

			return nil
		},
	}

	return cmd
}

func printInteractiveHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")

	// Get command names and sort them
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}

	// Print each command with its short description
	for _, name := range names {
		cmd := commands[name]
		fmt.Printf("  %-30s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Println("\n  help                           Show this help message")
	fmt.Println("  exit, quit                     Exit the interactive session")
}
