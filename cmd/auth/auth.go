package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartsecurity/cli/internal/app"
	"github.com/smartsecurity/cli/internal/format"
	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/utils"
)

// passwordEnv is read when --password is omitted so it stays out of shell history.
const passwordEnv = "SMARTSEC_PASSWORD"

// AuthCmd represents the auth command
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication and session commands",
	Long: `Authentication and session commands for SmartSecurity CLI.

This command group includes login, registration, logout and token refresh.`,
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to SmartSecurity",
	Long:  "Authenticate with username and password and store the session locally",
	RunE:  runLogin,
}

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long:  "Create a new account and sign in with it",
	RunE:  runRegister,
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout from SmartSecurity",
	Long:  "Revoke the current refresh token and clear the local session",
	RunE:  runLogout,
}

// logoutAllCmd represents the logout-all command
var logoutAllCmd = &cobra.Command{
	Use:   "logout-all",
	Short: "Logout from every device",
	Long:  "Revoke every session of the account and clear the local one",
	RunE:  runLogoutAll,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long:  "Validate the stored session, refreshing it if needed, and show the signed-in user",
	RunE:  runStatus,
}

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token",
	Long:  "Exchange the stored refresh token for a new token pair",
	RunE:  runRefresh,
}

func runLogin(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, err := passwordFlag(cmd)
	if err != nil {
		return err
	}

	var errs utils.MultiError
	errs.Add(utils.ValidateRequired(username, "username"))
	errs.Add(utils.ValidateRequired(password, "password"))
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}

	a, err := app.Load()
	if err != nil {
		return err
	}

	format.PrintInfo("Logging in as %s...", username)
	res := a.Session.Login(cmd.Context(), username, password)
	if !res.Success {
		return fmt.Errorf("login failed: %s", res.Error)
	}

	format.PrintSuccess("✓ Successfully logged in as %s", res.User.Username)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	password, err := passwordFlag(cmd)
	if err != nil {
		return err
	}

	if err := utils.ValidateRegistration(name, username, email, password); err != nil {
		return err
	}

	a, err := app.Load()
	if err != nil {
		return err
	}

	res := a.Session.Register(cmd.Context(), models.RegisterRequest{
		Name:     strings.TrimSpace(name),
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if !res.Success {
		return fmt.Errorf("registration failed: %s", res.Error)
	}

	format.PrintSuccess("✓ Account created, logged in as %s", res.User.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := app.Load()
	if err != nil {
		return err
	}

	s := a.Session.Bootstrap(cmd.Context())
	if !s.IsAuthenticated {
		format.PrintWarning("Not logged in")
		return nil
	}

	a.Session.Logout(cmd.Context())
	format.PrintSuccess("✓ Successfully logged out")
	return nil
}

func runLogoutAll(cmd *cobra.Command, args []string) error {
	a, err := app.Load()
	if err != nil {
		return err
	}

	if _, err := a.RequireSession(cmd.Context()); err != nil {
		return err
	}

	a.Session.LogoutAll(cmd.Context())
	format.PrintSuccess("✓ Logged out from every device")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := app.Load()
	if err != nil {
		return err
	}

	s := a.Session.Bootstrap(cmd.Context())
	if !s.IsAuthenticated {
		return format.Print(format.KeyValues{
			"status": "not logged in",
			"server": a.Config.Server.URL,
		})
	}

	return format.Print(format.KeyValues{
		"status":   "logged in",
		"server":   a.Config.Server.URL,
		"user_id":  s.User.ID,
		"username": s.User.Username,
		"email":    s.User.Email,
	})
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := app.Load()
	if err != nil {
		return err
	}

	if _, err := a.RequireSession(cmd.Context()); err != nil {
		return err
	}

	res := a.Session.RefreshAccessToken(cmd.Context())
	if !res.Success {
		return fmt.Errorf("refresh failed, you have been logged out: %s", res.Error)
	}

	format.PrintSuccess("✓ Session refreshed for %s", res.User.Username)
	return nil
}

func passwordFlag(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if password == "" {
		return "", errors.New("password is required (use --password or " + passwordEnv + ")")
	}
	return password, nil
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password (or set "+passwordEnv+")")
	_ = loginCmd.MarkFlagRequired("username")

	registerCmd.Flags().StringP("name", "n", "", "Full name")
	registerCmd.Flags().StringP("username", "u", "", "Username")
	registerCmd.Flags().StringP("email", "e", "", "Email address")
	registerCmd.Flags().StringP("password", "p", "", "Password (or set "+passwordEnv+")")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")

	AuthCmd.AddCommand(loginCmd)
	AuthCmd.AddCommand(registerCmd)
	AuthCmd.AddCommand(logoutCmd)
	AuthCmd.AddCommand(logoutAllCmd)
	AuthCmd.AddCommand(statusCmd)
	AuthCmd.AddCommand(refreshCmd)
}
