package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"thde.io/gcontacts"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [refresh-token]",
	Short: "Exchange a refresh token for a new access token",
	Long: `Refresh obtains a new access token from the OAuth2 token endpoint.
The refresh token is taken from the argument or, if omitted, from the
configuration. The new token is printed, not stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	client, err := newClient(viper.GetViper())
	if err != nil {
		return err
	}

	var refreshToken string
	if len(args) == 1 {
		refreshToken = args[0]
	}

	token, err := client.TokenRefresh(cmd.Context(), refreshToken)
	if err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}

	if claims, err := token.IDClaims(); err == nil {
		logger.Info("refreshed access token", zap.String("email", claims.Email))
	}

	return printToken(cmd.OutOrStdout(), token, format)
}

func printToken(w io.Writer, token *gcontacts.Token, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(token.OAuth2())
	}

	_, err := fmt.Fprintln(w, token.AccessToken)
	return err
}
