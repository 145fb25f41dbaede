package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"thde.io/gcontacts"
)

var (
	listParams  gcontacts.FeedParams
	listRefresh bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every contact with its name and first email address",
	Long: `List fetches the whole contact feed, page by page, and prints one line
per contact. Entries without a name or an email address are left out.

  gcontacts list --format json
  gcontacts list --refresh --max-results 500`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listParams.Type, "type", gcontacts.DefaultType, "Feed type")
	listCmd.Flags().StringVar(&listParams.Email, "email", gcontacts.DefaultEmail, "User whose contacts are listed")
	listCmd.Flags().StringVar(&listParams.Projection, "projection", gcontacts.DefaultProjection, "Feed projection")
	listCmd.Flags().IntVar(&listParams.MaxResults, "max-results", gcontacts.DefaultMaxResults, "Entries requested per page")
	listCmd.Flags().BoolVar(&listRefresh, "refresh", false, "Refresh the access token before listing")
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newClient(viper.GetViper())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if listRefresh {
		token, err := client.RefreshAccessToken(ctx, "")
		if err != nil {
			return fmt.Errorf("refresh access token: %w", err)
		}
		client.SetToken(token)
	}

	contacts, err := client.Contacts(ctx, listParams)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}

	logger.Info("listed contacts", zap.Int("count", len(contacts)))

	switch format {
	case "json":
		return printContactsJSON(cmd.OutOrStdout(), contacts)
	default:
		return printContactsText(cmd.OutOrStdout(), contacts)
	}
}

func printContactsJSON(w io.Writer, contacts []gcontacts.Contact) error {
	if contacts == nil {
		contacts = []gcontacts.Contact{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(contacts)
}

func printContactsText(w io.Writer, contacts []gcontacts.Contact) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Email)
	}
	return tw.Flush()
}
