package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/parley-app/parley/internal/model/conversation"
	"github.com/parley-app/parley/internal/service/credential"
)

var errNotLoggedIn = errors.New("not logged in: run `talk login` first")

func newTopicsCmd(a *app) *cobra.Command {
	var category string
	var showCategories bool

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List conversation topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if showCategories {
				categories, err := a.client.Categories(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, c := range categories {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
				}
				return nil
			}

			topics, err := a.client.Topics(cmd.Context(), category)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY")
			for _, t := range topics {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.CategoryID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list topics of this category")
	cmd.Flags().BoolVar(&showCategories, "categories", false, "list categories instead of topics")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [session-id]",
		Short: "List past conversations, or print one transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				transcript, err := a.client.Transcript(cmd.Context(), cred, args[0])
				if err != nil {
					return err
				}
				for _, m := range transcript {
					fmt.Fprintf(a.out, "%s: %s\n", m.Role, m.Content)
				}
				return nil
			}

			entries, err := a.client.History(cmd.Context(), cred)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "SESSION\tTOPIC\tMINUTES\tMESSAGES\tSCORE\tSTARTED")
			for _, e := range entries {
				score := "-"
				if e.EndedAt != nil {
					score = fmt.Sprintf("%.2f", e.Score)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", e.ID, e.TopicName, e.DurationMinutes, e.MessageCount, score, e.CreatedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many conversations you had and how they scored",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			stats, err := a.client.Stats(cmd.Context(), cred)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Conversations: %d\nAverage score: %.2f\nBest score:    %.2f\n", stats.TotalSessions, stats.AvgScore, stats.HighScore)
			return nil
		},
	}
}

func (a *app) credential() (conversation.Credential, error) {
	cred, err := a.store.Token()
	if errors.Is(err, credential.ErrNoCredential) {
		return "", errNotLoggedIn
	}
	return cred, err
}
