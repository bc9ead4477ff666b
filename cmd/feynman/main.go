package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pbaille/feynman/internal/config"
	"github.com/pbaille/feynman/internal/domain"
	"github.com/pbaille/feynman/internal/schedule"
	"github.com/pbaille/feynman/internal/store"
	"github.com/pbaille/feynman/internal/tui"
)

var (
	cfgFile string
	jsonOut bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "feynman",
		Short: "Spaced-repetition tracker for things you are learning",
		Long:  "Feynman tracks topics you are studying, schedules reviews with a spaced-repetition ladder, and picks what to review next.",
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .feynman.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "machine-readable output")
	viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(topicCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(tuiCmd())

	if err := rootCmd.Execute(); err != nil {
		if jsonOut {
			emitError(err)
		}
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".feynman")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("FEYNMAN")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

func getStore() (*store.Store, error) {
	cfg := config.Load()
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.DBPath)
}

// envelope is the shape of all --json output.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// emit prints data as a JSON envelope when --json is set, otherwise
// runs the human printer.
func emit(data any, human func()) {
	if !jsonOut {
		human()
		return
	}
	out, _ := json.MarshalIndent(envelope{Success: true, Data: data}, "", "  ")
	fmt.Println(string(out))
}

func emitError(err error) {
	out, _ := json.Marshal(envelope{Success: false, Error: err.Error()})
	fmt.Println(string(out))
}

func topicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage topics",
	}
	cmd.AddCommand(topicAddCmd())
	cmd.AddCommand(topicListCmd())
	cmd.AddCommand(topicShowCmd())
	cmd.AddCommand(topicDeleteCmd())
	cmd.AddCommand(topicTagCmd())
	return cmd
}

func topicAddCmd() *cobra.Command {
	var description string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a new topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			topic, err := s.AddTopic(title, description, tags)
			if err != nil {
				return err
			}

			emit(topic, func() {
				fmt.Printf("Added topic: %s\n", topic.ID[:8])
				fmt.Printf("Title: %s\n", topic.Title)
				if len(topic.Tags) > 0 {
					fmt.Printf("Tags: %s\n", strings.Join(topic.Tags, ", "))
				}
				fmt.Println("Due for first review now.")
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "desc", "d", "", "topic description")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag (repeatable)")
	return cmd
}

func topicListCmd() *cobra.Command {
	var tagFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List topics with their scheduling state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			cards, err := s.ListCards(tagFilter)
			if err != nil {
				return err
			}

			emit(cards, func() {
				if len(cards) == 0 {
					fmt.Println("No topics yet. Use 'feynman topic add' to create one.")
					return
				}
				now := time.Now().UTC()
				for _, c := range cards {
					due := "due " + c.Progress.DueAt.Format("2006-01-02")
					if c.Progress.Due(now) {
						due = "due now"
					}
					fmt.Printf("%s  %-40s %-12s %s\n",
						c.Topic.ID[:8],
						truncate(c.Topic.Title, 40),
						c.Progress.MasteryLabel(),
						due)
				}
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&tagFilter, "tag", "t", "", "only topics with this tag")
	return cmd
}

func topicShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id|title]",
		Short: "Show topic details and review history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			topic, err := s.FindTopic(args[0])
			if err != nil {
				return err
			}
			progress, err := s.GetProgress(topic.ID)
			if err != nil {
				return err
			}
			reviews, err := s.ListReviews(topic.ID, 10)
			if err != nil {
				return err
			}
			gaps, err := s.ListGaps(topic.ID)
			if err != nil {
				return err
			}

			detail := struct {
				Topic    *domain.Topic    `json:"topic"`
				Progress *domain.Progress `json:"progress"`
				Reviews  []domain.Review  `json:"reviews"`
				Gaps     []domain.Gap     `json:"gaps"`
			}{topic, progress, reviews, gaps}

			emit(detail, func() {
				fmt.Printf("ID:      %s\n", topic.ID)
				fmt.Printf("Title:   %s\n", topic.Title)
				if topic.Description != "" {
					fmt.Printf("About:   %s\n", topic.Description)
				}
				if len(topic.Tags) > 0 {
					fmt.Printf("Tags:    %s\n", strings.Join(topic.Tags, ", "))
				}
				fmt.Printf("Mastery: %d/5 (%s)\n", progress.Mastery, progress.MasteryLabel())
				fmt.Printf("Reviews: %d (%.0f%% success)\n", progress.ReviewCount, progress.SuccessRate())
				fmt.Printf("Due:     %s\n", progress.DueAt.Format("2006-01-02 15:04"))

				if len(reviews) > 0 {
					fmt.Println("\nRecent reviews:")
					for _, r := range reviews {
						line := fmt.Sprintf("  %s  %-7s", r.ReviewedAt.Format("2006-01-02"), r.Outcome)
						if r.Notes != "" {
							line += "  " + truncate(r.Notes, 50)
						}
						fmt.Println(line)
					}
				}
				if len(gaps) > 0 {
					fmt.Println("\nGaps:")
					for _, g := range gaps {
						fmt.Printf("  - %s\n", g.Description)
					}
				}
			})
			return nil
		},
	}
}

func topicDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id|title]",
		Short: "Delete a topic and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			topic, err := s.FindTopic(args[0])
			if err != nil {
				return err
			}
			if _, err := s.DeleteTopic(topic.ID); err != nil {
				return err
			}

			emit(topic, func() {
				fmt.Printf("Deleted topic: %s\n", topic.Title)
			})
			return nil
		},
	}
}

func topicTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag [id|title] [tags...]",
		Short: "Replace a topic's tags",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			topic, err := s.FindTopic(args[0])
			if err != nil {
				return err
			}
			if err := s.SetTopicTags(topic.ID, args[1:]); err != nil {
				return err
			}
			topic, err = s.GetTopic(topic.ID)
			if err != nil {
				return err
			}

			emit(topic, func() {
				fmt.Printf("Tags for %s: %s\n", topic.Title, strings.Join(topic.Tags, ", "))
			})
			return nil
		},
	}
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tags, err := s.ListTags()
			if err != nil {
				return err
			}

			emit(tags, func() {
				if len(tags) == 0 {
					fmt.Println("No tags yet.")
					return
				}
				for _, t := range tags {
					fmt.Printf("%-20s %d topic(s)\n", t.Name, t.TopicCount)
				}
			})
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats(time.Now().UTC())
			if err != nil {
				return err
			}

			emit(stats, func() {
				fmt.Printf("Topics:      %d\n", stats.TotalTopics)
				fmt.Printf("Reviews:     %d\n", stats.TotalReviews)
				fmt.Printf("Mastered:    %d\n", stats.Mastered)
				fmt.Printf("Due now:     %d\n", stats.DueNow)
				fmt.Printf("Avg mastery: %.1f\n", stats.AvgMastery)
			})
			return nil
		},
	}
}

func nextCmd() *cobra.Command {
	var tagFilter string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pick the next topic to review",
		Long:  "Picks one topic by weighted random draw. Overdue and weak topics are favored but every topic has a chance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			cards, err := s.ListCards(tagFilter)
			if err != nil {
				return err
			}

			cfg := config.Load()
			selector, err := schedule.NewSelector(schedule.SelectorConfig{
				Jitter: cfg.Jitter,
				Source: rand.NewSource(time.Now().UnixNano()),
			})
			if err != nil {
				return err
			}

			picked := selector.Select(cards, tagFilter, time.Now().UTC())

			emit(picked, func() {
				if picked == nil {
					if tagFilter != "" {
						fmt.Printf("No topics tagged %q. Nothing to review.\n", tagFilter)
					} else {
						fmt.Println("No topics yet. Use 'feynman topic add' to create one.")
					}
					return
				}
				fmt.Printf("Next up: %s\n", picked.Topic.Title)
				fmt.Printf("ID:      %s\n", picked.Topic.ID[:8])
				fmt.Printf("Mastery: %d/5 (%s)\n", picked.Progress.Mastery, picked.Progress.MasteryLabel())
				if picked.Progress.Due(time.Now().UTC()) {
					fmt.Println("Status:  due")
				}
				fmt.Printf("\nWhen done: feynman review %s --outcome success|partial|fail\n", picked.Topic.ID[:8])
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&tagFilter, "tag", "t", "", "only topics with this tag")
	return cmd
}

func reviewCmd() *cobra.Command {
	var outcomeStr string
	var notes string
	var gaps []string

	cmd := &cobra.Command{
		Use:   "review [id|title]",
		Short: "Record a review outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := domain.ParseOutcome(outcomeStr)
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			topic, err := s.FindTopic(args[0])
			if err != nil {
				return err
			}

			progress, err := s.RecordReview(topic.ID, outcome, notes, gaps, time.Now().UTC())
			if err != nil {
				return err
			}

			emit(progress, func() {
				fmt.Printf("Recorded %s for %s\n", outcome, topic.Title)
				fmt.Printf("Mastery: %d/5 (%s)\n", progress.Mastery, progress.MasteryLabel())
				fmt.Printf("Next review: %s\n", progress.DueAt.Format("2006-01-02"))
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&outcomeStr, "outcome", "o", "", "success, partial, or fail (required)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "review notes")
	cmd.Flags().StringArrayVarP(&gaps, "gap", "g", nil, "understanding gap to record (repeatable)")
	cmd.MarkFlagRequired("outcome")
	return cmd
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			return tui.Run(s, config.Load().DueLimit)
		},
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
