package main

import (
	"strconv"

	"github.com/spf13/cobra"

	scouterrors "scout/internal/errors"
	"scout/internal/payload"
	"scout/internal/storage"
)

var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "Record ideas linked to stored repositories",
}

var (
	ideaTitle       string
	ideaDescription string
	ideaScore       float64
	ideaAttrs       string
	ideaRepos       []string
)

var ideaSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist an idea and link it to repositories",
	Long: `Persist an idea. Each --repo URL that matches a stored repository is
linked to the idea; URLs that match nothing are skipped and the output
reports how many links were made.

Examples:
  scout idea save --title "Grammar-constrained agents" --score 8.5 \
    --attrs '{"effort":"M"}' --repo https://github.com/a/b --repo https://github.com/c/d`,
	Args: cobra.NoArgs,
	RunE: runIdeaSave,
}

var ideaShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an idea and the repositories linked to it",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeaShow,
}

func init() {
	ideaSaveCmd.Flags().StringVar(&ideaTitle, "title", "", "Idea title (required)")
	ideaSaveCmd.Flags().StringVar(&ideaDescription, "description", "", "Longer description")
	ideaSaveCmd.Flags().Float64Var(&ideaScore, "score", 0, "Numeric score")
	ideaSaveCmd.Flags().StringVar(&ideaAttrs, "attrs", "", "JSON object of extra attributes")
	ideaSaveCmd.Flags().StringArrayVar(&ideaRepos, "repo", nil, "Linked repository URL (repeatable)")
	_ = ideaSaveCmd.MarkFlagRequired("title")

	ideaCmd.AddCommand(ideaSaveCmd)
	ideaCmd.AddCommand(ideaShowCmd)
	rootCmd.AddCommand(ideaCmd)
}

func runIdeaSave(cmd *cobra.Command, args []string) error {
	attrs, err := payload.Parse(ideaAttrs)
	if err != nil {
		return err
	}
	in := storage.IdeaInput{
		Title:       ideaTitle,
		Description: ideaDescription,
		Attrs:       attrs,
		RepoURLs:    ideaRepos,
	}
	if cmd.Flags().Changed("score") {
		score := ideaScore
		in.Score = &score
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, linked, err := storage.NewIdeaStore(a.db).Save(in)
	if err != nil {
		return err
	}
	return printResponse(&AckResponse{
		Status: "CREATED",
		Key:    "idea_id",
		ID:     id,
		Extra:  map[string]interface{}{"title": ideaTitle, "linked": linked},
	})
}

func runIdeaShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return scouterrors.Newf(scouterrors.ValidationError, "invalid idea id %q", args[0])
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := loadIdea(storage.NewIdeaStore(a.db), id)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func loadIdea(ideas *storage.IdeaStore, id int64) (*IdeaShowResponse, error) {
	idea, err := ideas.Get(id)
	if err != nil {
		return nil, err
	}
	urls, err := ideas.LinkedURLs(id)
	if err != nil {
		return nil, err
	}
	if urls == nil {
		urls = []string{}
	}
	return &IdeaShowResponse{
		IdeaID:      idea.ID,
		Title:       idea.Title,
		Description: idea.Description,
		Score:       idea.Score,
		Attrs:       idea.Attrs,
		Repos:       urls,
		CreatedAt:   idea.CreatedAt,
	}, nil
}
