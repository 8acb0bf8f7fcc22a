package cli

import (
	"context"
	"strings"

	"plotline-cli/internal/model"

	"github.com/spf13/cobra"
)

type generateView struct {
	ProjectID int                     `json:"project_id"`
	Request   model.GenerationRequest `json:"request"`
	Result    model.GenerationResult  `json:"result"`
	Adopted   bool                    `json:"adopted"`
	Version   int                     `json:"version_number,omitempty"`
}

func newGenerateCmd(app *App) *cobra.Command {
	var (
		style  string
		words  int
		prompt string
		adopt  bool
	)

	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Ask the AI to continue the saved outline",
		Example: strings.TrimSpace(`
  plotline generate 12 --style xianxia --words 1500
  plotline generate 12 --prompt "introduce the rival" --adopt
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				if !cmd.Flags().Changed("style") && rt.cfg.AI.DefaultStyle != "" {
					style = rt.cfg.AI.DefaultStyle
				}
				if !cmd.Flags().Changed("words") && rt.cfg.AI.WordLimit > 0 {
					words = rt.cfg.AI.WordLimit
				}
				ed, err := rt.openEditor(ctx, id)
				if err != nil {
					return err
				}
				defer ed.Close()

				res, err := ed.Generate(ctx, model.GenerationRequest{
					Style:        model.Style(style),
					WordLimit:    words,
					CustomPrompt: prompt,
				})
				if err != nil {
					return err
				}
				out := generateView{ProjectID: id, Request: ed.Snapshot().Request, Result: res}
				out.Request.Content = ""
				if adopt {
					if err := ed.Adopt(); err != nil {
						return err
					}
					if err := ed.Save(ctx); err != nil {
						return err
					}
					out.Adopted = true
					out.Version = savedView(ed).VersionNumber
				}
				return writeOut(cmd, app, out)
			})
		},
	}
	cmd.Flags().StringVar(&style, "style", string(model.StyleDefault), "Style: default|fantasy|scifi|urban|xianxia|history")
	cmd.Flags().IntVar(&words, "words", model.DefaultWordLimit, "Word limit (100-5000)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Extra instructions for this continuation")
	cmd.Flags().BoolVar(&adopt, "adopt", false, "Append the result to the outline and save it as a new version")
	return cmd
}

func newAICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "AI service commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ms, err := rt.gen.Models(ctx)
				if err != nil {
					return err
				}
				if ms == nil {
					ms = []model.AIModel{}
				}
				return writeOut(cmd, app, ms)
			})
		},
	})
	cmd.AddCommand(newAIPromptCmd(app))
	return cmd
}

func newAIPromptCmd(app *App) *cobra.Command {
	var req model.PromptRequest

	cmd := &cobra.Command{
		Use:   "prompt <text>",
		Short: "Run a one-shot prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.UserPrompt = strings.Join(args, " ")
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				res, err := rt.gen.Prompt(ctx, req)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, res)
			})
		},
	}
	cmd.Flags().StringVar(&req.SystemPrompt, "system", "", "System prompt")
	cmd.Flags().StringVar(&req.Model, "model", "", "Model id (default ai.model)")
	cmd.Flags().Float64Var(&req.Temperature, "temperature", 0, "Sampling temperature 0-2 (default 0.7)")
	cmd.Flags().IntVar(&req.MaxTokens, "max-tokens", 0, "Maximum tokens (default 1000)")
	return cmd
}
