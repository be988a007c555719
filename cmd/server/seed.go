package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UkralStul/animeblog-service/internal/config"
	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		logger := newCLILogger(cfg)
		defer logger.Sync()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		return fillWithDemoData(cmd.Context(), store, logger)
	},
}

func str(s string) *string { return &s }
func num(i int) *int       { return &i }

func fillWithDemoData(ctx context.Context, s storage.Storage, logger *zap.SugaredLogger) error {
	for _, a := range []*domain.Anime{
		{Title: str("Mushishi"), Description: str("A wanderer studies the creatures at the edge of life."), Image: num(1)},
		{Title: str("Planetes"), Description: str("Debris collectors in low Earth orbit."), Image: num(2)},
	} {
		if _, err := s.CreateAnime(ctx, a); err != nil {
			return fmt.Errorf("seed anime: %w", err)
		}
	}

	user, err := s.CreateUser(ctx, &domain.User{UserName: str("ginko"), Password: str("mushi")})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	blog, err := s.CreateBlog(ctx, &domain.Blog{Characters: str("Notes from the mountain road"), UserFK: &user.ID})
	if err != nil {
		return fmt.Errorf("seed blog: %w", err)
	}

	if _, err := s.CreateReview(ctx, &domain.Review{Post: str("Calm and strange, in a good way."), ReviewFK: &blog.ID}); err != nil {
		return fmt.Errorf("seed review: %w", err)
	}

	logger.Infow("Demo data inserted", "user_id", user.ID, "blog_id", blog.ID)
	return nil
}
