package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/metagrid/directory/internal/app"
	"github.com/metagrid/directory/internal/config"
)

// RunSweepExpiredTokens deletes every persisted token whose expiration has
// passed and prints the count.
func RunSweepExpiredTokens(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("sweeping expired tokens")

	defer closeContainer(container, logger)

	tokens, err := container.TokenUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize token use case: %w", err)
	}

	count, err := tokens.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired tokens: %w", err)
	}

	fmt.Printf("Deleted %d expired token(s)\n", count)

	logger.Info("sweep completed", slog.Int64("count", count))

	return nil
}
