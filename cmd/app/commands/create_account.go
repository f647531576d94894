package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/metagrid/directory/internal/app"
	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/config"
	"github.com/metagrid/directory/internal/permission"
)

// RunCreateAccount creates an account from the command line. With admin set,
// the administrator role is granted through the field access table using the
// internal admin token, the same path an administrator request would take.
func RunCreateAccount(ctx context.Context, username, email, password string, admin bool) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("creating account",
		slog.String("username", username),
		slog.Bool("admin", admin),
	)

	defer closeContainer(container, logger)

	accounts, err := container.AccountUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize account use case: %w", err)
	}

	account, err := accounts.CreateAccount(ctx, username, email, password, "")
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if admin {
		tokens, err := container.TokenUseCase()
		if err != nil {
			return fmt.Errorf("failed to initialize token use case: %w", err)
		}

		ident := permission.Identity{Token: tokens.SpecialAdminToken()}
		roles := []string{authDomain.RoleUser, authDomain.RoleAdmin}
		if _, err := accounts.UpdateAccountFields(ctx, ident, account, map[string]any{"roles": roles}); err != nil {
			return fmt.Errorf("failed to grant administrator role: %w", err)
		}
	}

	fmt.Printf("Created account %s (%s)\n", account.Username, account.ID)

	logger.Info("account created",
		slog.String("account_id", account.ID.String()),
		slog.String("username", account.Username),
	)

	return nil
}
