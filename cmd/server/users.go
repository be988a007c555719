package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/UkralStul/animeblog-service/internal/config"
	"github.com/UkralStul/animeblog-service/internal/storage"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

// usersDeleteCmd removes a user together with the blogs they own.
var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user and their blogs",
	Long: `Delete a user and every blog whose owner reference points at them.
Reviews on those blogs are left in place.

Example:
  animeblog users delete 3 --storage sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

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

		if err := store.DeleteUser(cmd.Context(), uint(id)); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("user %d does not exist", id)
			}
			return fmt.Errorf("delete user %d: %w", id, err)
		}

		logger.Infow("User deleted", "user_id", id)
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersDeleteCmd)
}
