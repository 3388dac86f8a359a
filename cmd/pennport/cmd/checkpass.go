package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crystal-mush/pennport/pkg/crypt"
	"github.com/crystal-mush/pennport/pkg/gamedb"
)

var checkpassUpgrade bool

var checkpassCmd = &cobra.Command{
	Use:   "checkpass <dump> <player> <password>",
	Short: "Check a password against a player's stored hash",
	Long: `Look up a player by name or dbref and verify a password against the
hash in its XYXXY attribute. With --upgrade a bcrypt hash of the password
is printed when it matches.

Examples:
  pennport checkpass outdb One potrzebie
  pennport checkpass outdb '#1' potrzebie --upgrade`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := loadDump(args[0])
		if err != nil {
			return err
		}
		player := findPlayer(db, args[1])
		if player == nil {
			return fmt.Errorf("no player %q", args[1])
		}
		stored := player.Value(gamedb.AttrPassword, false)
		if stored == "" {
			return fmt.Errorf("%s has no password hash", player)
		}

		ok, err := crypt.Verify(stored, args[2])
		if err != nil {
			return fmt.Errorf("%s: %w", player, err)
		}
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintf(out, "%s: password does not match (%s)\n", player, crypt.Identify(stored))
			return fmt.Errorf("password mismatch")
		}
		fmt.Fprintf(out, "%s: password matches (%s)\n", player, crypt.Identify(stored))

		if checkpassUpgrade {
			hash, err := crypt.Upgrade(args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hash)
		}
		return nil
	},
}

func init() {
	checkpassCmd.Flags().BoolVar(&checkpassUpgrade, "upgrade", false, "print a bcrypt hash of a matching password")
	rootCmd.AddCommand(checkpassCmd)
}

// findPlayer resolves "#12" or an exact, case-insensitive player name.
func findPlayer(db *gamedb.Database, who string) *gamedb.Object {
	if strings.HasPrefix(who, "#") {
		if obj := db.FindObject(who); obj != nil && obj.Type == gamedb.TypePlayer {
			return obj
		}
		return nil
	}
	for _, obj := range db.OfType(gamedb.TypePlayer) {
		if strings.EqualFold(obj.Name, who) {
			return obj
		}
	}
	return nil
}
