package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dmscreen/config"
	"dmscreen/model"
	"dmscreen/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load an exported JSON document into the state store.",
	Long: `import replaces stored state from an export document. Only the
sections present in the file change: tracks and groups always, the
initiative queue and enemy cards when included.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var doc model.ExportDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("invalid export document: %w", err)
		}

		cfg := config.Load()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if doc.Tracks != nil {
			for i := range doc.Tracks {
				if doc.Tracks[i].GroupIDs == nil {
					doc.Tracks[i].GroupIDs = []string{}
				}
			}
			if err := store.SaveJSON(ctx, st, store.KeyTracks, doc.Tracks); err != nil {
				return fmt.Errorf("failed to save tracks: %w", err)
			}
		}
		if doc.Groups != nil {
			if err := store.SaveJSON(ctx, st, store.KeyGroups, doc.Groups); err != nil {
				return fmt.Errorf("failed to save groups: %w", err)
			}
		}
		if doc.Initiative != nil && doc.Initiative.Participants != nil {
			if err := store.SaveJSON(ctx, st, store.KeyInitiative, doc.Initiative); err != nil {
				return fmt.Errorf("failed to save initiative: %w", err)
			}
		}
		if doc.Enemies != nil {
			if err := store.SaveJSON(ctx, st, store.KeyEnemies, doc.Enemies); err != nil {
				return fmt.Errorf("failed to save enemies: %w", err)
			}
		}

		fmt.Println("imported", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
