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

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved mixer and combat state as a JSON document.",
	Long: `export reads the state store directly, without a running server, and
writes an import-compatible JSON document with tracks, groups, the
initiative queue and enemy cards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		doc := model.ExportDocument{
			Tracks: []model.Track{},
			Groups: []model.VolumeGroup{},
		}
		if _, err := store.LoadJSON(ctx, st, store.KeyTracks, &doc.Tracks); err != nil {
			return fmt.Errorf("failed to read tracks: %w", err)
		}
		if _, err := store.LoadJSON(ctx, st, store.KeyGroups, &doc.Groups); err != nil {
			return fmt.Errorf("failed to read groups: %w", err)
		}
		var state model.InitiativeState
		if ok, err := store.LoadJSON(ctx, st, store.KeyInitiative, &state); err != nil {
			return fmt.Errorf("failed to read initiative: %w", err)
		} else if ok {
			doc.Initiative = &state
		}
		if _, err := store.LoadJSON(ctx, st, store.KeyEnemies, &doc.Enemies); err != nil {
			return fmt.Errorf("failed to read enemies: %w", err)
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')

		if exportOutput == "" || exportOutput == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(exportOutput, data, 0o644)
	},
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreBackend == "redis" {
		return store.NewRedis(cfg)
	}
	return store.NewSQLite(cfg.SQLitePath)
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}
