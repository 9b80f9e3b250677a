// Package entitycmder provides the entity subcommand for selecting the
// memory entity that client commands operate on.
package entitycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/dotdir"
)

const entityLongDesc string = `Manage the selected memory entity.

Client commands (ingest, stats, search) operate on a memory entity. The
selected entity is stored in .strata/entity.json so it does not have to
be passed with --entity on every invocation.

Examples:
  strata entity use alice                   Select "alice" as the entity
  strata entity use alice --speaker "bob"   Select with a speaker label
  strata entity show                        Show the selected entity
  strata entity clear                       Clear the selection`

const entityShortDesc string = "Manage the selected memory entity"

func NewEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: entityShortDesc,
		Long:  entityLongDesc,
	}

	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

func newUseCmd() *cobra.Command {
	var speaker string

	cmd := &cobra.Command{
		Use:   "use <entity>",
		Short: "Select a memory entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			manager := dotdir.NewManager()
			state := &dotdir.EntityState{
				Entity:  args[0],
				Speaker: speaker,
			}
			if err := manager.SaveEntityState(state, configDir); err != nil {
				return fmt.Errorf("saving entity state: %w", err)
			}

			if speaker != "" {
				fmt.Printf("Using entity %q (speaker %q)\n", state.Entity, state.Speaker)
			} else {
				fmt.Printf("Using entity %q\n", state.Entity)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&speaker, "speaker", "", "Speaker label used when ingesting as this entity")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the selected memory entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			manager := dotdir.NewManager()
			state, err := manager.LoadEntityState(configDir)
			if err != nil {
				return fmt.Errorf("loading entity state: %w", err)
			}
			if state == nil {
				fmt.Println("No entity selected. Run `strata entity use <name>`.")
				return nil
			}

			fmt.Printf("Entity:  %s\n", state.Entity)
			if state.Speaker != "" {
				fmt.Printf("Speaker: %s\n", state.Speaker)
			}
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the selected memory entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			manager := dotdir.NewManager()
			if err := manager.ClearEntityState(configDir); err != nil {
				return fmt.Errorf("clearing entity state: %w", err)
			}

			fmt.Println("Entity selection cleared.")
			return nil
		},
	}
}
