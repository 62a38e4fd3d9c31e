// cmd/passport/registry.go
package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	apn "passport-workers/internal/workers/passport/augment-passport-narrative"
	cpe "passport-workers/internal/workers/passport/check-passport-entitlement"
	gcp "passport-workers/internal/workers/passport/generate-credit-passport"
	gph "passport-workers/internal/workers/passport/get-passport-history"
	ip "passport-workers/internal/workers/passport/index-passport"
	sp "passport-workers/internal/workers/passport/search-passports"
	spn "passport-workers/internal/workers/passport/send-passport-notification"
	spr "passport-workers/internal/workers/passport/store-passport-record"
	"passport-workers/pkg/registry"

	"github.com/spf13/cobra"
)

const defaultRegistryPath = "configs/activity-registry.json"

// workerTaskTypes are the task types the worker manager subscribes to.
var workerTaskTypes = []string{
	gcp.TaskType, apn.TaskType, cpe.TaskType, spr.TaskType,
	gph.TaskType, ip.TaskType, sp.TaskType, spn.TaskType,
}

// unregistered lists worker task types the registry does not describe.
func unregistered(reg *registry.ActivityRegistry) []string {
	var missing []string
	for _, taskType := range workerTaskTypes {
		if _, err := reg.Find(taskType); err != nil {
			missing = append(missing, taskType)
		}
	}
	return missing
}

func newRegistryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and edit the activity registry",
		Long: `Manage configs/activity-registry.json.

Available subcommands:
  list     - Print every activity with its status
  validate - Check required fields, statuses, timeouts and schemas
  add      - Register a new activity
  update   - Change one field of an activity`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", defaultRegistryPath, "path to the registry file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every activity with its status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				reg, err := registry.LoadRegistry(path)
				if err != nil {
					return err
				}
				activities := append([]registry.Activity(nil), reg.Activities...)
				sort.Slice(activities, func(i, j int) bool { return activities[i].ID < activities[j].ID })

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTASK TYPE\tSTATUS\tTIMEOUT")
				for _, a := range activities {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.TaskType, a.ImplementationStatus, a.Timeout)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the registry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				reg, err := registry.LoadRegistry(path)
				if err != nil {
					return err
				}
				if err := reg.Validate(); err != nil {
					return err
				}
				if missing := unregistered(reg); len(missing) > 0 {
					return fmt.Errorf("registry is missing worker task types: %s", strings.Join(missing, ", "))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registry %s is valid (%d activities)\n", path, len(reg.Activities))
				return nil
			},
		},
		newRegistryAddCmd(&path),
		newRegistryUpdateCmd(&path),
	)
	return cmd
}

func newRegistryAddCmd(path *string) *cobra.Command {
	var a registry.Activity
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return err
			}
			if a.TaskType == "" {
				a.TaskType = a.ID
			}
			if err := reg.Add(a); err != nil {
				return err
			}
			if err := reg.Save(*path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added activity %s\n", a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&a.ID, "id", "", "activity id")
	cmd.Flags().StringVar(&a.DisplayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&a.Description, "description", "", "description")
	cmd.Flags().StringVar(&a.Category, "category", "passport", "category")
	cmd.Flags().StringVar(&a.TaskType, "task-type", "", "Zeebe task type (defaults to the id)")
	cmd.Flags().StringVar(&a.Version, "version", "1.0.0", "version")
	cmd.Flags().StringVar(&a.ImplementationStatus, "status", registry.StatusPlanned, "implementation status")
	cmd.Flags().StringVar(&a.Timeout, "timeout", "10s", "job timeout")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("display-name")
	return cmd
}

func newRegistryUpdateCmd(path *string) *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change one field of an activity",
		Long:  "Fields: status, version, description, timeout, retries.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return err
			}
			if err := reg.Update(id, field, value); err != nil {
				return err
			}
			if err := reg.Save(*path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s.%s = %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id")
	cmd.Flags().StringVar(&field, "field", "", "field to update")
	cmd.Flags().StringVar(&value, "value", "", "new value")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
