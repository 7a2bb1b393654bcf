package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/solaius/sds-registry/pkg/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
}

var auditEventsFlags struct {
	entityType string
	entityID   string
	actorID    string
	action     string
	since      string
	until      string
	pageSize   string
	pageToken  string
}

var auditEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List audit events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		set := func(key, value string) {
			if value != "" {
				query.Set(key, value)
			}
		}
		set("entityType", auditEventsFlags.entityType)
		set("entityId", auditEventsFlags.entityID)
		set("actorId", auditEventsFlags.actorID)
		set("action", auditEventsFlags.action)
		set("since", auditEventsFlags.since)
		set("until", auditEventsFlags.until)
		set("pageSize", auditEventsFlags.pageSize)
		set("pageToken", auditEventsFlags.pageToken)

		var list audit.EventList
		if err := newClient().getJSON("/api/v1/audit/events", query, &list); err != nil {
			return err
		}

		if outputFmt == "table" {
			rows := make([][]string, len(list.Events))
			for i, e := range list.Events {
				rows[i] = []string{
					e.CreatedAt,
					e.ActorID,
					e.Action,
					e.EntityType,
					e.EntityID,
					truncate(e.Description, 50),
				}
			}
			printTable([]string{"time", "actor", "action", "entity", "id", "description"}, rows)
			return nil
		}
		return printOutput(list)
	},
}

func init() {
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.entityType, "entity-type", "", "Filter by entity type (document, section, review)")
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.entityID, "entity-id", "", "Filter by entity ID")
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.actorID, "actor-id", "", "Filter by actor")
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.action, "action", "", "Filter by action")
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.since, "since", "", "Only events at or after this RFC3339 time")
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.until, "until", "", "Only events before this RFC3339 time")
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.pageSize, "page-size", "", "Page size")
	auditEventsCmd.Flags().StringVar(&auditEventsFlags.pageToken, "page-token", "", "Continuation token")

	auditCmd.AddCommand(auditEventsCmd)
}
