package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	tenant    string
	actor     string
)

var rootCmd = &cobra.Command{
	Use:   "sdsctl",
	Short: "CLI for the SDS registry server",
	Long: `sdsctl manages Safety Data Sheet documents on an SDS registry server:
creating documents and versions, editing sections, driving the review
workflow, and searching the latest versions.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "SDS registry server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVarP(&tenant, "tenant", "t", "", "Tenant for multi-tenant servers (default: from SDS_TENANT env)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor identity sent with mutations (default: from SDS_ACTOR env)")

	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(sectionsCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(auditCmd)
}

// resolvedTenant returns the effective tenant.
// Priority: --tenant flag > SDS_TENANT env var > empty (single-tenant server).
func resolvedTenant() string {
	if tenant != "" {
		return tenant
	}
	return os.Getenv("SDS_TENANT")
}

// resolvedActor returns the effective actor identity.
func resolvedActor() string {
	if actor != "" {
		return actor
	}
	return os.Getenv("SDS_ACTOR")
}
