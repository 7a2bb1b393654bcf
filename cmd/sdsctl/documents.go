package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/solaius/sds-registry/pkg/sds"
)

type documentList struct {
	Documents []sds.Document `json:"documents"`
	TotalSize int            `json:"totalSize"`
}

type versionList struct {
	Versions  []sds.Document `json:"versions"`
	TotalSize int            `json:"totalSize"`
}

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs", "doc"},
	Short:   "Manage SDS documents",
}

var docCreateFlags struct {
	title       string
	productName string
	casNumber   string
	supplier    string
	revision    string
}

var docCreateCmd = &cobra.Command{
	Use:   "create <document-number>",
	Short: "Create a new document with all 16 sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metadata := map[string]any{}
		if docCreateFlags.title != "" {
			metadata["title"] = docCreateFlags.title
		}
		if docCreateFlags.productName != "" {
			metadata["productName"] = docCreateFlags.productName
		}
		if docCreateFlags.casNumber != "" {
			metadata["casNumber"] = docCreateFlags.casNumber
		}
		if docCreateFlags.supplier != "" {
			metadata["supplierName"] = docCreateFlags.supplier
		}
		if docCreateFlags.revision != "" {
			metadata["revisionLabel"] = docCreateFlags.revision
		}

		var doc sds.Document
		err := newClient().postJSON("/api/v1/documents", map[string]any{
			"documentNumber": args[0],
			"metadata":       metadata,
		}, &doc)
		if err != nil {
			return err
		}

		if outputFmt == "table" {
			fmt.Printf("Created document %s (%s) version %d\n", doc.DocumentNumber, doc.ID, doc.Version)
			return nil
		}
		return printOutput(doc)
	},
}

var docGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a document with its sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var doc sds.Document
		if err := newClient().getJSON("/api/v1/documents/"+args[0], nil, &doc); err != nil {
			return err
		}

		if outputFmt == "table" {
			printDocumentTable([]sds.Document{doc})
			if len(doc.Sections) > 0 {
				fmt.Println()
				rows := make([][]string, len(doc.Sections))
				for i, s := range doc.Sections {
					rows[i] = []string{
						strconv.Itoa(s.Number),
						s.Title,
						strconv.Itoa(s.Version),
						strconv.FormatBool(s.HasChanges),
						truncate(s.Content, 40),
					}
				}
				printTable([]string{"no", "title", "ver", "changed", "content"}, rows)
			}
			return nil
		}
		return printOutput(doc)
	},
}

var docLatestCmd = &cobra.Command{
	Use:   "latest <document-number>",
	Short: "Get the latest version of a document number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var doc sds.Document
		if err := newClient().getJSON("/api/v1/documents/latest/"+args[0], nil, &doc); err != nil {
			return err
		}
		if outputFmt == "table" {
			printDocumentTable([]sds.Document{doc})
			return nil
		}
		return printOutput(doc)
	},
}

var docSearchFlags struct {
	freeText    string
	casNumber   string
	supplier    string
	filterQuery string
}

var docSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the latest versions of documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if docSearchFlags.freeText != "" {
			query.Set("q", docSearchFlags.freeText)
		}
		if docSearchFlags.casNumber != "" {
			query.Set("casNumber", docSearchFlags.casNumber)
		}
		if docSearchFlags.supplier != "" {
			query.Set("supplier", docSearchFlags.supplier)
		}
		if docSearchFlags.filterQuery != "" {
			query.Set("filterQuery", docSearchFlags.filterQuery)
		}

		var list documentList
		if err := newClient().getJSON("/api/v1/documents/search", query, &list); err != nil {
			return err
		}
		if outputFmt == "table" {
			printDocumentTable(list.Documents)
			return nil
		}
		return printOutput(list)
	},
}

var docUpdateFlags struct {
	title       string
	productName string
	casNumber   string
	supplier    string
	revision    string
}

var docUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update document metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metadata := map[string]any{}
		if docUpdateFlags.title != "" {
			metadata["title"] = docUpdateFlags.title
		}
		if docUpdateFlags.productName != "" {
			metadata["productName"] = docUpdateFlags.productName
		}
		if docUpdateFlags.casNumber != "" {
			metadata["casNumber"] = docUpdateFlags.casNumber
		}
		if docUpdateFlags.supplier != "" {
			metadata["supplierName"] = docUpdateFlags.supplier
		}
		if docUpdateFlags.revision != "" {
			metadata["revisionLabel"] = docUpdateFlags.revision
		}
		if len(metadata) == 0 {
			return fmt.Errorf("no metadata fields provided")
		}

		var doc sds.Document
		if err := newClient().patchJSON("/api/v1/documents/"+args[0], metadata, &doc); err != nil {
			return err
		}
		if outputFmt == "table" {
			printDocumentTable([]sds.Document{doc})
			return nil
		}
		return printOutput(doc)
	},
}

var docVersionsCmd = &cobra.Command{
	Use:   "versions <id>",
	Short: "List the version chain of a document, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var list versionList
		if err := newClient().getJSON("/api/v1/documents/"+args[0]+"/versions", nil, &list); err != nil {
			return err
		}
		if outputFmt == "table" {
			printDocumentTable(list.Versions)
			return nil
		}
		return printOutput(list)
	},
}

var docNewVersionCmd = &cobra.Command{
	Use:   "new-version <id>",
	Short: "Create the next version of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var doc sds.Document
		if err := newClient().postJSON("/api/v1/documents/"+args[0]+"/versions", map[string]any{}, &doc); err != nil {
			return err
		}
		if outputFmt == "table" {
			fmt.Printf("Created version %d of document %s (%s)\n", doc.Version, doc.DocumentNumber, doc.ID)
			return nil
		}
		return printOutput(doc)
	},
}

func printDocumentTable(docs []sds.Document) {
	rows := make([][]string, len(docs))
	for i, d := range docs {
		rows[i] = []string{
			d.ID,
			d.DocumentNumber,
			strconv.Itoa(d.Version),
			string(d.Status),
			truncate(d.ProductName, 30),
			d.CasNumber,
			strconv.FormatBool(d.IsLatest),
		}
	}
	printTable([]string{"id", "number", "ver", "status", "product", "cas", "latest"}, rows)
}

func init() {
	docCreateCmd.Flags().StringVar(&docCreateFlags.title, "title", "", "Document title")
	docCreateCmd.Flags().StringVar(&docCreateFlags.productName, "product", "", "Product name")
	docCreateCmd.Flags().StringVar(&docCreateFlags.casNumber, "cas", "", "CAS number")
	docCreateCmd.Flags().StringVar(&docCreateFlags.supplier, "supplier", "", "Supplier name")
	docCreateCmd.Flags().StringVar(&docCreateFlags.revision, "revision", "", "Revision label")

	docUpdateCmd.Flags().StringVar(&docUpdateFlags.title, "title", "", "Document title")
	docUpdateCmd.Flags().StringVar(&docUpdateFlags.productName, "product", "", "Product name")
	docUpdateCmd.Flags().StringVar(&docUpdateFlags.casNumber, "cas", "", "CAS number")
	docUpdateCmd.Flags().StringVar(&docUpdateFlags.supplier, "supplier", "", "Supplier name")
	docUpdateCmd.Flags().StringVar(&docUpdateFlags.revision, "revision", "", "Revision label")

	docSearchCmd.Flags().StringVarP(&docSearchFlags.freeText, "query", "q", "", "Free-text query (product, number, or CAS substring)")
	docSearchCmd.Flags().StringVar(&docSearchFlags.casNumber, "cas", "", "Exact CAS number")
	docSearchCmd.Flags().StringVar(&docSearchFlags.supplier, "supplier", "", "Supplier name substring")
	docSearchCmd.Flags().StringVar(&docSearchFlags.filterQuery, "filter", "", `Structured filter, e.g. 'status = "approved" AND product_name ~ "acetone"'`)

	documentsCmd.AddCommand(docCreateCmd)
	documentsCmd.AddCommand(docGetCmd)
	documentsCmd.AddCommand(docLatestCmd)
	documentsCmd.AddCommand(docSearchCmd)
	documentsCmd.AddCommand(docUpdateCmd)
	documentsCmd.AddCommand(docVersionsCmd)
	documentsCmd.AddCommand(docNewVersionCmd)
}
