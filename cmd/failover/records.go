package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cuemby/failover/pkg/config"
	"github.com/cuemby/failover/pkg/matcher"
	"github.com/cuemby/failover/pkg/registry"
	"github.com/cuemby/failover/pkg/storage"
	"github.com/cuemby/failover/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the CDN records a pass would check",
	Long: `List the domain's records that match a CDN rule, with the port their
node would be probed on. Nodes are not probed.`,
	RunE: runRecords,
}

var recordsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import records into the local registrar",
	Long: `Import records from a YAML file into the bolt registrar named by
registrar.path.

Examples:
  failover records import -f records.yaml

The file lists records under the configured domain:

  records:
    - rr: cdn-hk
      type: CNAME
      value: edge-hk-1.cdnvendor.net
      status: ENABLE`,
	RunE: runRecordsImport,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete RECORD_ID...",
	Short: "Delete records from the local registrar",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecordsDelete,
}

func init() {
	recordsCmd.Flags().Bool("all", false, "List every record, not only matched ones")

	recordsImportCmd.Flags().StringP("file", "f", "", "YAML file with records (required)")
	_ = recordsImportCmd.MarkFlagRequired("file")

	recordsCmd.AddCommand(recordsImportCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
}

func runRecords(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")

	reg, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to open registrar: %w", err)
	}
	defer closeRegistry()

	records, err := registry.ListAll(context.Background(), reg, cfg.Domain, cfg.PageSize)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	if all {
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tVALUE\tSTATUS")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.RecordID, r.FQDN(cfg.Domain), r.Type, r.Value, r.Status)
		}
		return nil
	}

	matched, err := matcher.New(cfg.Rules(), cfg.Domain).Select(records)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "ID\tNAME\tNODE\tPORT\tSTATUS")
	for _, m := range matched {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", m.Record.RecordID, m.Record.FQDN(cfg.Domain), m.Address(), m.Port, m.Record.Status)
	}
	return nil
}

// recordsFile is the import file format
type recordsFile struct {
	Domain  string               `yaml:"domain"`
	Records []types.DomainRecord `yaml:"records"`
}

func runRecordsImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireBolt(cfg, "imported into"); err != nil {
		return err
	}

	filename, _ := cmd.Flags().GetString("file")
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}

	var file recordsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %v", err)
	}
	domain := file.Domain
	if domain == "" {
		domain = cfg.Domain
	}

	store, err := storage.NewBoltStore(cfg.Registrar.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.ImportRecords(domain, file.Records)
	if err != nil {
		return fmt.Errorf("failed to import records: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d records into %s\n", n, cfg.Registrar.Path)
	return nil
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireBolt(cfg, "deleted from"); err != nil {
		return err
	}

	store, err := storage.NewBoltStore(cfg.Registrar.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range args {
		if err := store.DeleteRecord(id); err != nil {
			return fmt.Errorf("failed to delete record %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted record %s\n", id)
	}
	return nil
}

func requireBolt(cfg *config.Config, action string) error {
	if cfg.Registrar.Provider != config.ProviderBolt {
		return fmt.Errorf("records can only be %s the bolt registrar, configured provider is %q", action, cfg.Registrar.Provider)
	}
	return nil
}
