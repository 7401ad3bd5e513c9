// Command medisync exercises the MediSync core from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medisync/medisync"
	"github.com/medisync/medisync/config"
	"github.com/medisync/medisync/logging"
)

// Version is set at build time.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "medisync",
	Short: "medisync — agent communication and tool invocation core",
	Long:  "medisync runs the MediSync care-transition core: a message bus, a tool registry and a patient knowledge graph shared by clinical agents.",
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the discharge pipeline against a sample patient",
	RunE:  runDemo,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	RunE:  runTools,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.medisync/config.json)")
	rootCmd.AddCommand(demoCmd, toolsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCore() (*medisync.MediSync, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format := "text"
	if cfg.Logging.JSON {
		format = "json"
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: format,
		Output: os.Stderr,
	})

	return medisync.New(func(o *medisync.Options) {
		o.Config = cfg
		o.Logger = logger
	}), nil
}

var sampleDischarge = map[string]string{
	"patient_id":             "P001",
	"name":                   "John Smith",
	"admission_date":         "2025-02-01",
	"discharge_date":         "2025-02-07",
	"primary_diagnosis":      "Acute Myocardial Infarction (AMI) - STEMI",
	"secondary_diagnoses":    "Hypertension, Hyperlipidemia, Type 2 Diabetes",
	"medications":            "Aspirin 325mg daily, Clopidogrel 75mg daily, Metoprolol 50mg twice, Lisinopril 10mg daily, Atorvastatin 80mg daily, Warfarin 5mg daily",
	"follow_up":              "Cardiology in 1 week, PCP in 3 days",
	"allergies":              "NKDA",
	"precautions":            "No smoking, Low sodium diet",
	"discharge_instructions": "Take all medications as prescribed.",
}

func runDemo(cmd *cobra.Command, args []string) error {
	m, err := newCore()
	if err != nil {
		return err
	}

	analyzerResult, pharmacistResult, err := m.ProcessDischarge(cmd.Context(), sampleDischarge)
	if err != nil {
		return err
	}

	fmt.Println("=== ANALYZER ===")
	fmt.Println(analyzerResult.Reasoning)
	fmt.Println()
	fmt.Println("=== PHARMACIST ===")
	fmt.Println(pharmacistResult.Reasoning)
	fmt.Println()
	fmt.Println(m.Pharmacist().MedicationSummaryReport())

	if ok, result := m.Registry().Invoke("get_patient_summary", nil); ok {
		fmt.Println("=== PATIENT SUMMARY ===")
		fmt.Println(result["summary"])
		fmt.Println()
	}

	fmt.Println("=== BUS STATISTICS ===")
	if err := printJSON(m.Bus().Statistics()); err != nil {
		return err
	}

	fmt.Println("=== REGISTRY METRICS ===")
	return printJSON(m.Registry().ExportMetrics())
}

func runTools(cmd *cobra.Command, args []string) error {
	m, err := newCore()
	if err != nil {
		return err
	}

	for _, def := range m.Registry().List("", "") {
		fmt.Printf("%-22s %-8s %s\n", def.Name, def.Type, def.Description)
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// never print API keys
	cfg.Model.AnthropicAPIKey = ""
	cfg.Model.OpenAIAPIKey = ""
	return printJSON(cfg)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
